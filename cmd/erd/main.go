package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/pflag"

	"oss.terrastruct.com/erd/erdlib"
	"oss.terrastruct.com/erd/erdrenderers/erdsvg"
	"oss.terrastruct.com/erd/erdsource"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/erdthemes"
	"oss.terrastruct.com/erd/lib/go2"
	"oss.terrastruct.com/erd/lib/log"
	"oss.terrastruct.com/erd/lib/textmeasure"
	"oss.terrastruct.com/erd/lib/xmain"
)

func main() {
	xmain.Main(func(ctx context.Context, ms *xmain.State) error {
		return run(log.Stderr(ctx), ms)
	})
}

type flags struct {
	watch       *bool
	theme       *string
	pad         *int64
	animate     *bool
	fontMetrics *bool
	dsn         *string
	schema      *string
	tables      *[]string
	positions   *string
	debug       *bool
	browser     *string
	timeout     *int64
}

func registerFlags(ms *xmain.State) (f flags, err error) {
	// Registered so --help lists it. The file itself is loaded before any flag is registered.
	_ = ms.Opts.String("", "env-file", "", "", "load environment variables from a dotenv file. Variables already set win.")

	if f.watch, err = ms.Opts.Bool("ERD_WATCH", "watch", "w", false, "serve an interactive page that reloads on changes to input and accepts drags. Use $HOST and $PORT to specify the listening address."); err != nil {
		return f, err
	}
	f.theme = ms.Opts.String("ERD_THEME", "theme", "t", erdthemes.Dark.Name, fmt.Sprintf("the diagram theme: %s.", strings.Join(erdthemes.Names(), ", ")))
	if f.pad, err = ms.Opts.Int64("ERD_PAD", "pad", "", erdsvg.DEFAULT_PADDING, "pixels padded around the rendered diagram."); err != nil {
		return f, err
	}
	if f.animate, err = ms.Opts.Bool("", "animate", "", false, "march the dashes of every edge."); err != nil {
		return f, err
	}
	if f.fontMetrics, err = ms.Opts.Bool("ERD_FONT_METRICS", "font-metrics", "", false, "size nodes with real Go Mono glyph metrics instead of fixed width cells."); err != nil {
		return f, err
	}
	f.dsn = ms.Opts.String("ERD_DSN", "dsn", "", "", "read metadata from a PostgreSQL database instead of a file.")
	f.schema = ms.Opts.String("ERD_SCHEMA", "schema", "s", erdsource.DEFAULT_SCHEMA, "database schema to read with --dsn.")
	f.tables = ms.Opts.StringSlice("ERD_TABLES", "tables", "", nil, "comma separated tables to read with --dsn. Defaults to every table in the schema.")
	f.positions = ms.Opts.String("ERD_POSITIONS", "positions", "", "", "write the final table positions as JSON to this path.")
	if f.debug, err = ms.Opts.Bool("ERD_DEBUG", "debug", "d", false, "print debug logs."); err != nil {
		return f, err
	}
	f.browser = ms.Opts.String("BROWSER", "browser", "", "", "browser executable that watch opens. Setting to 0 opens no browser.")
	if f.timeout, err = ms.Opts.Int64("ERD_TIMEOUT", "timeout", "", 120, "the maximum number of seconds a render or database query may take."); err != nil {
		return f, err
	}
	return f, nil
}

func run(ctx context.Context, ms *xmain.State) (err error) {
	if fp := envFileArg(ms.Opts.Args); fp != "" {
		if err := ms.LoadEnvFile(fp); err != nil {
			return xmain.UsageErrorf("%v", err)
		}
	}

	f, err := registerFlags(ms)
	if err != nil {
		return xmain.UsageErrorf("%v", err)
	}

	err = ms.Opts.Parse()
	if errors.Is(err, pflag.ErrHelp) {
		help(ms)
		return nil
	}
	if err != nil {
		return err
	}

	if *f.debug {
		ctx = log.Leveled(ctx, slog.LevelDebug)
		ms.Env.Setenv("DEBUG", "1")
	}
	if *f.browser != "" {
		ms.Env.Setenv("BROWSER", *f.browser)
	}

	theme, ok := erdthemes.Find(*f.theme)
	if !ok {
		return xmain.UsageErrorf("-t[heme] could not be found. The available options are: %s\nYou provided: %s", strings.Join(erdthemes.Names(), ", "), *f.theme)
	}

	args := ms.Opts.Args
	if len(args) > 0 {
		switch args[0] {
		case "schemas", "tables", "test-connection":
			return database(ctx, ms, args[0], args[1:], f)
		}
	}
	if len(args) > 2 {
		return xmain.UsageErrorf("too many arguments passed")
	}

	var inputPath, outputPath string
	if *f.dsn == "" {
		if len(args) == 0 {
			help(ms)
			return nil
		}
		inputPath = args[0]
	}
	switch {
	case len(args) == 2:
		outputPath = args[1]
	case len(args) == 1 && *f.dsn != "":
		outputPath = args[0]
	case inputPath == "" || inputPath == "-":
		outputPath = "-"
	default:
		outputPath = renameExt(inputPath, ".svg")
	}

	r := &renderer{
		ms:            ms,
		outputPath:    outputPath,
		positionsPath: *f.positions,
		opts: &erdsvg.RenderOpts{
			Pad:     f.pad,
			ThemeID: go2.Pointer(theme.ID),
			Animate: f.animate,
		},
	}
	driverOpts := &erdlib.Options{}
	if *f.fontMetrics {
		ruler, err := textmeasure.NewRuler(textmeasure.FONT_SIZE)
		if err != nil {
			return err
		}
		driverOpts.Ruler = ruler
	}
	r.driver = erdlib.NewDriver(driverOpts)

	if *f.dsn != "" {
		pg, err := connect(ctx, *f.dsn)
		if err != nil {
			return err
		}
		defer pg.Close()
		r.src = pg.Selection(*f.schema, *f.tables)
		r.inputName = fmt.Sprintf("%s (schema %s)", redact(*f.dsn), *f.schema)
	} else {
		r.src = erdsource.File{Path: inputPath, ReadFile: ms.ReadPath}
		r.inputName = inputPath
	}

	if *f.watch {
		if inputPath == "-" {
			return xmain.UsageErrorf("-w[atch] cannot be combined with reading input from stdin")
		}
		if outputPath == "-" {
			return xmain.UsageErrorf("-w[atch] needs an output file, it cannot write to stdout")
		}
		ms.Env.Setenv("LOG_TIMESTAMPS", "1")
		w, err := newWatcher(ctx, ms, r, inputPath)
		if err != nil {
			return err
		}
		return w.run()
	}

	ctx, cancel := log.WithTimeout(ctx, time.Duration(*f.timeout)*time.Second)
	defer cancel()

	if _, err := r.load(ctx); err != nil {
		return err
	}
	ms.Log.Success.Printf("successfully rendered %v to %v", r.inputName, outputPath)
	return nil
}

// database runs one of the introspection subcommands.
func database(ctx context.Context, ms *xmain.State, cmd string, args []string, f flags) error {
	if len(args) > 0 {
		return xmain.UsageErrorf("%s takes no arguments", cmd)
	}
	if *f.dsn == "" {
		return xmain.UsageErrorf("%s requires --dsn", cmd)
	}

	ctx, cancel := log.WithTimeout(ctx, time.Duration(*f.timeout)*time.Second)
	defer cancel()

	pg, err := connect(ctx, *f.dsn)
	if err != nil {
		return err
	}
	defer pg.Close()

	var names []string
	switch cmd {
	case "test-connection":
		ms.Log.Success.Printf("connected to %s", redact(*f.dsn))
		return nil
	case "schemas":
		names, err = pg.Schemas(ctx)
	case "tables":
		names, err = pg.Tables(ctx, *f.schema)
	}
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(ms.Stdout, n)
	}
	return nil
}

func connect(ctx context.Context, dsn string) (*erdsource.Postgres, error) {
	pg, err := erdsource.Connect(ctx, dsn)
	if err != nil {
		return nil, xmain.ExitErrorf(1, "%v", err)
	}
	return pg, nil
}

// renderer loads metadata into the driver and writes what it draws.
type renderer struct {
	ms     *xmain.State
	src    erdsource.Source
	driver *erdlib.Driver
	opts   *erdsvg.RenderOpts

	inputName     string
	outputPath    string
	positionsPath string

	// mu serializes writes of the output and positions files.
	mu sync.Mutex
}

// load reads the source again and lays it out from scratch.
func (r *renderer) load(ctx context.Context) ([]byte, error) {
	schema, err := r.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return r.write(ctx, r.driver.Load(ctx, schema))
}

func (r *renderer) write(ctx context.Context, diagram *erdtarget.Diagram) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(ctx, diagram)
}

// flush writes the latest scene the driver drew. Two releases racing to write can
// not leave an older scene on disk.
func (r *renderer) flush(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(ctx, r.driver.Diagram())
}

func (r *renderer) writeLocked(ctx context.Context, diagram *erdtarget.Diagram) ([]byte, error) {
	for _, s := range diagram.Skipped {
		r.ms.Log.Warn.Printf("skipped edge %v", s)
	}
	svg, err := erdsvg.Render(diagram, r.opts)
	if err != nil {
		return nil, err
	}
	if err := r.ms.WritePath(r.outputPath, svg); err != nil {
		return nil, err
	}
	if r.positionsPath != "" {
		b, err := json.MarshalIndent(r.driver.Positions(), "", "  ")
		if err != nil {
			return nil, err
		}
		if err := r.ms.WritePath(r.positionsPath, append(b, '\n')); err != nil {
			return nil, err
		}
	}
	log.Debug(ctx, "wrote diagram", slog.F("path", r.outputPath), slog.F("bytes", len(svg)))
	return svg, nil
}

// envFileArg finds --env-file in args without parsing the rest.
func envFileArg(args []string) string {
	for i, a := range args {
		if a == "--" {
			return ""
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// redact describes a connection string by its host, port, database and user. It is
// rebuilt from what pgx parses so a password can not leak from any of the URL,
// query string or keyword forms.
func redact(dsn string) string {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "<invalid connection string>"
	}
	u := url.URL{
		Scheme: "postgresql",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	return u.String()
}

// newExt must include leading .
func renameExt(fp string, newExt string) string {
	ext := filepath.Ext(fp)
	if ext == "" {
		return fp + newExt
	}
	return strings.TrimSuffix(fp, ext) + newExt
}
