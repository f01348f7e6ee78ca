package xmain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"
)

func TestOptsEnvDefaults(t *testing.T) {
	t.Parallel()

	env := xos.NewEnv([]string{"ERD_THEME=light", "ERD_PAD=12", "ERD_WATCH=1", "ERD_TABLES=a,b"})
	opts := NewOpts(env, cmdlog.NewTB(env, t), []string{"--pad=20", "in.json"})

	theme := opts.String("ERD_THEME", "theme", "t", "dark", "")
	pad, err := opts.Int64("ERD_PAD", "pad", "", 100, "")
	assert.NoError(t, err)
	watch, err := opts.Bool("ERD_WATCH", "watch", "w", false, "")
	assert.NoError(t, err)
	tables := opts.StringSlice("ERD_TABLES", "tables", "", nil, "")

	assert.NoError(t, opts.Parse())
	assert.Equal(t, "light", *theme)
	assert.Equal(t, int64(20), *pad)
	assert.True(t, *watch)
	assert.Equal(t, []string{"a", "b"}, *tables)
	assert.Equal(t, []string{"in.json"}, opts.Args)
	assert.Contains(t, opts.Help(), "$ERD_THEME")
}

func TestOptsBadEnv(t *testing.T) {
	t.Parallel()

	env := xos.NewEnv([]string{"ERD_WATCH=maybe"})
	opts := NewOpts(env, cmdlog.NewTB(env, t), nil)
	_, err := opts.Bool("ERD_WATCH", "watch", "w", false, "")
	assert.Error(t, err)
}

func TestOptsBadFlag(t *testing.T) {
	t.Parallel()

	env := xos.NewEnv(nil)
	opts := NewOpts(env, cmdlog.NewTB(env, t), []string{"--nope"})
	err := opts.Parse()
	var uerr UsageError
	assert.ErrorAs(t, err, &uerr)
}

func TestLoadEnvFile(t *testing.T) {
	t.Parallel()

	fp := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(fp, []byte("ERD_DSN=postgresql://u@h:5432/db\nERD_THEME=light\n"), 0644))

	env := xos.NewEnv([]string{"ERD_THEME=dark"})
	ms := &State{Env: env, Log: cmdlog.NewTB(env, t)}
	assert.NoError(t, ms.LoadEnvFile(fp))
	assert.Equal(t, "postgresql://u@h:5432/db", env.Getenv("ERD_DSN"))
	assert.Equal(t, "dark", env.Getenv("ERD_THEME"))

	assert.Error(t, ms.LoadEnvFile(filepath.Join(t.TempDir(), "missing")))
}
