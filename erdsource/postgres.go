package erdsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/lib/log"
)

const (
	DEFAULT_SCHEMA = "public"

	MAX_CONNS          = 4
	MAX_CONN_IDLE_TIME = time.Minute
)

var ErrTableNotFound = errors.New("table not found")

// Postgres introspects the tables of a live PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (_ *Postgres, err error) {
	defer xdefer.Errorf(&err, "failed to connect")

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = MAX_CONNS
	cfg.MaxConnIdleTime = MAX_CONN_IDLE_TIME

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := &Postgres{pool: pool}
	if err := p.TestConnection(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Debug(ctx, "connected", slog.F("host", cfg.ConnConfig.Host), slog.F("database", cfg.ConnConfig.Database))
	return p, nil
}

func (p *Postgres) TestConnection(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Schemas lists the user schemas of the database.
func (p *Postgres) Schemas(ctx context.Context) (_ []string, err error) {
	defer xdefer.Errorf(&err, "failed to list schemas")

	rows, err := p.pool.Query(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
			AND schema_name NOT LIKE 'pg\_toast%'
			AND schema_name NOT LIKE 'pg\_temp\_%'
		ORDER BY schema_name
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Tables lists the base tables of schema.
func (p *Postgres) Tables(ctx context.Context, schema string) (_ []string, err error) {
	defer xdefer.Errorf(&err, "failed to list tables of %s", schema)

	rows, err := p.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
			AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, schema)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Selection returns a Source for the given tables of schema. No tables selects all of
// them. An empty schema is public.
func (p *Postgres) Selection(schema string, tables []string) Source {
	if schema == "" {
		schema = DEFAULT_SCHEMA
	}
	return selection{p: p, schema: schema, tables: tables}
}

type selection struct {
	p      *Postgres
	schema string
	tables []string
}

func (s selection) Load(ctx context.Context) (*erdschema.Schema, error) {
	return s.p.LoadTables(ctx, s.schema, s.tables)
}

// LoadTables introspects the named tables of schema in the given order, or every table
// in name order when names is empty. Relationships are inferred from the constraints.
func (p *Postgres) LoadTables(ctx context.Context, schema string, names []string) (_ *erdschema.Schema, err error) {
	defer xdefer.Errorf(&err, "failed to load %s", schema)

	all, err := p.Tables(ctx, schema)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = all
	} else {
		known := make(map[string]struct{}, len(all))
		for _, n := range all {
			known[n] = struct{}{}
		}
		for _, n := range names {
			if _, ok := known[n]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrTableNotFound, n)
			}
		}
	}

	tables := make([]erdschema.Table, 0, len(names))
	for _, name := range names {
		t, err := p.table(ctx, schema, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	unique, err := p.uniqueColumns(ctx, schema)
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "introspected tables", slog.F("schema", schema), slog.F("tables", len(tables)))
	return erdschema.New(ctx, Classify(tables, unique)), nil
}

func (p *Postgres) table(ctx context.Context, schema, name string) (t erdschema.Table, err error) {
	defer xdefer.Errorf(&err, "table %s", name)

	t.Name = name
	if t.Columns, err = p.columns(ctx, schema, name); err != nil {
		return t, err
	}
	if t.PrimaryKey, err = p.primaryKey(ctx, schema, name); err != nil {
		return t, err
	}
	if t.ForeignKeys, err = p.foreignKeys(ctx, schema, name); err != nil {
		return t, err
	}
	return t, nil
}

func (p *Postgres) columns(ctx context.Context, schema, table string) ([]erdschema.Column, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (erdschema.Column, error) {
		var c erdschema.Column
		err := row.Scan(&c.Name, &c.DataType)
		return c, err
	})
}

func (p *Postgres) primaryKey(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// foreignKeys pairs referencing and referenced columns by position so composite keys
// come out as one foreign key per column.
func (p *Postgres) foreignKeys(ctx context.Context, schema, table string) ([]erdschema.ForeignKey, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT kcu.column_name, ref.table_name, ref.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		JOIN information_schema.key_column_usage ref
			ON ref.constraint_name = rc.unique_constraint_name
			AND ref.constraint_schema = rc.unique_constraint_schema
			AND ref.ordinal_position = kcu.position_in_unique_constraint
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`, schema, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (erdschema.ForeignKey, error) {
		var fk erdschema.ForeignKey
		err := row.Scan(&fk.SourceColumn, &fk.TargetTable, &fk.TargetColumn)
		return fk, err
	})
}

// uniqueColumns returns the columns of schema covered by a single column unique
// constraint, keyed by table.
func (p *Postgres) uniqueColumns(ctx context.Context, schema string) (map[string]map[string]bool, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT tc.table_name, MIN(kcu.column_name)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'UNIQUE'
			AND tc.table_schema = $1
		GROUP BY tc.table_name, tc.constraint_name
		HAVING COUNT(*) = 1
	`, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unique := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		if unique[table] == nil {
			unique[table] = make(map[string]bool)
		}
		unique[table][column] = true
	}
	return unique, rows.Err()
}
