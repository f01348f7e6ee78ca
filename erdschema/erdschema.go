// Package erdschema holds the table metadata a diagram is drawn from.
//
// A Schema is an immutable snapshot. Loading new metadata means building a new Schema,
// never editing one in place.
package erdschema

import (
	"context"
	"strings"

	"cdr.dev/slog"

	"oss.terrastruct.com/erd/lib/log"
)

type Relationship string

const (
	Unknown    Relationship = ""
	OneToOne   Relationship = "OneToOne"
	OneToMany  Relationship = "OneToMany"
	ManyToMany Relationship = "ManyToMany"
)

var relationshipAliases = map[string]Relationship{
	"onetoone":   OneToOne,
	"1:1":        OneToOne,
	"||--||":     OneToOne,
	"onetomany":  OneToMany,
	"1:n":        OneToMany,
	"1:*":        OneToMany,
	"||--o{":     OneToMany,
	"manytomany": ManyToMany,
	"n:m":        ManyToMany,
	"*:*":        ManyToMany,
	"}o--o{":     ManyToMany,
}

// ParseRelationship accepts the canonical names in any case, their snake or kebab
// case spellings and crow's foot notation. Anything else is Unknown.
func ParseRelationship(s string) Relationship {
	k := strings.ToLower(strings.TrimSpace(s))
	if r, ok := relationshipAliases[k]; ok {
		return r
	}
	k = strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
	return relationshipAliases[k]
}

func (r *Relationship) UnmarshalText(b []byte) error {
	*r = ParseRelationship(string(b))
	return nil
}

func (r Relationship) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

type Column struct {
	Name     string `json:"column_name" yaml:"column_name"`
	DataType string `json:"data_type" yaml:"data_type"`
}

type ForeignKey struct {
	SourceColumn string       `json:"source_column" yaml:"source_column"`
	TargetTable  string       `json:"target_table" yaml:"target_table"`
	TargetColumn string       `json:"target_column" yaml:"target_column"`
	Relationship Relationship `json:"relationship_type,omitempty" yaml:"relationship_type,omitempty"`
}

type Table struct {
	Name        string       `json:"table_name" yaml:"table_name"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	PrimaryKey  []string     `json:"primary_key" yaml:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys" yaml:"foreign_keys"`
}

func (t Table) IsPrimaryKey(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

func (t Table) IsForeignKey(column string) bool {
	for _, fk := range t.ForeignKeys {
		if fk.SourceColumn == column {
			return true
		}
	}
	return false
}

// ColumnIndex returns the row index of column or -1.
func (t Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c.Name == column {
			return i
		}
	}
	return -1
}

type Schema struct {
	Tables []Table `json:"metadata" yaml:"metadata"`

	index map[string]int
}

// New builds a Schema from tables, dropping entries that cannot be drawn:
// tables without a name or with a name already taken, columns without a name or with
// a duplicate name, and foreign keys missing a column or target.
// Every drop is logged as a warning.
func New(ctx context.Context, tables []Table) *Schema {
	s := &Schema{
		Tables: make([]Table, 0, len(tables)),
		index:  make(map[string]int, len(tables)),
	}
	for i, t := range tables {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			log.Warn(ctx, "dropping table without a name", slog.F("index", i))
			continue
		}
		if _, ok := s.index[t.Name]; ok {
			log.Warn(ctx, "dropping duplicate table", slog.F("table", t.Name))
			continue
		}
		s.index[t.Name] = len(s.Tables)
		s.Tables = append(s.Tables, normalizeTable(ctx, t))
	}
	return s
}

func normalizeTable(ctx context.Context, t Table) Table {
	out := Table{
		Name:        t.Name,
		Columns:     make([]Column, 0, len(t.Columns)),
		PrimaryKey:  make([]string, 0, len(t.PrimaryKey)),
		ForeignKeys: make([]ForeignKey, 0, len(t.ForeignKeys)),
	}

	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			log.Warn(ctx, "dropping column without a name", slog.F("table", t.Name))
			continue
		}
		if _, ok := seen[c.Name]; ok {
			log.Warn(ctx, "dropping duplicate column", slog.F("table", t.Name), slog.F("column", c.Name))
			continue
		}
		seen[c.Name] = struct{}{}
		out.Columns = append(out.Columns, c)
	}

	pks := make(map[string]struct{}, len(t.PrimaryKey))
	for _, pk := range t.PrimaryKey {
		if _, ok := pks[pk]; ok || pk == "" {
			continue
		}
		pks[pk] = struct{}{}
		out.PrimaryKey = append(out.PrimaryKey, pk)
	}

	for _, fk := range t.ForeignKeys {
		if fk.SourceColumn == "" || fk.TargetTable == "" || fk.TargetColumn == "" {
			log.Warn(ctx, "dropping incomplete foreign key",
				slog.F("table", t.Name),
				slog.F("source_column", fk.SourceColumn),
				slog.F("target_table", fk.TargetTable),
				slog.F("target_column", fk.TargetColumn),
			)
			continue
		}
		out.ForeignKeys = append(out.ForeignKeys, fk)
	}
	return out
}

// Table returns the table named name.
func (s *Schema) Table(name string) (Table, bool) {
	if s == nil {
		return Table{}, false
	}
	if s.index == nil {
		for _, t := range s.Tables {
			if t.Name == name {
				return t, true
			}
		}
		return Table{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Table{}, false
	}
	return s.Tables[i], true
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Tables)
}

// TableNames returns the table names in diagram order.
func (s *Schema) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}
