package erdsource

import (
	"oss.terrastruct.com/erd/erdschema"
)

const (
	MAX_JUNCTION_COLUMNS = 6
	MIN_JUNCTION_FKS     = 2
)

// IsJunction reports whether t exists only to link other tables: a small table whose
// primary key is made of at least two of its foreign key columns.
func IsJunction(t erdschema.Table) bool {
	if len(t.ForeignKeys) < MIN_JUNCTION_FKS || len(t.PrimaryKey) < MIN_JUNCTION_FKS || len(t.Columns) > MAX_JUNCTION_COLUMNS {
		return false
	}
	for _, fk := range t.ForeignKeys {
		if !t.IsPrimaryKey(fk.SourceColumn) {
			return false
		}
	}
	n := 0
	for _, pk := range t.PrimaryKey {
		if t.IsForeignKey(pk) {
			n++
		}
	}
	return n >= MIN_JUNCTION_FKS
}

// Classify sets the relationship of every foreign key that has none. Foreign keys of a
// junction table are many to many. A foreign key column that is unique on its own is
// one to one. Anything else is one to many.
//
// unique maps a table name to its columns covered by a single column unique constraint.
func Classify(tables []erdschema.Table, unique map[string]map[string]bool) []erdschema.Table {
	out := make([]erdschema.Table, len(tables))
	for i, t := range tables {
		junction := IsJunction(t)
		fks := make([]erdschema.ForeignKey, len(t.ForeignKeys))
		for j, fk := range t.ForeignKeys {
			if fk.Relationship == erdschema.Unknown {
				switch {
				case junction:
					fk.Relationship = erdschema.ManyToMany
				case unique[t.Name][fk.SourceColumn] || (len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == fk.SourceColumn):
					fk.Relationship = erdschema.OneToOne
				default:
					fk.Relationship = erdschema.OneToMany
				}
			}
			fks[j] = fk
		}
		t.ForeignKeys = fks
		out[i] = t
	}
	return out
}
