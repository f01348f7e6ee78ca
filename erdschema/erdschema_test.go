package erdschema_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"oss.terrastruct.com/erd/erdschema"
	"oss.terrastruct.com/erd/lib/log"
)

func TestParseRelationship(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  string
		exp erdschema.Relationship
	}{
		{"OneToOne", erdschema.OneToOne},
		{"onetomany", erdschema.OneToMany},
		{"many_to_many", erdschema.ManyToMany},
		{"one-to-many", erdschema.OneToMany},
		{"||--||", erdschema.OneToOne},
		{"||--o{", erdschema.OneToMany},
		{"}o--o{", erdschema.ManyToMany},
		{"ManyToOne", erdschema.Unknown},
		{"", erdschema.Unknown},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.exp, erdschema.ParseRelationship(tc.in), tc.in)
	}
}

func TestTableKeys(t *testing.T) {
	t.Parallel()

	tbl := erdschema.Table{
		Name:       "orders",
		Columns:    []erdschema.Column{{Name: "id", DataType: "int"}, {Name: "customer_id", DataType: "int"}},
		PrimaryKey: []string{"id"},
		ForeignKeys: []erdschema.ForeignKey{
			{SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id", Relationship: erdschema.OneToMany},
		},
	}
	assert.True(t, tbl.IsPrimaryKey("id"))
	assert.False(t, tbl.IsPrimaryKey("customer_id"))
	assert.True(t, tbl.IsForeignKey("customer_id"))
	assert.False(t, tbl.IsForeignKey("id"))
	assert.Equal(t, 1, tbl.ColumnIndex("customer_id"))
	assert.Equal(t, -1, tbl.ColumnIndex("ghost"))
}

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		doc       string
		expTables []string
		expErr    string
	}{
		{
			name: "array",
			doc: `[
  {"table_name": "customers", "columns": [{"column_name": "id", "data_type": "int"}], "primary_key": ["id"], "foreign_keys": []},
  {"table_name": "orders", "columns": [{"column_name": "id", "data_type": "int"}, {"column_name": "customer_id", "data_type": "int"}], "primary_key": ["id"],
   "foreign_keys": [{"source_column": "customer_id", "target_table": "customers", "target_column": "id", "relationship_type": "OneToMany"}]}
]`,
			expTables: []string{"customers", "orders"},
		},
		{
			name:      "envelope",
			doc:       `{"metadata": [{"table_name": "a", "columns": []}, {"table_name": "b"}]}`,
			expTables: []string{"a", "b"},
		},
		{
			name: "yaml",
			doc: `tables:
  - table_name: users
    columns:
      - column_name: id
        data_type: uuid
    primary_key: [id]
  - table_name: posts
    columns:
      - column_name: author_id
        data_type: uuid
    foreign_keys:
      - source_column: author_id
        target_table: users
        target_column: id
        relationship_type: one_to_many
`,
			expTables: []string{"users", "posts"},
		},
		{
			name:      "yaml_list",
			doc:       "- table_name: a\n- table_name: b\n",
			expTables: []string{"a", "b"},
		},
		{
			name:      "empty",
			doc:       "  \n",
			expTables: []string{},
		},
		{
			name:      "drops_malformed",
			doc:       `[{"table_name": ""}, {"table_name": "a"}, {"table_name": "a"}, {"columns": []}, {"table_name": "b"}]`,
			expTables: []string{"a", "b"},
		},
		{
			name:   "unparseable_json",
			doc:    `[{"table_name": }]`,
			expErr: "failed to parse metadata",
		},
		{
			name:   "yaml_scalar",
			doc:    `hello`,
			expErr: "expected a list of tables at line 1",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := log.WithTB(context.Background(), t, nil)

			s, err := erdschema.Parse(ctx, []byte(tc.doc))
			if tc.expErr != "" {
				assert.ErrorContains(t, err, tc.expErr)
				return
			}
			assert.NoError(t, err)
			names := s.TableNames()
			if len(tc.expTables) == 0 {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tc.expTables, names)
			}
		})
	}
}

func TestParseYAMLRelationship(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	s, err := erdschema.Parse(ctx, []byte(`
- table_name: posts
  columns:
    - column_name: author_id
      data_type: uuid
  foreign_keys:
    - source_column: author_id
      target_table: users
      target_column: id
      relationship_type: "||--o{"
`))
	assert.NoError(t, err)
	posts, ok := s.Table("posts")
	assert.True(t, ok)
	assert.Equal(t, erdschema.OneToMany, posts.ForeignKeys[0].Relationship)
}

func TestNewNormalizes(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	s := erdschema.New(ctx, []erdschema.Table{{
		Name: "  orders ",
		Columns: []erdschema.Column{
			{Name: "id", DataType: "int"},
			{Name: "", DataType: "int"},
			{Name: "id", DataType: "text"},
			{Name: "customer_id", DataType: "int"},
		},
		PrimaryKey: []string{"id", "id", "missing"},
		ForeignKeys: []erdschema.ForeignKey{
			{SourceColumn: "customer_id", TargetTable: "customers", TargetColumn: "id"},
			{SourceColumn: "customer_id", TargetTable: "", TargetColumn: "id"},
		},
	}})

	orders, ok := s.Table("orders")
	assert.True(t, ok)
	assert.Equal(t, []erdschema.Column{{Name: "id", DataType: "int"}, {Name: "customer_id", DataType: "int"}}, orders.Columns)
	assert.Equal(t, []string{"id", "missing"}, orders.PrimaryKey)
	assert.Len(t, orders.ForeignKeys, 1)

	_, ok = s.Table("customers")
	assert.False(t, ok)
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	s := erdschema.New(ctx, []erdschema.Table{{
		Name:    "a",
		Columns: []erdschema.Column{{Name: "id", DataType: "int"}},
		ForeignKeys: []erdschema.ForeignKey{
			{SourceColumn: "id", TargetTable: "a", TargetColumn: "id", Relationship: erdschema.OneToOne},
		},
	}})
	b, err := json.Marshal(s)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"metadata":[{"table_name":"a","columns":[{"column_name":"id","data_type":"int"}],"primary_key":[],
"foreign_keys":[{"source_column":"id","target_table":"a","target_column":"id","relationship_type":"OneToOne"}]}]}`, string(b))
}
