package erdsource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/erd/erdsource"
	"oss.terrastruct.com/erd/lib/log"
)

func TestFile(t *testing.T) {
	t.Parallel()
	ctx := log.WithTB(context.Background(), t, nil)

	dir := t.TempDir()
	fp := filepath.Join(dir, "shop.yaml")
	err := os.WriteFile(fp, []byte(`
metadata:
  - table_name: customers
    columns:
      - {column_name: id, data_type: int}
    primary_key: [id]
  - table_name: orders
    columns:
      - {column_name: id, data_type: int}
      - {column_name: customer_id, data_type: int}
    foreign_keys:
      - {source_column: customer_id, target_table: customers, target_column: id, relationship_type: "||--o{"}
`), 0600)
	require.NoError(t, err)

	var src erdsource.Source = erdsource.File{Path: fp}
	schema, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, schema.TableNames())

	_, err = erdsource.File{Path: filepath.Join(dir, "missing.json")}.Load(ctx)
	assert.ErrorContains(t, err, "failed to load")
	assert.ErrorIs(t, err, os.ErrNotExist)

	stdin := erdsource.File{Path: "-", ReadFile: func(string) ([]byte, error) {
		return []byte(`[{"table_name": "solo"}]`), nil
	}}
	schema, err = stdin.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, schema.Len())
}
