package erdschema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"oss.terrastruct.com/xdefer"
)

// envelope is the object form of a metadata document. The API answers with
// "metadata", hand written files tend to use "tables".
type envelope struct {
	Metadata []Table `json:"metadata" yaml:"metadata"`
	Tables   []Table `json:"tables" yaml:"tables"`
}

func (e envelope) tables() []Table {
	if e.Metadata != nil {
		return e.Metadata
	}
	return e.Tables
}

// Parse reads a metadata document. JSON and YAML are both accepted, either as a list
// of tables or as an object with a "metadata" or "tables" list.
//
// Only a document that cannot be read at all is an error. Malformed entries are
// dropped as in New.
func Parse(ctx context.Context, data []byte) (_ *Schema, err error) {
	defer xdefer.Errorf(&err, "failed to parse metadata")

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return New(ctx, nil), nil
	}

	var tables []Table
	switch data[0] {
	case '[':
		err = json.Unmarshal(data, &tables)
	case '{':
		var e envelope
		err = json.Unmarshal(data, &e)
		tables = e.tables()
	default:
		tables, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	return New(ctx, tables), nil
}

func parseYAML(data []byte) ([]Table, error) {
	var doc yaml.Node
	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var tables []Table
		err = root.Decode(&tables)
		return tables, err
	case yaml.MappingNode:
		var e envelope
		err = root.Decode(&e)
		return e.tables(), err
	case yaml.ScalarNode:
		if root.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected a list of tables at line %d", root.Line)
}
