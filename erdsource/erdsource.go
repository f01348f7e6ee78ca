// Package erdsource loads diagram metadata from a document or a live database.
package erdsource

import (
	"context"
	"os"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/erd/erdschema"
)

type Source interface {
	Load(ctx context.Context) (*erdschema.Schema, error)
}

// File reads a JSON or YAML metadata document.
type File struct {
	Path string
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

func (f File) Load(ctx context.Context) (_ *erdschema.Schema, err error) {
	defer xdefer.Errorf(&err, "failed to load %s", f.Path)

	read := f.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(f.Path)
	if err != nil {
		return nil, err
	}
	return erdschema.Parse(ctx, data)
}
