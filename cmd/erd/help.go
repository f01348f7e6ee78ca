package main

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/erd/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `Usage:
  %[1]s [--watch=false] [--theme=dark] metadata.json [diagram.svg]
  %[1]s --dsn postgresql://user@host:5432/db [--schema=public] [--tables=a,b] [diagram.svg]

%[1]s lays out the tables of metadata.json on a grid and renders them with their
foreign keys to diagram.svg. Metadata may be JSON or YAML.
Use - to have %[1]s read from stdin or write to stdout.

Flags:
%[2]s

Subcommands:
  %[1]s schemas --dsn URL - Lists the schemas of a database
  %[1]s tables --dsn URL [--schema=public] - Lists the tables of a schema
  %[1]s test-connection --dsn URL - Checks that the database can be reached
`, filepath.Base(ms.Name), ms.Opts.Help())
}
