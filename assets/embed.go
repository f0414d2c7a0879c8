// Package assets embeds the SQL migrations shipped with the binary.
package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed sql/*.sql
var FS embed.FS

// Migration is one schema script, applied in name order.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded scripts sorted by file name.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(FS, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := FS.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}
