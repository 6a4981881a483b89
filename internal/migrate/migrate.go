// Package migrate applies versioned SQL migrations and records them in the
// schema_migrations ledger. Each migration is a pair of files named
// NNNN_name.up.sql and NNNN_name.down.sql.
package migrate

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}

	return sub
}

var (
	ErrInvalidPath = errors.New("invalid migration file path")
	ErrNotFound    = errors.New("migration file not found")
	ErrUnsupported = errors.New("only versioned NNNN_name.up.sql migrations can be run")
	ErrNoRollback  = errors.New("migration has no down script")
)

var fileName = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one forward/rollback script pair.
type Migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// Label is the human-readable identifier used in logs and API responses.
func (m Migration) Label() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

type parsedName struct {
	version   int64
	name      string
	direction string
}

func parseName(file string) (parsedName, bool) {
	match := fileName.FindStringSubmatch(file)
	if match == nil {
		return parsedName{}, false
	}

	version, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return parsedName{}, false
	}

	return parsedName{version: version, name: match[2], direction: match[3]}, true
}

// Load reads every versioned script at the root of fsys and returns the
// migrations ordered by version. Files that do not follow the naming scheme
// are ignored.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	byVersion := make(map[int64]*Migration)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		parsed, ok := parseName(entry.Name())
		if !ok {
			continue
		}

		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m, found := byVersion[parsed.version]
		if !found {
			m = &Migration{Version: parsed.version, Name: parsed.name}
			byVersion[parsed.version] = m
		}

		if m.Name != parsed.name {
			return nil, fmt.Errorf("version %d used by %q and %q", parsed.version, m.Name, parsed.name)
		}

		if parsed.direction == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))

	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up script", m.Label())
		}

		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Resolve maps a caller-supplied file path onto a known migration. The path
// is sandboxed to fsys: anything escaping it is rejected before touching disk.
func Resolve(fsys fs.FS, migrations []Migration, file string) (Migration, error) {
	if file == "" || strings.Contains(file, "..") || strings.Contains(file, `\`) {
		return Migration{}, ErrInvalidPath
	}

	name := path.Clean(strings.TrimPrefix(file, "./"))
	if !fs.ValidPath(name) {
		return Migration{}, ErrInvalidPath
	}

	if _, err := fs.Stat(fsys, name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Migration{}, ErrNotFound
		}

		return Migration{}, fmt.Errorf("checking %s: %w", name, err)
	}

	parsed, ok := parseName(path.Base(name))
	if !ok || parsed.direction != "up" {
		return Migration{}, ErrUnsupported
	}

	for _, m := range migrations {
		if m.Version == parsed.version {
			return m, nil
		}
	}

	return Migration{}, ErrNotFound
}

// pending returns the migrations not present in applied, in version order.
func pending(migrations []Migration, applied map[int64]bool) []Migration {
	var out []Migration

	for _, m := range migrations {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}

	return out
}

// rollbackOrder returns up to steps applied migrations, newest first.
func rollbackOrder(migrations []Migration, applied map[int64]bool, steps int) []Migration {
	var out []Migration

	for i := len(migrations) - 1; i >= 0 && len(out) < steps; i-- {
		if applied[migrations[i].Version] {
			out = append(out, migrations[i])
		}
	}

	return out
}
