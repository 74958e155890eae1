// Package catalog manages the database catalog (the set of known tables).
//
// EDUCATIONAL NOTES:
// ------------------
// Every database has a "catalog" that answers "what tables exist and where
// do they live?". PostgreSQL keeps it in system tables (pg_class...), SQLite
// in sqlite_master.
//
// csvdb's catalog is a plain text manifest, one table per line:
//
//   # comments and blank lines are ignored
//   students=students.csv
//   teachers=/srv/data/teachers.csv
//
// Relative paths are resolved against the manifest's own directory, so a
// database folder can be moved around as a unit.
//
// Besides the persistent tables listed in the manifest, the catalog can
// register temporary tables. They're used for ad-hoc queries straight
// against a CSV file (SELECT * FROM data/people.csv) and are never written
// to the manifest.

package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cabewaldrop/csvdb/internal/log"
	"github.com/cabewaldrop/csvdb/internal/sqlerr"
	"github.com/cabewaldrop/csvdb/internal/table"
)

// Catalog maps table names to open tables.
type Catalog struct {
	manifestPath string
	dir          string
	tables       map[string]*table.Table
	temp         map[string]bool
}

// Entry is one name=path manifest line.
type Entry struct {
	Name string
	Path string
}

// Open reads the manifest at manifestPath and loads every table it lists.
// A missing manifest is created empty.
func Open(manifestPath string) (*Catalog, error) {
	c := &Catalog{
		manifestPath: manifestPath,
		dir:          filepath.Dir(manifestPath),
		tables:       make(map[string]*table.Table),
		temp:         make(map[string]bool),
	}

	f, err := os.Open(manifestPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(manifestPath, nil, 0644); err != nil {
			return nil, sqlerr.IOf(err, "create manifest %s", manifestPath)
		}
		log.Info("created empty manifest %s", manifestPath)
		return c, nil
	}
	if err != nil {
		return nil, sqlerr.IOf(err, "open manifest %s", manifestPath)
	}
	defer f.Close()

	entries, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", manifestPath, err)
	}

	for _, e := range entries {
		if _, exists := c.tables[e.Name]; exists {
			return nil, sqlerr.Semanticf("manifest %s lists table %s twice", manifestPath, e.Name)
		}
		if _, err := c.load(e.Name, c.resolve(e.Path)); err != nil {
			return nil, err
		}
	}

	log.Info("loaded %d tables from %s", len(c.tables), manifestPath)
	return c, nil
}

// ParseManifest reads name=path lines, skipping blank lines and # comments.
func ParseManifest(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, path, ok := strings.Cut(line, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, sqlerr.Syntaxf("line %d: expected name=path, got %q", lineNo, line)
		}
		entries = append(entries, Entry{Name: name, Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, sqlerr.IOf(err, "read manifest")
	}
	return entries, nil
}

// ManifestPath returns the manifest file path.
func (c *Catalog) ManifestPath() string {
	return c.manifestPath
}

// resolve makes a manifest path absolute relative to the manifest's directory.
func (c *Catalog) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

func (c *Catalog) load(name, path string) (*table.Table, error) {
	tbl, err := table.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading table %s: %w", name, err)
	}
	c.tables[name] = tbl
	log.Debug("loaded table %s from %s (%d rows)", name, path, tbl.Len())
	return tbl, nil
}

// ListTables returns the registered table names, sorted.
func (c *Catalog) ListTables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetTable returns the table registered under name.
func (c *Catalog) GetTable(name string) (*table.Table, bool) {
	tbl, ok := c.tables[name]
	return tbl, ok
}

// IsTemp reports whether name is a temporary registration.
func (c *Catalog) IsTemp(name string) bool {
	return c.temp[name]
}

// ImportTable copies the CSV file at src next to the manifest as
// <name>_table.csv, loads it and records it in the manifest. A copy that
// fails to load is removed and the manifest is left alone.
//
// A source whose header already starts with the empty id placeholder is
// copied as is. Any other CSV is treated as plain data and gets row ids
// 0..n-1 added on the way in.
func (c *Catalog) ImportTable(name, src string) (*table.Table, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if _, exists := c.tables[name]; exists {
		return nil, sqlerr.Semanticf("table %s already exists", name)
	}
	if info, err := os.Stat(src); err != nil || info.IsDir() {
		return nil, sqlerr.NotFoundf("file %s does not exist", src)
	}

	destName := name + "_table.csv"
	dest := filepath.Join(c.dir, destName)
	if err := copyTableFile(src, dest); err != nil {
		return nil, err
	}

	// nothing is recorded until the copy loads cleanly
	tbl, err := table.Open(dest)
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("importing %s: %w", src, err)
	}
	if err := c.appendManifest(name, destName); err != nil {
		os.Remove(dest)
		return nil, err
	}

	c.tables[name] = tbl
	log.Info("imported %s as table %s (%d rows)", src, name, tbl.Len())
	return tbl, nil
}

// CreateTable writes an empty <name>_table.csv with the given headers next
// to the manifest and records it.
func (c *Catalog) CreateTable(name string, headers []string) (*table.Table, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if _, exists := c.tables[name]; exists {
		return nil, sqlerr.Semanticf("table %s already exists", name)
	}

	destName := name + "_table.csv"
	tbl, err := table.Create(filepath.Join(c.dir, destName), headers)
	if err != nil {
		return nil, err
	}
	if err := c.appendManifest(name, destName); err != nil {
		return nil, err
	}

	c.tables[name] = tbl
	log.Info("created table %s (%s)", name, strings.Join(headers, ", "))
	return tbl, nil
}

// appendManifest adds a name=path line, starting on a fresh line.
func (c *Catalog) appendManifest(name, path string) error {
	f, err := os.OpenFile(c.manifestPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return sqlerr.IOf(err, "open manifest %s", c.manifestPath)
	}
	defer f.Close()

	prefix := ""
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			prefix = "\n"
		}
	}

	if _, err := fmt.Fprintf(f, "%s%s=%s\n", prefix, name, path); err != nil {
		return sqlerr.IOf(err, "update manifest %s", c.manifestPath)
	}
	return nil
}

// CreateTempTable registers the table file at path under name without
// touching the manifest. Registering a name twice keeps the first table.
func (c *Catalog) CreateTempTable(path, name string) (*table.Table, error) {
	if tbl, ok := c.tables[name]; ok {
		return tbl, nil
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, sqlerr.NotFoundf("file %s does not exist", path)
	}

	tbl, err := c.load(name, path)
	if err != nil {
		return nil, err
	}
	c.temp[name] = true
	log.Debug("registered temp table %s", name)
	return tbl, nil
}

// FreeTable drops a temporary registration. Persistent tables are kept.
func (c *Catalog) FreeTable(name string) {
	if !c.temp[name] {
		return
	}
	delete(c.tables, name)
	delete(c.temp, name)
	log.Debug("released temp table %s", name)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, "=#\n\r/\\") || strings.TrimSpace(name) != name {
		return sqlerr.Semanticf("invalid table name %q", name)
	}
	return nil
}

// copyTableFile copies src to dest, adding an id column when src is plain
// CSV. It refuses to overwrite an existing file.
func copyTableFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return sqlerr.IOf(err, "open %s", src)
	}
	defer in.Close()

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return sqlerr.IOf(err, "read %s", src)
	}
	if len(records) == 0 {
		return sqlerr.Semanticf("%s has no header", src)
	}

	if records[0][0] != "" {
		records[0] = append([]string{""}, records[0]...)
		for i := 1; i < len(records); i++ {
			records[i] = append([]string{strconv.Itoa(i - 1)}, records[i]...)
		}
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return sqlerr.IOf(err, "create %s", dest)
	}
	w := csv.NewWriter(out)
	w.WriteAll(records)
	if err := w.Error(); err != nil {
		out.Close()
		os.Remove(dest)
		return sqlerr.IOf(err, "write %s", dest)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return sqlerr.IOf(err, "close %s", dest)
	}
	return nil
}
