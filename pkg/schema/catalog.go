// Package schema holds the read-only table/column catalog used to build
// model prompts.
package schema

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/jinzhu/inflection"
)

// ColumnRef identifies one column of one table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Stats summarizes catalog size.
type Stats struct {
	Tables             int     `json:"total_tables"`
	Columns            int     `json:"total_columns"`
	AvgColumnsPerTable float64 `json:"avg_columns_per_table"`
	WidestTable        string  `json:"max_columns_table,omitempty"`
	WidestTableColumns int     `json:"max_columns,omitempty"`
}

// Catalog is an immutable snapshot of the database layout.
type Catalog struct {
	tables     map[string][]string
	tableNames []string // sorted
	allColumns []ColumnRef
}

// Empty returns a catalog with no tables.
func Empty() *Catalog {
	return &Catalog{tables: map[string][]string{}}
}

// Load reads a catalog from a file of "table;column" lines.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads "table;column" lines. Lines that do not split into exactly
// two non-empty parts are skipped.
func Parse(r io.Reader) (*Catalog, error) {
	c := Empty()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\r", ""))
		if line == "" {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) != 2 {
			continue
		}
		table := strings.TrimSpace(parts[0])
		column := strings.TrimSpace(parts[1])
		if table == "" || column == "" {
			continue
		}
		if _, ok := c.tables[table]; !ok {
			c.tableNames = append(c.tableNames, table)
		}
		c.tables[table] = append(c.tables[table], column)
		c.allColumns = append(c.allColumns, ColumnRef{Table: table, Column: column})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	sort.Strings(c.tableNames)
	return c, nil
}

// IsEmpty reports whether no tables were loaded.
func (c *Catalog) IsEmpty() bool {
	return c == nil || len(c.tableNames) == 0
}

// Tables returns all table names, sorted.
func (c *Catalog) Tables() []string {
	out := make([]string, len(c.tableNames))
	copy(out, c.tableNames)
	return out
}

// Columns returns the ordered columns of table, or nil if unknown.
func (c *Catalog) Columns(table string) []string {
	cols, ok := c.tables[table]
	if !ok {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// HasTable reports whether table exists (exact match).
func (c *Catalog) HasTable(table string) bool {
	_, ok := c.tables[table]
	return ok
}

// RelevantTables returns the sorted tables whose name contains any keyword,
// case-insensitively. Keywords also match through their singular and plural forms.
func (c *Catalog) RelevantTables(keywords []string) []string {
	needles := expandKeywords(keywords)
	if len(needles) == 0 {
		return nil
	}

	var out []string
	for _, table := range c.tableNames {
		lower := strings.ToLower(table)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				out = append(out, table)
				break
			}
		}
	}
	return out
}

// SearchColumns returns every column whose table or column name contains term.
func (c *Catalog) SearchColumns(term string) []ColumnRef {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var out []ColumnRef
	for _, ref := range c.allColumns {
		if strings.Contains(strings.ToLower(ref.Column), term) || strings.Contains(strings.ToLower(ref.Table), term) {
			out = append(out, ref)
		}
	}
	return out
}

// Stats returns table and column counts.
func (c *Catalog) Stats() Stats {
	s := Stats{Tables: len(c.tableNames), Columns: len(c.allColumns)}
	if s.Tables > 0 {
		s.AvgColumnsPerTable = float64(s.Columns) / float64(s.Tables)
	}
	for _, t := range c.tableNames {
		if n := len(c.tables[t]); n > s.WidestTableColumns {
			s.WidestTable = t
			s.WidestTableColumns = n
		}
	}
	return s
}

func expandKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		add(k)
		add(inflection.Singular(k))
		add(inflection.Plural(k))
	}
	return out
}

// Holder publishes the current catalog. Reloads swap the whole snapshot.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a holder serving c (or an empty catalog when c is nil).
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.Store(c)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Catalog {
	return h.current.Load()
}

// Store replaces the snapshot.
func (h *Holder) Store(c *Catalog) {
	if c == nil {
		c = Empty()
	}
	h.current.Store(c)
}

// Reload re-reads path and swaps the snapshot on success. On failure the
// previous snapshot is kept.
func (h *Holder) Reload(path string) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	h.Store(c)
	return nil
}
