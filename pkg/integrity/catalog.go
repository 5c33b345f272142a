// Package integrity runs the data-quality check catalog against the
// practice database.
package integrity

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/adapters/datasource"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

//go:embed checks.yaml
var defaultCatalog []byte

// Params are substituted into check SQL and descriptions.
type Params struct {
	InactivityMonths int
	FutureYears      int
}

// DefaultParams matches the clinic's reporting windows.
func DefaultParams() Params {
	return Params{InactivityMonths: 6, FutureYears: 2}
}

// Catalog is the versioned list of check definitions.
type Catalog struct {
	Version string     `yaml:"version"`
	Checks  []CheckDef `yaml:"checks"`
}

// CheckDef is one entry of the catalog file.
type CheckDef struct {
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"`
	Severity    models.Severity   `yaml:"severity"`
	Threshold   int64             `yaml:"threshold"`
	Description string            `yaml:"description"`
	Orphan      *OrphanRef        `yaml:"orphan,omitempty"`
	SQL         map[string]string `yaml:"sql,omitempty"`
}

// OrphanRef names a child foreign key and the parent key it must match.
type OrphanRef struct {
	ChildTable   string `yaml:"child_table"`
	ChildColumn  string `yaml:"child_column"`
	ParentTable  string `yaml:"parent_table"`
	ParentColumn string `yaml:"parent_column"`
}

// Check is a compiled, ready to run check.
type Check struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Severity    models.Severity `json:"severity"`
	Threshold   int64           `json:"threshold"`
	Description string          `json:"description"`
	SQL         string          `json:"sql"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file; an empty path selects the embedded one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read check catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse check catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every definition for a usable shape.
func (c *Catalog) Validate() error {
	if len(c.Checks) == 0 {
		return fmt.Errorf("check catalog is empty")
	}

	seen := make(map[string]bool, len(c.Checks))
	for i := range c.Checks {
		def := &c.Checks[i]
		name := def.DisplayName()
		if name == "" {
			return fmt.Errorf("check %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("duplicate check %q", name)
		}
		seen[name] = true

		switch def.Severity {
		case models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
		default:
			return fmt.Errorf("check %q: invalid severity %q", name, def.Severity)
		}
		if def.Threshold < 0 {
			return fmt.Errorf("check %q: threshold must not be negative", name)
		}

		switch def.Kind {
		case models.CategoryOrphan:
			o := def.Orphan
			if o == nil || o.ChildTable == "" || o.ChildColumn == "" || o.ParentTable == "" || o.ParentColumn == "" {
				return fmt.Errorf("check %q: orphan checks need child and parent table and column", name)
			}
		case models.CategoryConsistency, models.CategoryBusinessRule:
			if len(def.SQL) == 0 {
				return fmt.Errorf("check %q: sql is required", name)
			}
		default:
			return fmt.Errorf("check %q: unknown kind %q", name, def.Kind)
		}
	}
	return nil
}

// DisplayName is the explicit name, or "<Parent> in <Child>" for orphan checks.
func (d *CheckDef) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Orphan != nil {
		return fmt.Sprintf("%s in %s", d.Orphan.ParentTable, d.Orphan.ChildTable)
	}
	return ""
}

// Compile renders every check for dialect. A check without SQL for the
// dialect (and no default) is an error.
func (c *Catalog) Compile(dialect datasource.Dialect, params Params) ([]Check, error) {
	checks := make([]Check, 0, len(c.Checks))
	for i := range c.Checks {
		def := &c.Checks[i]
		name := def.DisplayName()

		var (
			query string
			err   error
		)
		if def.Kind == models.CategoryOrphan {
			query = orphanSQL(dialect, def.Orphan)
		} else {
			tmpl, ok := def.SQL[dialect.Name()]
			if !ok {
				tmpl, ok = def.SQL["default"]
			}
			if !ok {
				return nil, fmt.Errorf("check %q has no SQL for dialect %s", name, dialect.Name())
			}
			if query, err = render(name, tmpl, params); err != nil {
				return nil, err
			}
		}

		desc, err := render(name, def.Description, params)
		if err != nil {
			return nil, err
		}

		checks = append(checks, Check{
			Name:        name,
			Category:    def.Kind,
			Severity:    def.Severity,
			Threshold:   def.Threshold,
			Description: desc,
			SQL:         query,
		})
	}
	return checks, nil
}

// orphanSQL counts child rows whose non-null key has no parent row.
func orphanSQL(d datasource.Dialect, o *OrphanRef) string {
	q := d.QuoteIdentifier
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
		q(o.ChildTable), q(o.ChildColumn), q(o.ParentTable), q(o.ParentColumn), q(o.ChildColumn))
}

func render(name, text string, params Params) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("check %q: parse template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("check %q: render template: %w", name, err)
	}
	return buf.String(), nil
}
