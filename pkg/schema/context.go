package schema

import (
	"fmt"
	"strings"
)

// Domain selects which slice of the catalog is sent to the model.
type Domain string

const (
	DomainPatient   Domain = "patient"
	DomainFinancial Domain = "financial"
	DomainInventory Domain = "inventory"
	DomainGeneral   Domain = "general"
)

// Placeholder is returned when no schema context can be built.
const Placeholder = "[schema context unavailable]"

type domainSlice struct {
	keywords   []string
	maxTables  int
	maxColumns int // 0 means all columns
	title      string
}

var domainSlices = map[Domain]domainSlice{
	DomainPatient: {
		keywords:   []string{"pac", "pacient", "cit", "trat", "presu", "fact", "hist"},
		maxTables:  20,
		maxColumns: 20,
		title:      "PATIENT-RELATED SCHEMA",
	},
	DomainFinancial: {
		keywords:   []string{"fact", "pago", "cobr", "caja", "banco", "arq"},
		maxTables:  15,
		maxColumns: 20,
		title:      "FINANCIAL SCHEMA",
	},
	DomainInventory: {
		keywords:   []string{"almace", "stock", "prove", "pedid", "invent"},
		maxTables:  15,
		maxColumns: 20,
		title:      "INVENTORY SCHEMA",
	},
}

// CoreTables are the tables described for general questions.
var CoreTables = []string{
	"Pacientes", "Citas", "Tratamientos", "Presupuestos",
	"Facturas", "TColabos", "Centros", "Clientes",
	"Almace", "Historias", "Odontograma",
}

const coreColumnLimit = 10

var domainTriggers = []struct {
	domain Domain
	words  []string
}{
	{DomainPatient, []string{"pacient", "cita", "historial", "tratamiento", "patient", "appointment"}},
	{DomainFinancial, []string{"factura", "pago", "cobro", "deuda", "ingreso", "invoice", "payment"}},
	{DomainInventory, []string{"stock", "inventario", "material", "proveedor", "inventory", "supplier"}},
}

// InferDomain picks a domain from the wording of a question.
func InferDomain(text string) Domain {
	lower := strings.ToLower(text)
	for _, t := range domainTriggers {
		for _, w := range t.words {
			if strings.Contains(lower, w) {
				return t.domain
			}
		}
	}
	return DomainGeneral
}

// ContextFor renders the schema excerpt for domain. It never fails: an
// empty catalog or empty slice yields Placeholder.
func (c *Catalog) ContextFor(domain Domain) string {
	if c.IsEmpty() {
		return Placeholder
	}

	slice, ok := domainSlices[domain]
	if !ok {
		return c.coreContext()
	}

	tables := c.RelevantTables(slice.keywords)
	if len(tables) == 0 {
		return Placeholder
	}
	if len(tables) > slice.maxTables {
		tables = tables[:slice.maxTables]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n", slice.title)
	for _, t := range tables {
		cols := c.tables[t]
		if slice.maxColumns > 0 && len(cols) > slice.maxColumns {
			cols = cols[:slice.maxColumns]
		}
		fmt.Fprintf(&b, "\n%s: %s\n", t, strings.Join(cols, ", "))
	}
	return b.String()
}

func (c *Catalog) coreContext() string {
	var b strings.Builder
	b.WriteString("=== CORE TABLES ===\n")

	seen := make(map[string]bool)
	found := 0
	for _, core := range CoreTables {
		needle := strings.ToLower(core)
		for _, t := range c.tableNames {
			if seen[t] || !strings.Contains(strings.ToLower(t), needle) {
				continue
			}
			seen[t] = true
			found++
			cols := c.tables[t]
			more := 0
			if len(cols) > coreColumnLimit {
				more = len(cols) - coreColumnLimit
				cols = cols[:coreColumnLimit]
			}
			fmt.Fprintf(&b, "\n%s (%d columns): %s", t, len(c.tables[t]), strings.Join(cols, ", "))
			if more > 0 {
				fmt.Fprintf(&b, ", ... and %d more", more)
			}
			b.WriteByte('\n')
		}
	}
	if found == 0 {
		return Placeholder
	}
	return b.String()
}

// TableContext describes a single table, or Placeholder if it is unknown.
func (c *Catalog) TableContext(table string) string {
	cols, ok := c.tables[table]
	if !ok {
		return Placeholder
	}
	return fmt.Sprintf("Table: %s\nColumns: %s\n", table, strings.Join(cols, ", "))
}

// FullSummary lists every table with at most maxColumns columns each.
func (c *Catalog) FullSummary(maxColumns int) string {
	if c.IsEmpty() {
		return Placeholder
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SCHEMA - %d tables\n", len(c.tableNames))
	for _, t := range c.tableNames {
		cols := c.tables[t]
		shown := cols
		if maxColumns > 0 && len(shown) > maxColumns {
			shown = shown[:maxColumns]
		}
		fmt.Fprintf(&b, "\n%s (%d columns): %s", t, len(cols), strings.Join(shown, ", "))
		if len(shown) < len(cols) {
			fmt.Fprintf(&b, ", ... and %d more", len(cols)-len(shown))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
