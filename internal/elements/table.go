// Package elements loads the element property table that modulates the
// standard transform. Key order is significant: pixels pick an element by
// position, so the table keeps the order of its source document.
package elements

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"protonfusion/internal/errs"
)

const (
	DefaultAtomicMass        = 1.0
	DefaultNMRSpin           = 1.0
	DefaultElectronegativity = 2.0
)

type Property struct {
	Symbol            string
	Name              string
	AtomicNumber      int
	AtomicMass        float64
	NMRSpin           float64
	Electronegativity float64
}

// Table is read-only after construction and safe to share between
// concurrent pipeline runs.
type Table struct {
	props    []Property
	bySymbol map[string]int
}

func NewTable(props ...Property) (*Table, error) {
	if len(props) == 0 {
		return nil, errs.DataUnavailable("elements", fmt.Errorf("table is empty"))
	}

	t := &Table{
		props:    make([]Property, 0, len(props)),
		bySymbol: make(map[string]int, len(props)),
	}

	for i, p := range props {
		if p.Symbol == "" {
			return nil, errs.DataUnavailable("elements", fmt.Errorf("entry %d has no symbol", i))
		}
		if _, dup := t.bySymbol[p.Symbol]; dup {
			return nil, errs.DataUnavailable("elements", fmt.Errorf("duplicate symbol %q", p.Symbol))
		}
		if p.AtomicMass <= 0 {
			return nil, errs.DataUnavailable("elements",
				fmt.Errorf("symbol %q has non-positive atomic mass %v", p.Symbol, p.AtomicMass))
		}
		if p.NMRSpin < 0 {
			return nil, errs.DataUnavailable("elements",
				fmt.Errorf("symbol %q has negative spin %v", p.Symbol, p.NMRSpin))
		}

		t.bySymbol[p.Symbol] = len(t.props)
		t.props = append(t.props, p)
	}

	return t, nil
}

// Load reads a table from disk. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.DataUnavailable("elements", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(f)
	default:
		return DecodeJSON(f)
	}
}

func (t *Table) Len() int {
	return len(t.props)
}

// Get resolves index modulo the table size, so every index maps to an entry.
func (t *Table) Get(index int) Property {
	n := len(t.props)
	i := index % n
	if i < 0 {
		i += n
	}
	return t.props[i]
}

func (t *Table) Lookup(symbol string) (Property, bool) {
	i, ok := t.bySymbol[symbol]
	if !ok {
		return Property{}, false
	}
	return t.props[i], true
}

func (t *Table) Symbols() []string {
	out := make([]string, len(t.props))
	for i, p := range t.props {
		out[i] = p.Symbol
	}
	return out
}

// Signature renders the element at index as "<symbol> — <name>".
func (t *Table) Signature(index int) string {
	p := t.Get(index)
	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	return p.Symbol + " — " + name
}
