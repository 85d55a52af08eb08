package elements

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"protonfusion/internal/errs"
)

// number accepts a JSON/YAML number or a numeric string. Fractions such as
// "1/2" (common for nuclear spin) are evaluated. Anything else is treated as
// absent so the property default applies.
type number struct {
	value float64
	set   bool
}

func (n *number) parse(s string) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		a, errA := strconv.ParseFloat(strings.TrimSpace(num), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if errA == nil && errB == nil && b != 0 {
			n.value, n.set = a/b, true
		}
		return
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		n.value, n.set = v, true
	}
}

func (n *number) UnmarshalJSON(data []byte) error {
	*n = number{}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		n.value, n.set = v, true
	case string:
		n.parse(v)
	}
	return nil
}

func (n *number) UnmarshalYAML(node *yaml.Node) error {
	*n = number{}
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return nil
	}
	n.parse(node.Value)
	return nil
}

func (n number) or(fallback float64) float64 {
	if n.set {
		return n.value
	}
	return fallback
}

type nmrEntry struct {
	Spin number `json:"spin" yaml:"spin"`
}

type entry struct {
	Name              string   `json:"name" yaml:"name"`
	Symbol            string   `json:"symbol" yaml:"symbol"`
	AtomicNumber      int      `json:"atomic_number" yaml:"atomic_number"`
	AtomicMass        number   `json:"atomic_mass" yaml:"atomic_mass"`
	Electronegativity number   `json:"electronegativity" yaml:"electronegativity"`
	NMRData           nmrEntry `json:"nmr_data" yaml:"nmr_data"`
}

func (e entry) property(key string) Property {
	symbol := e.Symbol
	if symbol == "" {
		symbol = key
	}
	return Property{
		Symbol:            symbol,
		Name:              e.Name,
		AtomicNumber:      e.AtomicNumber,
		AtomicMass:        e.AtomicMass.or(DefaultAtomicMass),
		NMRSpin:           e.NMRData.Spin.or(DefaultNMRSpin),
		Electronegativity: e.Electronegativity.or(DefaultElectronegativity),
	}
}

// DecodeJSON reads either an object of entries (keys kept in document order)
// or an array of entries.
func DecodeJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, errs.DataUnavailable("elements", fmt.Errorf("read table: %w", err))
	}

	var props []Property
	switch tok {
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, errs.DataUnavailable("elements", fmt.Errorf("read key: %w", err))
			}
			key, _ := keyTok.(string)

			var e entry
			if err := dec.Decode(&e); err != nil {
				return nil, errs.DataUnavailable("elements", fmt.Errorf("entry %q: %w", key, err))
			}
			props = append(props, e.property(key))
		}
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			var e entry
			if err := dec.Decode(&e); err != nil {
				return nil, errs.DataUnavailable("elements", fmt.Errorf("entry %d: %w", i, err))
			}
			props = append(props, e.property(strconv.Itoa(i)))
		}
	default:
		return nil, errs.DataUnavailable("elements", fmt.Errorf("unexpected token %v", tok))
	}

	return NewTable(props...)
}

// DecodeYAML reads a mapping or a sequence of entries; mapping order is kept.
func DecodeYAML(r io.Reader) (*Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.DataUnavailable("elements", fmt.Errorf("read table: %w", err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errs.DataUnavailable("elements", fmt.Errorf("empty document"))
	}

	root := doc.Content[0]
	var props []Property

	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			var e entry
			if err := root.Content[i+1].Decode(&e); err != nil {
				return nil, errs.DataUnavailable("elements", fmt.Errorf("entry %q: %w", key, err))
			}
			props = append(props, e.property(key))
		}
	case yaml.SequenceNode:
		for i, node := range root.Content {
			var e entry
			if err := node.Decode(&e); err != nil {
				return nil, errs.DataUnavailable("elements", fmt.Errorf("entry %d: %w", i, err))
			}
			props = append(props, e.property(strconv.Itoa(i)))
		}
	default:
		return nil, errs.DataUnavailable("elements", fmt.Errorf("unexpected node kind %v", root.Kind))
	}

	return NewTable(props...)
}
