package market

import "fmt"

// Selection is the resolved primary/alternate provider pair.
type Selection struct {
	PrimaryName   string
	Primary       Provider
	AlternateName string
	Alternate     Provider // nil when no alternate is configured
}

// Select picks the configured default and alternate providers out of built.
// When no default is named and exactly one provider exists, that one is used.
func (c *Config) Select(built map[string]Provider) (Selection, error) {
	name := c.Default
	if name == "" {
		if len(built) != 1 {
			return Selection{}, fmt.Errorf("market config: default provider required when %d providers are defined", len(built))
		}
		for only := range built {
			name = only
		}
	}
	primary, ok := built[name]
	if !ok || primary == nil {
		return Selection{}, fmt.Errorf("market config: default provider %q not built", name)
	}
	sel := Selection{PrimaryName: name, Primary: primary}
	if c.Alternate != "" {
		alt, ok := built[c.Alternate]
		if !ok || alt == nil {
			return Selection{}, fmt.Errorf("market config: alternate provider %q not built", c.Alternate)
		}
		sel.AlternateName = c.Alternate
		sel.Alternate = alt
	}
	return sel, nil
}
