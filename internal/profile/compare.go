package profile

import (
	"slices"
	"strconv"
)

// Field is one named setting of a network profile in display form.
// Secret values are shown by template only.
type Field struct {
	Name  string
	Value string
}

// Fields flattens the profile into display fields in a stable order.
// Unset optional settings are omitted.
func (n Network) Fields() []Field {
	fields := []Field{{"kind", string(n.Kind())}}
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, Field{name, value})
		}
	}
	addInt := func(name string, v int64) {
		if v != 0 {
			add(name, strconv.FormatInt(v, 10))
		}
	}

	add("host", n.Host)
	addInt("port", int64(n.Port))
	add("network_id", n.NetworkID.String())
	if p := n.Provider; p != nil {
		add("provider.mnemonic", p.Mnemonic.String())
		add("provider.url", p.URL.String())
		addInt("provider.polling_interval", p.PollingInterval)
		add("provider.derivation_path", p.DerivationPath)
		addInt("provider.address_index", p.AddressIndex)
		addInt("provider.num_addresses", p.NumAddresses)
	}
	addInt("confirmations", n.Confirmations)
	addInt("timeout_blocks", n.TimeoutBlocks)
	if n.SkipDryRun {
		add("skip_dry_run", "true")
	}
	addInt("gas_price", n.GasPrice)
	return fields
}

// Conflict is a setting that differs between two documents.
type Conflict struct {
	Network string `json:"network,omitempty"`
	Field   string `json:"field"`
	Left    string `json:"left"`
	Right   string `json:"right"`
}

// Comparison is the result of Compare.
type Comparison struct {
	Shared    []string   `json:"shared"`
	OnlyLeft  []string   `json:"onlyLeft"`
	OnlyRight []string   `json:"onlyRight"`
	Conflicts []Conflict `json:"conflicts"`
}

// Consistent reports whether the documents agree wherever they overlap.
func (c *Comparison) Consistent() bool { return len(c.Conflicts) == 0 }

// Compare checks two documents for mutual consistency. Networks declared
// in only one of them are listed but are not conflicts.
func Compare(left, right *Document) *Comparison {
	c := &Comparison{
		Shared:    []string{},
		OnlyLeft:  []string{},
		OnlyRight: []string{},
		Conflicts: []Conflict{},
	}

	lv, rv := left.compilers.Solc.Version, right.compilers.Solc.Version
	if lv != rv {
		c.Conflicts = append(c.Conflicts, Conflict{Field: "compilers.solc.version", Left: lv, Right: rv})
	}

	for _, name := range left.NetworkNames() {
		rn, ok := right.networks[name]
		if !ok {
			c.OnlyLeft = append(c.OnlyLeft, name)
			continue
		}
		c.Shared = append(c.Shared, name)
		c.Conflicts = append(c.Conflicts, compareNetworks(left.networks[name], rn)...)
	}
	for _, name := range right.NetworkNames() {
		if _, ok := left.networks[name]; !ok {
			c.OnlyRight = append(c.OnlyRight, name)
		}
	}
	return c
}

func compareNetworks(left, right Network) []Conflict {
	lf, rf := fieldMap(left.Fields()), fieldMap(right.Fields())
	var names []string
	for k := range lf {
		names = append(names, k)
	}
	for k := range rf {
		if _, ok := lf[k]; !ok {
			names = append(names, k)
		}
	}
	slices.Sort(names)

	var out []Conflict
	for _, f := range names {
		if lf[f] != rf[f] {
			out = append(out, Conflict{Network: left.Name, Field: f, Left: lf[f], Right: rf[f]})
		}
	}
	return out
}

func fieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
