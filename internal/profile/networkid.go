package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard is the network id that matches any network.
const Wildcard = "*"

// NetworkID is a network identifier. It is written either as an integer,
// a decimal string, or "*" for any network.
type NetworkID struct {
	value    uint64
	wildcard bool
	set      bool
}

// NewNetworkID returns a concrete network id.
func NewNetworkID(v uint64) NetworkID {
	return NetworkID{value: v, set: true}
}

// AnyNetwork returns the wildcard network id.
func AnyNetwork() NetworkID {
	return NetworkID{wildcard: true, set: true}
}

// ParseNetworkID parses the textual form of a network id.
func ParseNetworkID(s string) (NetworkID, error) {
	s = strings.TrimSpace(s)
	if s == Wildcard {
		return AnyNetwork(), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NetworkID{}, fmt.Errorf("invalid network id %q: must be a non-negative integer or %q", s, Wildcard)
	}
	return NewNetworkID(v), nil
}

// IsSet reports whether the id was declared.
func (id NetworkID) IsSet() bool { return id.set }

// IsWildcard reports whether the id matches any network.
func (id NetworkID) IsWildcard() bool { return id.wildcard }

// Uint64 returns the numeric id. It is zero for the wildcard.
func (id NetworkID) Uint64() uint64 { return id.value }

// Matches reports whether a remote network id satisfies this one.
func (id NetworkID) Matches(remote uint64) bool {
	if !id.set {
		return false
	}
	return id.wildcard || id.value == remote
}

func (id NetworkID) String() string {
	switch {
	case !id.set:
		return ""
	case id.wildcard:
		return Wildcard
	default:
		return strconv.FormatUint(id.value, 10)
	}
}

// UnmarshalTOML accepts integers and strings.
func (id *NetworkID) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		if t < 0 {
			return fmt.Errorf("invalid network id %d: must be non-negative", t)
		}
		*id = NewNetworkID(uint64(t))
		return nil
	case string:
		parsed, err := ParseNetworkID(t)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("invalid network id %v: unexpected %T", v, v)
	}
}

// UnmarshalText parses the textual form.
func (id *NetworkID) UnmarshalText(text []byte) error {
	parsed, err := ParseNetworkID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText writes the textual form.
func (id NetworkID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalYAML accepts integer and string scalars.
func (id *NetworkID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid network id at line %d: expected a scalar", node.Line)
	}
	parsed, err := ParseNetworkID(node.Value)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalJSON accepts numbers and strings.
func (id *NetworkID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = NetworkID{}
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := ParseNetworkID(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON writes concrete ids as numbers and the wildcard as a string.
func (id NetworkID) MarshalJSON() ([]byte, error) {
	switch {
	case !id.set:
		return []byte("null"), nil
	case id.wildcard:
		return json.Marshal(Wildcard)
	default:
		return []byte(strconv.FormatUint(id.value, 10)), nil
	}
}

// MarshalYAML mirrors MarshalJSON.
func (id NetworkID) MarshalYAML() (any, error) {
	switch {
	case !id.set:
		return nil, nil
	case id.wildcard:
		return Wildcard, nil
	default:
		return id.value, nil
	}
}
