package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawPort decodes a port written as an integer or a decimal string.
// Range checks happen in Validate.
type rawPort int

func parsePort(s string) (rawPort, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: must be an integer", s)
	}
	return rawPort(v), nil
}

func (p *rawPort) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		*p = rawPort(t)
		return nil
	case string:
		parsed, err := parsePort(t)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	default:
		return fmt.Errorf("invalid port %v: unexpected %T", v, v)
	}
}

func (p *rawPort) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid port at line %d: expected a scalar", node.Line)
	}
	parsed, err := parsePort(node.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *rawPort) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := parsePort(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
