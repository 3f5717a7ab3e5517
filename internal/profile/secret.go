package profile

import (
	"encoding/json"
	"log/slog"
	"os"
	"slices"
)

// Redacted replaces secret material in every rendering of a Secret.
const Redacted = "[redacted]"

// Secret is a template such as "${MNEMONIC_TEST}" resolved against an
// Environment at load time. Its resolved value is only available through
// Reveal; String, JSON, YAML and slog output show the template instead, or
// Redacted when the template carries no variable reference.
type Secret struct {
	template string
	vars     []string
	missing  []string
	value    string
}

// NewSecret expands template against env. Both ${NAME} and $NAME forms are
// recognised.
func NewSecret(template string, env Environment) Secret {
	s := Secret{template: template}
	s.value = os.Expand(template, func(name string) string {
		if !slices.Contains(s.vars, name) {
			s.vars = append(s.vars, name)
		}
		v, ok := env.Lookup(name)
		if !ok || v == "" {
			if !slices.Contains(s.missing, name) {
				s.missing = append(s.missing, name)
			}
			return ""
		}
		return v
	})
	slices.Sort(s.vars)
	slices.Sort(s.missing)
	return s
}

// Template returns the unexpanded template.
func (s Secret) Template() string { return s.template }

// IsZero reports whether no template was declared.
func (s Secret) IsZero() bool { return s.template == "" }

// IsLiteral reports whether the template references no variables, which
// means the secret material is written in the document itself.
func (s Secret) IsLiteral() bool { return s.template != "" && len(s.vars) == 0 }

// Variables returns the referenced environment variable names.
func (s Secret) Variables() []string { return slices.Clone(s.vars) }

// Missing returns the referenced variables that were unset or empty.
func (s Secret) Missing() []string { return slices.Clone(s.missing) }

// Resolved reports whether every referenced variable had a value.
func (s Secret) Resolved() bool { return !s.IsZero() && len(s.missing) == 0 }

// Reveal returns the resolved value.
func (s Secret) Reveal() string { return s.value }

// String never includes the resolved value.
func (s Secret) String() string {
	switch {
	case s.IsZero():
		return ""
	case s.IsLiteral():
		return Redacted
	default:
		return s.template
	}
}

// GoString keeps %#v from printing the struct fields.
func (s Secret) GoString() string { return "profile.Secret(" + s.String() + ")" }

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// MarshalYAML implements yaml.Marshaler.
func (s Secret) MarshalYAML() (any, error) { return s.String(), nil }

// MarshalText implements encoding.TextMarshaler.
func (s Secret) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
