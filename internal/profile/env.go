package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment resolves variable references in secrets.
type Environment interface {
	Lookup(name string) (string, bool)
}

// MapEnvironment is an Environment backed by a plain map.
type MapEnvironment map[string]string

// Lookup implements Environment.
func (m MapEnvironment) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EmptyEnvironment resolves nothing. Documents parsed with it keep every
// secret unresolved.
var EmptyEnvironment Environment = MapEnvironment{}

// ProcessEnvironment reads the process environment.
type ProcessEnvironment struct{}

// Lookup implements Environment.
func (ProcessEnvironment) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// LoadEnvironment layers the process environment over the given dotenv
// files. Earlier files win over later ones and the process environment wins
// over all of them. Missing files are skipped.
func LoadEnvironment(dotenvPaths ...string) (Environment, error) {
	merged := MapEnvironment{}
	for i := len(dotenvPaths) - 1; i >= 0; i-- {
		path := dotenvPaths[i]
		if path == "" {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			merged[k] = v
		}
	}
	return merged, nil
}
