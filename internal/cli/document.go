package cli

import (
	"fmt"

	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/networks/domain"
	"github.com/pendergraft/netprofile/internal/profile"
)

// loadDocument loads a document resolved against the process environment
// layered over the --dotenv files. An empty path means the configured one.
func loadDocument(path string) (*profile.Document, profile.Environment, error) {
	if path == "" {
		path = getDocumentPath()
	}
	env, err := profile.LoadEnvironment(dotenvFiles...)
	if err != nil {
		return nil, nil, fmt.Errorf("loading environment: %w", err)
	}
	doc, err := profile.Load(path, profile.WithEnvironment(env))
	if err != nil {
		return nil, nil, err
	}
	return doc, env, nil
}

// localService serves the configured document in process, the same way
// the server does.
func localService() (domain.Service, error) {
	doc, env, err := loadDocument("")
	if err != nil {
		return nil, err
	}
	return domain.NewService(doc, env, evm.NewChain(), domain.Options{}), nil
}

func lookupNetwork(doc *profile.Document, name string) (profile.Network, error) {
	n, ok := doc.Network(name)
	if !ok {
		return profile.Network{}, fmt.Errorf("%w: %q in %s", profile.ErrNetworkNotFound, name, doc.Source)
	}
	return n, nil
}
