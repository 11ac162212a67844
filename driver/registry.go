package driver

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	registryMu sync.Mutex
	backends   = make(map[string]API)
)

// Register makes a backend available under the given name, typically from the
// backend package's init (import the package for its side effect). It fails
// if the name is already taken.
func Register(name string, api API) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, found := backends[name]; found {
		return errors.Errorf("driver backend %q already registered", name)
	}
	backends[name] = api
	return nil
}

// MustRegister is Register panicking on error, for use in init functions.
func MustRegister(name string, api API) {
	if err := Register(name, api); err != nil {
		panic(err)
	}
}

// Lookup returns the backend registered under name.
func Lookup(name string) (API, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	api, found := backends[name]
	if !found {
		return nil, errors.Errorf("no driver backend registered as %q (known: %v)", name, names())
	}
	return api, nil
}

// Names returns the sorted names of all registered backends.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return names()
}

func names() []string {
	s := make([]string, 0, len(backends))
	for name := range backends {
		s = append(s, name)
	}
	sort.Strings(s)
	return s
}
