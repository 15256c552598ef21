package sqldb

import (
	"fmt"
	"sort"
)

// ClientFactory is a callback that constructs a Client from Conf.
// It is registered with RegisterFactory and called by sqldb.New.
type ClientFactory func(conf *Conf) (Client, error)

var registry = map[string]ClientFactory{}

func RegisterFactory(dbType string, factory ClientFactory) {
	registry[dbType] = factory
}

// New builds an uninitialized client for conf.Type
func New(conf *Conf) (Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("nil sql database conf")
	}
	factory, ok := registry[conf.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %q (registered: %v)", conf.Type, RegisteredTypes())
	}
	return factory(conf)
}

func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
