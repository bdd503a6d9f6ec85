package jukebox

import (
	"fmt"
	"sort"
)

// Method registry. Methods register themselves from an init function with a
// priority; requesting an empty name yields the registered method with the
// highest priority.

type methodEntry struct {
	name     string
	priority int
	create   func() Method
}

var methodRegistry = map[string]methodEntry{}

// registerMethod adds a method factory under the given name
func registerMethod(name string, priority int, create func() Method) {
	methodRegistry[name] = methodEntry{name: name, priority: priority, create: create}
}

// newMethod instantiates the named method, or the default (highest
// priority) method when name is empty. It returns the instantiated method
// and its resolved name.
func newMethod(name string) (Method, string, error) {
	if name != "" {
		entry, ok := methodRegistry[name]
		if !ok {
			return nil, "", fmt.Errorf("%w: unknown method %q", ErrInvalidArgument, name)
		}
		return entry.create(), entry.name, nil
	}

	best := methodEntry{priority: -1}
	for _, entry := range methodRegistry {
		if entry.priority > best.priority {
			best = entry
		}
	}
	if best.create == nil {
		return nil, "", fmt.Errorf("%w: no methods registered", ErrInvalidArgument)
	}
	return best.create(), best.name, nil
}

// ListMethods returns the names of all registered methods, comma-separated
func ListMethods() string {
	names := make([]string, 0, len(methodRegistry))
	for name := range methodRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ","
		}
		out += name
	}
	return out
}
