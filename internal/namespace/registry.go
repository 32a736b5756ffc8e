// Package namespace maps name prefixes to namespace URIs.
package namespace

import (
	"sort"
	"strings"

	"github.com/afoeder/typo3cr/internal/crerr"
)

// Builtin namespaces registered in every Registry.
var builtin = map[string]string{
	"jcr":   "http://www.jcp.org/jcr/1.0",
	"nt":    "http://www.jcp.org/jcr/nt/1.0",
	"mix":   "http://www.jcp.org/jcr/mix/1.0",
	"xml":   "http://www.w3.org/XML/1998/namespace",
	"flow3": "http://forge.typo3.org/namespaces/flow3",
}

// PersistencePrefix is the prefix under which mapped properties and proxy
// entries are stored.
const PersistencePrefix = "flow3"

// Registry resolves prefixes and URIs in both directions.
// It is not safe for concurrent mutation.
type Registry struct {
	uris     map[string]string // prefix -> uri
	prefixes map[string]string // uri -> prefix

	persistencePrefix string
}

// NewRegistry creates a registry holding the builtin namespaces.
func NewRegistry() *Registry {
	r := &Registry{
		uris:              make(map[string]string),
		prefixes:          make(map[string]string),
		persistencePrefix: PersistencePrefix,
	}
	for prefix, uri := range builtin {
		r.uris[prefix] = uri
		r.prefixes[uri] = prefix
	}
	return r
}

// Register binds prefix to uri. Builtin prefixes cannot be remapped.
func (r *Registry) Register(prefix, uri string) error {
	if prefix == "" || uri == "" {
		return crerr.InvalidArgument("namespace prefix and uri must not be empty")
	}
	if strings.Contains(prefix, ":") {
		return crerr.InvalidArgument("namespace prefix %q must not contain ':'", prefix)
	}
	if existing, ok := builtin[prefix]; ok && existing != uri {
		return crerr.InvalidArgument("builtin prefix %q cannot be remapped", prefix)
	}
	if old, ok := r.uris[prefix]; ok {
		delete(r.prefixes, old)
	}
	r.uris[prefix] = uri
	r.prefixes[uri] = prefix
	return nil
}

// URI returns the namespace URI for prefix.
func (r *Registry) URI(prefix string) (string, bool) {
	uri, ok := r.uris[prefix]
	return uri, ok
}

// Prefix returns the prefix bound to uri.
func (r *Registry) Prefix(uri string) (string, bool) {
	prefix, ok := r.prefixes[uri]
	return prefix, ok
}

// Prefixes returns all registered prefixes, sorted.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.uris))
	for p := range r.uris {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PersistencePrefix returns the prefix used for mapped properties and proxy entries.
func (r *Registry) PersistencePrefix() string {
	return r.persistencePrefix
}

// SetPersistencePrefix changes the persistence prefix. The prefix must be registered.
func (r *Registry) SetPersistencePrefix(prefix string) error {
	if _, ok := r.uris[prefix]; !ok {
		return crerr.InvalidArgument("namespace prefix %q is not registered", prefix)
	}
	r.persistencePrefix = prefix
	return nil
}

// StripPrefix returns the local part of name when it lies in the namespace
// of prefix.
func StripPrefix(name, prefix string) (string, bool) {
	local, ok := strings.CutPrefix(name, prefix+":")
	if !ok || local == "" {
		return "", false
	}
	return local, true
}
