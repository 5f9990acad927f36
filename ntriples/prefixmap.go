package ntriples

import (
	"strings"
	"unicode/utf8"

	"github.com/lakesuperior/lsup-store/term"
)

// PrefixMap is a one-way namespace->prefix mapping an Encoder can use
// to shrink long IRIs in its output for readability. There is no Resolve
// side, since this package only decodes plain N-Triples, which never has
// prefixed names to resolve.
type PrefixMap struct {
	ns2prefix map[term.IRI]string
	Base      term.IRI
}

// NewPrefixMap returns an empty PrefixMap.
func NewPrefixMap() *PrefixMap {
	return &PrefixMap{ns2prefix: map[term.IRI]string{}}
}

// Set registers prefix for namespace ns.
func (p *PrefixMap) Set(prefix string, ns term.IRI) {
	p.ns2prefix[ns] = prefix
}

// Shrink renders u as "prefix:local" if a registered namespace matches,
// falling back to the angle-bracketed full IRI otherwise.
func (p *PrefixMap) Shrink(u term.IRI) string {
	if p.Base != "" && strings.HasPrefix(string(u), string(p.Base)) {
		return "<" + strings.TrimPrefix(string(u), string(p.Base)) + ">"
	}
	ns, local := splitNamespace(string(u))
	if prefix, ok := p.ns2prefix[term.IRI(ns)]; ok {
		return prefix + ":" + local
	}
	return "<" + string(u) + ">"
}

// splitNamespace splits uri at its last '/' or '#', inclusive of that
// character in the namespace half.
func splitNamespace(uri string) (ns, local string) {
	i := len(uri)
	for i > 0 {
		r, w := utf8.DecodeLastRuneInString(uri[:i])
		if r == '/' || r == '#' {
			return uri[:i], uri[i:]
		}
		i -= w
	}
	return uri, uri
}
