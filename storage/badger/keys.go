package badger

import (
	"bytes"
	"strings"
)

// Records live under "idxrec:{namespace}\x00{id}". The NUL separator keeps
// one namespace's prefix from matching another that extends it.
const (
	recordPrefix = "idxrec:"
	nsSeparator  = "\x00"
)

// makeRecordKey generates the key of a record.
func makeRecordKey(namespace, id string) []byte {
	var sb strings.Builder
	sb.Grow(len(recordPrefix) + len(namespace) + len(nsSeparator) + len(id))
	sb.WriteString(recordPrefix)
	sb.WriteString(namespace)
	sb.WriteString(nsSeparator)
	sb.WriteString(id)
	return []byte(sb.String())
}

// makeNamespacePrefix generates the prefix of every record in namespace.
func makeNamespacePrefix(namespace string) []byte {
	return []byte(recordPrefix + namespace + nsSeparator)
}

// namespaceFromKey extracts the namespace of a record key.
func namespaceFromKey(key []byte) (string, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(recordPrefix))
	if !ok {
		return "", false
	}
	ns, _, ok := bytes.Cut(rest, []byte(nsSeparator))
	if !ok {
		return "", false
	}
	return string(ns), true
}
