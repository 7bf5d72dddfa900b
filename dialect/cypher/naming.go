// Package cypher translates typed models and expressions into parameterized
// Cypher text. It contains the expression compiler, the clause builder, and
// the traversal pattern generator. Nothing in this package performs I/O.
package cypher

import "regexp"

// validIdentifierRe validates property and label identifiers interpolated
// into query text. Values never pass through here; they are always bound
// as parameters.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validIdentifier checks if the string is a legal Cypher identifier.
func validIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}
