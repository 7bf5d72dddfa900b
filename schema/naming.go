package schema

import (
	"regexp"
	"strings"

	"github.com/syssam/neogm"
)

// Storage relationship tokens wrap a field name in a fixed prefix and
// suffix. The grammar is shared across sibling implementations of the
// engine and must not change.
const (
	// PropertyTokenPrefix is the fixed prefix of a private storage token.
	PropertyTokenPrefix = "__PROPERTY__"
	// PropertyTokenSuffix is the fixed suffix of a private storage token.
	PropertyTokenSuffix = "__"
)

// OrdinalProperty is the relationship property carrying an element's
// position within a stored collection.
const OrdinalProperty = "ordinal"

// fieldNameRe matches field names that encode into legal relationship
// tokens: a letter or underscore followed by letters, digits, or
// underscores.
var fieldNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// EncodeToken converts a field name into its private storage relationship
// token, e.g. "home" -> "__PROPERTY__home__".
func EncodeToken(field string) string {
	return PropertyTokenPrefix + field + PropertyTokenSuffix
}

// DecodeToken converts a private storage token back to the field name it
// was derived from. It is defined exactly on the output of EncodeToken;
// any other input fails with NamingError.
func DecodeToken(token string) (string, error) {
	if !IsPrivateToken(token) {
		return "", &neogm.NamingError{Token: token, Msg: "not a private storage token"}
	}
	field := token[len(PropertyTokenPrefix) : len(token)-len(PropertyTokenSuffix)]
	if !fieldNameRe.MatchString(field) {
		return "", &neogm.NamingError{Token: token, Msg: "embedded field name is not an identifier"}
	}
	return field, nil
}

// IsPrivateToken reports whether the token matches the private storage
// grammar: prefix + non-empty field name + suffix.
func IsPrivateToken(token string) bool {
	return strings.HasPrefix(token, PropertyTokenPrefix) &&
		strings.HasSuffix(token, PropertyTokenSuffix) &&
		len(token) > len(PropertyTokenPrefix)+len(PropertyTokenSuffix)
}

// ValidToken reports whether a relationship type name is legal in query
// text. Legal names start with an uppercase letter or underscore and
// contain only letters, digits, and underscores. Tokens produced by
// EncodeToken always validate.
func ValidToken(token string) bool {
	if token == "" {
		return false
	}
	first := token[0]
	if first != '_' && (first < 'A' || first > 'Z') {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
