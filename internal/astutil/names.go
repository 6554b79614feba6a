package astutil

import (
	"regexp"
	"strings"
)

// Built-in scalar names. These are never renamed and no renamed entity may
// take one of them as its new name.
var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

func IsBuiltinScalar(name string) bool { return builtinScalars[name] }

var nameRe = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// CheckName reports whether name is a legal identifier for a user-defined
// entity. Names with the "__" prefix are reserved for introspection.
func CheckName(name string) error {
	if !nameRe.MatchString(name) {
		return &InvalidNameError{Name: name, Reason: "not a valid GraphQL identifier"}
	}
	if strings.HasPrefix(name, "__") {
		return &InvalidNameError{Name: name, Reason: "the \"__\" prefix is reserved for introspection"}
	}
	return nil
}
