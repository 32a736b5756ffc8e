package node

import (
	"fmt"
	"strings"
)

// PropertyType is the declared storage type of a property.
// The numbering follows the JCR PropertyType constants so values written by
// other JCR implementations keep their meaning.
type PropertyType int

const (
	TypeUndefined     PropertyType = 0
	TypeString        PropertyType = 1
	TypeBinary        PropertyType = 2
	TypeLong          PropertyType = 3
	TypeDouble        PropertyType = 4
	TypeDate          PropertyType = 5
	TypeBoolean       PropertyType = 6
	TypeName          PropertyType = 7
	TypePath          PropertyType = 8
	TypeReference     PropertyType = 9
	TypeWeakReference PropertyType = 10
	TypeURI           PropertyType = 11
	TypeDecimal       PropertyType = 12
)

var propertyTypeNames = map[PropertyType]string{
	TypeUndefined:     "Undefined",
	TypeString:        "String",
	TypeBinary:        "Binary",
	TypeLong:          "Long",
	TypeDouble:        "Double",
	TypeDate:          "Date",
	TypeBoolean:       "Boolean",
	TypeName:          "Name",
	TypePath:          "Path",
	TypeReference:     "Reference",
	TypeWeakReference: "WeakReference",
	TypeURI:           "URI",
	TypeDecimal:       "Decimal",
}

// String returns the JCR name of the type.
func (t PropertyType) String() string {
	if name, ok := propertyTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// ParsePropertyType resolves a type name case-insensitively.
func ParsePropertyType(name string) (PropertyType, error) {
	for t, n := range propertyTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return TypeUndefined, fmt.Errorf("unknown property type %q", name)
}
