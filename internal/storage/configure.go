package storage

import (
	"fmt"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/afoeder/typo3cr/internal/crerr"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Configure applies options to target by calling, for each option "fooBar",
// the method SetFooBar with the option value. Options without a matching
// setter are ignored, so backends can add options without changing a shared
// constructor. Options are applied in name order.
//
// A value that cannot be assigned or converted to the setter's parameter is
// an INVALID_ARGUMENT error. Setters may return an error, which is passed on.
func Configure(target any, options map[string]any) error {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	v := reflect.ValueOf(target)
	for _, name := range names {
		method := v.MethodByName(setterName(name))
		if !method.IsValid() {
			continue
		}
		mt := method.Type()
		if mt.NumIn() != 1 {
			continue
		}
		arg, err := convertOption(name, options[name], mt.In(0))
		if err != nil {
			return err
		}
		out := method.Call([]reflect.Value{arg})
		if len(out) > 0 && mt.Out(len(out)-1) == errorType {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return fmt.Errorf("option %s: %w", name, err)
			}
		}
	}
	return nil
}

func setterName(option string) string {
	r, size := utf8.DecodeRuneInString(option)
	if r == utf8.RuneError {
		return ""
	}
	return "Set" + string(unicode.ToUpper(r)) + option[size:]
}

func convertOption(name string, value any, want reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch want.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, crerr.InvalidArgument("option %s: nil is not a valid %s", name, want)
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if convertibleKinds(v.Kind(), want.Kind()) && v.Type().ConvertibleTo(want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, crerr.InvalidArgument("option %s: %T is not a valid %s", name, value, want)
}

// convertibleKinds allows numeric widening and named string types, but not
// the int-to-string conversion reflect would otherwise accept.
func convertibleKinds(from, to reflect.Kind) bool {
	return (numeric(from) && numeric(to)) || (from == reflect.String && to == reflect.String)
}

func numeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
