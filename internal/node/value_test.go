package node

import (
	"testing"
	"time"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeValueRecognizedTypes(t *testing.T) {
	date := time.Date(2009, 3, 4, 10, 20, 30, 0, time.UTC)

	tests := []struct {
		name string
		typ  PropertyType
		in   Value
		want any
	}{
		{"boolean", TypeBoolean, BooleanValue(true), true},
		{"date", TypeDate, DateValue(date), date},
		{"decimal", TypeDecimal, NewValue("12.50"), 12.5},
		{"double", TypeDouble, DoubleValue(0.25), 0.25},
		{"long", TypeLong, LongValue(42), int64(42)},
		{"string", TypeString, StringValue("Ada"), "Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NativeValue(tt.in, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNativeValueRejectsOtherTypes(t *testing.T) {
	for _, typ := range []PropertyType{TypeUndefined, TypeBinary, TypeName, TypePath, TypeReference, TypeWeakReference, TypeURI} {
		t.Run(typ.String(), func(t *testing.T) {
			_, err := NativeValue(StringValue("x"), typ)
			require.Error(t, err)
			assert.True(t, crerr.IsUnsupportedType(err))
			assert.Contains(t, err.Error(), typ.String())
		})
	}
}

func TestNativeValueMalformedLexical(t *testing.T) {
	_, err := NativeValue(StringValue("forty-two"), TypeLong)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forty-two")
}

func TestValueOf(t *testing.T) {
	v, typ, err := ValueOf(7)
	require.NoError(t, err)
	assert.Equal(t, TypeLong, typ)
	assert.Equal(t, "7", v.String())

	v, typ, err = ValueOf("hello")
	require.NoError(t, err)
	assert.Equal(t, TypeString, typ)
	assert.Equal(t, "hello", v.String())

	_, _, err = ValueOf([]byte("raw"))
	assert.True(t, crerr.IsUnsupportedType(err))
}

func TestParsePropertyType(t *testing.T) {
	typ, err := ParsePropertyType("boolean")
	require.NoError(t, err)
	assert.Equal(t, TypeBoolean, typ)

	typ, err = ParsePropertyType("WeakReference")
	require.NoError(t, err)
	assert.Equal(t, TypeWeakReference, typ)

	_, err = ParsePropertyType("Blob")
	assert.Error(t, err)

	assert.Equal(t, "PropertyType(99)", PropertyType(99).String())
}

func TestDateValueSortsLexically(t *testing.T) {
	a := DateValue(time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC))
	b := DateValue(time.Date(2009, 1, 1, 0, 0, 0, 500_000_000, time.UTC))
	c := DateValue(time.Date(2009, 1, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600)))

	assert.Equal(t, "2009-01-01T00:00:00.000000000Z", a.String())
	assert.Less(t, a.String(), b.String())
	assert.Equal(t, a.String(), c.String())
}

func TestCanonicalize(t *testing.T) {
	v, err := Canonicalize(NewValue("2009-01-01T01:00:00+01:00"), TypeDate)
	require.NoError(t, err)
	assert.Equal(t, "2009-01-01T00:00:00.000000000Z", v.String())

	v, err = Canonicalize(NewValue("007"), TypeLong)
	require.NoError(t, err)
	assert.Equal(t, "7", v.String())

	v, err = Canonicalize(NewValue("1.50"), TypeDecimal)
	require.NoError(t, err)
	assert.Equal(t, "1.50", v.String())

	_, err = Canonicalize(NewValue("yes please"), TypeBoolean)
	assert.Error(t, err)

	v, err = Canonicalize(NewValue("anything"), TypeString)
	require.NoError(t, err)
	assert.Equal(t, "anything", v.String())
}
