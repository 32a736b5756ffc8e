package schema

import (
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassNameFromNodeType(t *testing.T) {
	tests := []struct {
		nodeType string
		want     string
	}{
		{"flow3:Blog_Post", "Blog.Post"},
		{"flow3:Person", "Person"},
		{"Blog_Domain_Model_Post", "Blog.Domain.Model.Post"},
	}
	for _, tt := range tests {
		t.Run(tt.nodeType, func(t *testing.T) {
			got, err := ClassNameFromNodeType(tt.nodeType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ClassNameFromNodeType("flow3:")
	assert.True(t, crerr.IsInvalidArgument(err))
}

func TestNodeTypeFromClassName(t *testing.T) {
	assert.Equal(t, "flow3:Blog_Post", NodeTypeFromClassName("flow3", "Blog.Post"))
	assert.Equal(t, "Person", NodeTypeFromClassName("", "Person"))
}

func TestCategory(t *testing.T) {
	assert.Equal(t, CategoryScalar, PropertyDef{"age", TypeInteger}.Category())
	assert.Equal(t, CategoryScalar, PropertyDef{"age", TypeInt}.Category())
	assert.Equal(t, CategoryScalar, PropertyDef{"born", TypeDateTime}.Category())
	assert.Equal(t, CategoryArray, PropertyDef{"tags", TypeArray}.Category())
	assert.Equal(t, CategoryObject, PropertyDef{"author", "Blog.Author"}.Category())
}

func TestRegistry(t *testing.T) {
	person := &ClassSchema{
		ClassName: "Person",
		Properties: []PropertyDef{
			{Name: "name", Type: TypeString},
			{Name: "age", Type: TypeInteger},
		},
	}
	r, err := NewRegistry(person)
	require.NoError(t, err)

	got, err := r.ClassSchema("Person")
	require.NoError(t, err)
	assert.Same(t, person, got)
	assert.Equal(t, "Person{name:string, age:integer}", got.String())

	_, err = r.ClassSchema("Robot")
	assert.True(t, crerr.IsNotFound(err))
	assert.Equal(t, []string{"Person"}, r.ClassNames())
}

func TestValidateRejectsDuplicates(t *testing.T) {
	s := &ClassSchema{
		ClassName: "Person",
		Properties: []PropertyDef{
			{Name: "name", Type: TypeString},
			{Name: "name", Type: TypeInteger},
		},
	}
	_, err := NewRegistry(s)
	assert.True(t, crerr.IsInvalidArgument(err))
}
