package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogModel = `
class: "Blog.Post": properties: {
	title:  string
	author: "Blog.Person"
}
class: "Blog.Person": properties: {
	name: string
	age:  int
}
nodetype: "flow3:Content": {}
nodetype: "flow3:Blog_Post": supertypes: ["flow3:Content"]
`

func TestCompile(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(blogModel)
	require.NoError(t, v.Err())

	result, err := Compile(v)
	require.NoError(t, err)

	require.Len(t, result.Classes, 2)
	assert.Equal(t, "Blog.Post", result.Classes[0].ClassName)
	assert.Equal(t, "Blog.Person", result.Classes[1].ClassName)
	require.Len(t, result.NodeTypes, 2)
	assert.Empty(t, Validate(result))

	schemas, err := result.Schemas()
	require.NoError(t, err)
	assert.Equal(t, []string{"Blog.Person", "Blog.Post"}, schemas.ClassNames())

	types, err := result.NodeTypeManager("flow3")
	require.NoError(t, err)
	// Blog_Person comes from its class, Blog_Post keeps its declared supertype
	assert.Equal(t, []string{"flow3:Blog_Person", "flow3:Blog_Post", "flow3:Content"}, types.Names())
	assert.Equal(t, []string{"flow3:Blog_Post", "flow3:Content"}, types.SubTypeNames("flow3:Content"))
}

func TestCompile_ReportsClassName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`class: Page: properties: meta: { a: string }`)
	require.NoError(t, v.Err())

	_, err := Compile(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class Page")
}

func TestCompile_Empty(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)
	require.NoError(t, v.Err())

	result, err := Compile(v)
	require.NoError(t, err)
	assert.Empty(t, result.Classes)
	assert.Empty(t, result.NodeTypes)
}
