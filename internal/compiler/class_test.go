package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afoeder/typo3cr/internal/schema"
)

func TestCompileClassBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		class: "Blog.Post": properties: {
			title:     string
			rating:    int
			score:     number
			published: bool
			tags: [...string]
			created: "DateTime"
			author:  "Blog.Person"
		}
	`)
	require.NoError(t, v.Err())

	cs, err := CompileClass(v.LookupPath(cue.MakePath(cue.Str("class"), cue.Str("Blog.Post"))))
	require.NoError(t, err)

	assert.Equal(t, "Blog.Post", cs.ClassName)
	assert.Equal(t, []schema.PropertyDef{
		{Name: "title", Type: schema.TypeString},
		{Name: "rating", Type: schema.TypeInteger},
		{Name: "score", Type: schema.TypeFloat},
		{Name: "published", Type: schema.TypeBoolean},
		{Name: "tags", Type: schema.TypeArray},
		{Name: "created", Type: schema.TypeDateTime},
		{Name: "author", Type: "Blog.Person"},
	}, cs.Properties)
}

func TestCompileClassWithoutProperties(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`class: Marker: {}`)
	require.NoError(t, v.Err())

	cs, err := CompileClass(v.LookupPath(cue.ParsePath("class.Marker")))
	require.NoError(t, err)
	assert.Equal(t, "Marker", cs.ClassName)
	assert.Empty(t, cs.Properties)
}

func TestCompileClassRejectsInlineStruct(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		class: Page: properties: {
			meta: { author: string }
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileClass(v.LookupPath(cue.ParsePath("class.Page")))
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "type", compileErr.Field)
	assert.Contains(t, compileErr.Message, "inline structs")
	assert.True(t, compileErr.Pos.IsValid())
}

func TestCompileClassRejectsEmptyTypeName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`class: Page: properties: title: ""`)
	require.NoError(t, v.Err())

	_, err := CompileClass(v.LookupPath(cue.ParsePath("class.Page")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")
}
