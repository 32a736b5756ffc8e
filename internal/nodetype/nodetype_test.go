package nodetype

import (
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, name string, supers ...*NodeType) *NodeType {
	t.Helper()
	nt, err := New(name, supers...)
	require.NoError(t, err)
	return nt
}

func TestNodeTypeHasName(t *testing.T) {
	nt := mustNew(t, "TYPO3.TYPO3:Text")
	assert.Equal(t, "TYPO3.TYPO3:Text", nt.Name())

	_, err := New("")
	assert.True(t, crerr.IsInvalidArgument(err))
}

func TestNodeTypesCanHaveAnyNumberOfSuperTypes(t *testing.T) {
	base := mustNew(t, "TYPO3.TYPO3CR:Base")
	folder := mustNew(t, "TYPO3.TYPO3CR:Folder", base)
	hideable := mustNew(t, "TYPO3.TYPO3:HideableContent")
	page := mustNew(t, "TYPO3.TYPO3:Page", folder, hideable)

	assert.Equal(t, []*NodeType{folder, hideable}, page.DeclaredSuperTypes())
	assert.True(t, page.IsOfType("TYPO3.TYPO3:Page"))
	assert.True(t, page.IsOfType("TYPO3.TYPO3:HideableContent"))
	assert.True(t, page.IsOfType("TYPO3.TYPO3CR:Folder"))
	assert.True(t, page.IsOfType("TYPO3.TYPO3CR:Base"))
	assert.False(t, page.IsOfType("TYPO3.TYPO3CR:Exotic"))
}

func TestDeclaredSuperTypesIsACopy(t *testing.T) {
	base := mustNew(t, "Base")
	page := mustNew(t, "Page", base)

	supers := page.DeclaredSuperTypes()
	supers[0] = mustNew(t, "Other")

	assert.True(t, page.IsOfType("Base"))
}

func TestNilSuperTypeRejected(t *testing.T) {
	_, err := New("Page", nil)
	assert.True(t, crerr.IsInvalidArgument(err))
}

func TestManagerSubTypeNames(t *testing.T) {
	m := NewManager()
	content := mustNew(t, "flow3:Content")
	post := mustNew(t, "flow3:Blog_Post", content)
	page := mustNew(t, "flow3:Page", content)
	person := mustNew(t, "flow3:Person")

	for _, nt := range []*NodeType{content, post, page, person} {
		require.NoError(t, m.Register(nt))
	}

	assert.Equal(t, []string{"flow3:Blog_Post", "flow3:Content", "flow3:Page"}, m.SubTypeNames("flow3:Content"))
	assert.Equal(t, []string{"flow3:Person"}, m.SubTypeNames("flow3:Person"))
	assert.Equal(t, []string{"nt:unstructured"}, m.SubTypeNames("nt:unstructured"))

	got, err := m.NodeType("flow3:Page")
	require.NoError(t, err)
	assert.Same(t, page, got)

	_, err = m.NodeType("flow3:Missing")
	assert.True(t, crerr.IsNotFound(err))

	assert.True(t, crerr.IsInvalidArgument(m.Register(mustNew(t, "flow3:Page"))))
	assert.NoError(t, m.Register(page))
	assert.Len(t, m.Names(), 4)
}
