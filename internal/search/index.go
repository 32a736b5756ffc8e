package search

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
)

// noParent marks root level documents.
const noParent = -1

// property is an indexed property value in canonical form.
type property struct {
	typ   node.PropertyType
	value node.Value
}

// document is one indexed node. Documents are numbered in the order they are
// indexed, which is document order.
type document struct {
	identifier  string
	parent      int
	localName   string
	primaryType string
	properties  map[string]property
}

// index holds the documents of one workspace and their postings.
type index struct {
	docs []document
	ids  map[string]uint32

	all        *roaring.Bitmap
	byType     map[string]*roaring.Bitmap
	byProperty map[string]*roaring.Bitmap
	byValue    map[string]map[string]*roaring.Bitmap // property -> lexical value -> docs
}

func newIndex() *index {
	return &index{
		ids:        make(map[string]uint32),
		all:        roaring.New(),
		byType:     make(map[string]*roaring.Bitmap),
		byProperty: make(map[string]*roaring.Bitmap),
		byValue:    make(map[string]map[string]*roaring.Bitmap),
	}
}

// add indexes the subtree n below the document parent. The subtree is checked
// as a whole before anything is indexed.
func (ix *index) add(parent int, n *node.Node) error {
	base := len(ix.docs)
	var pending []document
	seen := make(map[string]bool)

	var collect func(parent int, n *node.Node) error
	collect = func(parent int, n *node.Node) error {
		if n.Identifier == "" {
			return crerr.InvalidArgument("node %q of type %s has no identifier", n.Name, n.PrimaryType)
		}
		if _, ok := ix.ids[n.Identifier]; ok || seen[n.Identifier] {
			return crerr.New(crerr.CodeDuplicateIdentifier, "node %s is already indexed", n.Identifier).
				WithDetail("identifier", n.Identifier)
		}
		seen[n.Identifier] = true

		_, local := node.SplitName(node.NormalizeName(n.Name))
		doc := document{
			identifier:  n.Identifier,
			parent:      parent,
			localName:   local,
			primaryType: n.PrimaryType,
			properties:  make(map[string]property, len(n.Properties)),
		}
		for _, p := range n.Properties {
			v, err := node.Canonicalize(p.Value, p.Type)
			if err != nil {
				return crerr.InvalidArgument("property %s of node %s: %v", p.Name, n.Identifier, err)
			}
			doc.properties[node.NormalizeName(p.Name)] = property{typ: p.Type, value: v}
		}

		self := base + len(pending)
		pending = append(pending, doc)
		for _, c := range n.Children {
			if err := collect(self, c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := collect(parent, n); err != nil {
		return err
	}

	for i, doc := range pending {
		ix.insert(uint32(base+i), doc)
	}
	return nil
}

func (ix *index) insert(id uint32, doc document) {
	ix.docs = append(ix.docs, doc)
	ix.ids[doc.identifier] = id
	ix.all.Add(id)
	posting(ix.byType, doc.primaryType).Add(id)
	for name, p := range doc.properties {
		posting(ix.byProperty, name).Add(id)
		values, ok := ix.byValue[name]
		if !ok {
			values = make(map[string]*roaring.Bitmap)
			ix.byValue[name] = values
		}
		posting(values, p.value.String()).Add(id)
	}
}

// ofTypes returns the documents of any of the given primary types.
func (ix *index) ofTypes(types []string) *roaring.Bitmap {
	result := roaring.New()
	for _, t := range types {
		if bm, ok := ix.byType[t]; ok {
			result.Or(bm)
		}
	}
	return result
}

// isDescendant reports whether doc d lies below doc ancestor.
func (ix *index) isDescendant(d, ancestor uint32) bool {
	for p := ix.docs[d].parent; p != noParent; p = ix.docs[p].parent {
		if uint32(p) == ancestor {
			return true
		}
	}
	return false
}

func posting(m map[string]*roaring.Bitmap, key string) *roaring.Bitmap {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	return bm
}
