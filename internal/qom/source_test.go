package qom

import (
	"sync"
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postsWithAuthors(t *testing.T, jt JoinType) (*Join, Selector, Selector, JoinCondition) {
	t.Helper()
	posts := Selector{NodeTypeName: "flow3:Blog_Post", SelectorName: "post"}
	people := Selector{NodeTypeName: "flow3:Person", SelectorName: "author"}
	cond := EquiJoinCondition{
		Selector1Name: "post", Property1Name: "flow3:authorId",
		Selector2Name: "author", Property2Name: "flow3:id",
	}
	j, err := NewJoin(posts, people, jt, cond)
	require.NoError(t, err)
	return j, posts, people, cond
}

func TestJoinAccessorsReturnConstructionValues(t *testing.T) {
	j, posts, people, cond := postsWithAuthors(t, JoinTypeLeftOuter)

	assert.Equal(t, posts, j.Left())
	assert.Equal(t, people, j.Right())
	assert.Equal(t, JoinTypeLeftOuter, j.JoinType())
	assert.Equal(t, cond, j.JoinCondition())
}

func TestJoinIsUnaffectedBySharedUse(t *testing.T) {
	j, posts, people, cond := postsWithAuthors(t, JoinTypeInner)

	// two unrelated outer joins share j
	other := Selector{NodeTypeName: "flow3:Comment", SelectorName: "comment"}
	var wg sync.WaitGroup
	for _, jt := range []JoinType{JoinTypeLeftOuter, JoinTypeRightOuter} {
		wg.Add(1)
		go func(jt JoinType) {
			defer wg.Done()
			_, err := NewJoin(j, other, jt, SameNodeJoinCondition{Selector1Name: "post", Selector2Name: "comment"})
			assert.NoError(t, err)
			_ = Selectors(j)
		}(jt)
	}
	wg.Wait()

	assert.Equal(t, posts, j.Left())
	assert.Equal(t, people, j.Right())
	assert.Equal(t, JoinTypeInner, j.JoinType())
	assert.Equal(t, cond, j.JoinCondition())
}

func TestNewJoinRejectsBadInput(t *testing.T) {
	a := Selector{NodeTypeName: "a"}
	b := Selector{NodeTypeName: "b"}
	cond := SameNodeJoinCondition{Selector1Name: "a", Selector2Name: "b"}

	tests := []struct {
		name        string
		left, right Source
		jt          JoinType
		cond        JoinCondition
	}{
		{"nil left", nil, b, JoinTypeInner, cond},
		{"nil right", a, nil, JoinTypeInner, cond},
		{"full outer", a, b, JoinType("full-outer"), cond},
		{"empty type", a, b, JoinType(""), cond},
		{"nil condition", a, b, JoinTypeInner, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJoin(tt.left, tt.right, tt.jt, tt.cond)
			assert.True(t, crerr.IsInvalidArgument(err))
		})
	}
}

func TestSelectorsLeftToRight(t *testing.T) {
	j, posts, people, _ := postsWithAuthors(t, JoinTypeInner)
	comments := Selector{NodeTypeName: "flow3:Comment", SelectorName: "comment"}
	outer, err := NewJoin(j, comments, JoinTypeInner, ChildNodeJoinCondition{ChildSelectorName: "comment", ParentSelectorName: "post"})
	require.NoError(t, err)

	assert.Equal(t, []Selector{posts, people, comments}, Selectors(outer))

	primary, err := PrimarySelector(outer)
	require.NoError(t, err)
	assert.Equal(t, posts, primary)

	_, err = PrimarySelector(nil)
	assert.True(t, crerr.IsInvalidArgument(err))
}

func TestSelectorNameDefaultsToNodeType(t *testing.T) {
	assert.Equal(t, "flow3:Person", Selector{NodeTypeName: "flow3:Person"}.Name())
	assert.Equal(t, "p", Selector{NodeTypeName: "flow3:Person", SelectorName: "p"}.Name())
}
