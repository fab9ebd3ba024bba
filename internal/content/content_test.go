// internal/content/content_test.go
package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKindRoundTripsThroughName checks kinds parse back from their names.
func TestKindRoundTripsThroughName(t *testing.T) {
	for _, k := range []Kind{KindText, KindTable, KindImage} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("chart")
	assert.Error(t, err)
	assert.Equal(t, "kind(9)", Kind(9).String())
}

// TestCorpusGroupsByKind checks units are grouped by kind in insertion order.
func TestCorpusGroupsByKind(t *testing.T) {
	var c Corpus
	c.Add(Unit{Kind: KindText, Raw: "a"})
	c.Add(Unit{Kind: KindImage, Raw: "img"})
	c.Add(Unit{Kind: KindText, Raw: "b"})
	c.Add(Unit{Kind: KindTable, Raw: "t"})

	assert.Equal(t, []string{"a", "b"}, c.Group(KindText))
	assert.Equal(t, []string{"t"}, c.Group(KindTable))
	assert.Equal(t, []string{"img"}, c.Group(KindImage))
	assert.Equal(t, 4, c.Len())

	c.Merge(Corpus{Texts: []string{"c"}})
	assert.Equal(t, []string{"a", "b", "c"}, c.Texts)
}
