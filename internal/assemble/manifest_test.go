package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestIncludeKeepsOrder(t *testing.T) {
	m := NewManifest("Chronicle", "")

	m.Include(3)
	m.Include(1)
	m.Include(2)
	m.Include(2) // duplicate

	assert.Equal(t, []int{1, 2, 3}, m.Pages)
}

func TestManifestSerializeClosingMarkerLast(t *testing.T) {
	m := NewManifest("Chronicle", "Anon")
	m.Include(1)
	m.Include(2)
	m.Close()

	text := m.Serialize()
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	assert.Equal(t, closingMarker, lines[len(lines)-1])

	// References precede the marker, in increasing order.
	first := strings.Index(text, `@include "pages/page_0001.md"`)
	second := strings.Index(text, `@include "pages/page_0002.md"`)
	marker := strings.Index(text, closingMarker)
	require.True(t, first >= 0 && second >= 0 && marker >= 0)
	assert.Less(t, first, second)
	assert.Less(t, second, marker)
}

func TestManifestRoundTrip(t *testing.T) {
	m := NewManifest("Chronicle of 1612", "J. Brandt")
	m.Include(1)
	m.Include(2)
	m.Include(5)
	m.Close()

	parsed, err := ParseManifest(m.Serialize())
	require.NoError(t, err)

	assert.Equal(t, m.Title, parsed.Title)
	assert.Equal(t, m.Author, parsed.Author)
	assert.Equal(t, m.Pages, parsed.Pages)
	assert.True(t, parsed.Closed)
}

func TestManifestIncludeAfterClose(t *testing.T) {
	m := NewManifest("Chronicle", "")
	m.Include(1)
	m.Close()
	m.Include(2)

	text := m.Serialize()
	marker := strings.Index(text, closingMarker)
	second := strings.Index(text, `@include "pages/page_0002.md"`)
	require.True(t, marker >= 0 && second >= 0)
	assert.Less(t, second, marker, "late reference must still precede the closing marker")
}

func TestParseManifestEmpty(t *testing.T) {
	m, err := ParseManifest("")
	require.NoError(t, err)
	assert.Empty(t, m.Pages)
	assert.False(t, m.Closed)
}
