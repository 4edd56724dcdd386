package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOmniInputSingleQuery(t *testing.T) {
	queries, invalid := ParseOmniInput("332101_KYB")

	require.Len(t, queries, 1)
	assert.Empty(t, invalid)
	assert.Equal(t, SearchQuery{Pin: "332101", Brand: "KYB"}, queries[0])
}

func TestParseOmniInputUppercasesBrand(t *testing.T) {
	queries, _ := ParseOmniInput("332101_kyb")

	require.Len(t, queries, 1)
	assert.Equal(t, "KYB", queries[0].Brand)
}

func TestParseOmniInputSeparators(t *testing.T) {
	input := "332101_KYB, 344459_KYB\nC1062_LUZAR;A123_BOSCH"
	queries, invalid := ParseOmniInput(input)

	assert.Empty(t, invalid)
	require.Len(t, queries, 4)
	assert.Equal(t, "344459", queries[1].Pin)
	assert.Equal(t, "LUZAR", queries[2].Brand)
	assert.Equal(t, "BOSCH", queries[3].Brand)
}

func TestParseOmniInputInvalidChunksDoNotAbortBatch(t *testing.T) {
	queries, invalid := ParseOmniInput("332101_KYB, 344459, 1_2_3, a b")

	require.Len(t, queries, 1)
	require.Len(t, invalid, 3)
	assert.Equal(t, "add brand via underscore", invalid[0].Reason)
	assert.Equal(t, "use a single '_' between article and brand", invalid[1].Reason)
	assert.Equal(t, "use '_' instead of space between article and brand", invalid[2].Reason)
}

func TestParseOmniInputEmptySegments(t *testing.T) {
	_, invalid := ParseOmniInput("_KYB, 332101_")

	require.Len(t, invalid, 2)
	for _, bad := range invalid {
		assert.Equal(t, "article and brand must not be empty", bad.Reason)
	}
}

func TestParseOmniInputBlankAndWhitespace(t *testing.T) {
	queries, invalid := ParseOmniInput(" ,, \n ; ")

	assert.Empty(t, queries)
	assert.Empty(t, invalid)
}

func TestSearchQueryString(t *testing.T) {
	q := SearchQuery{Pin: "332101", Brand: "KYB"}
	assert.Equal(t, "332101_KYB", q.String())
}
