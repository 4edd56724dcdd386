package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpenURL(t *testing.T) {
	params, ok := ParseOpenURL("https://etp.armtek.ru/artinfo/index/AT332101?request_id=abc-123&elizabeth_product_id=42")

	require.True(t, ok)
	assert.Equal(t, "abc-123", params.CorrelationID)
	assert.Equal(t, "42", params.ProductID)
}

func TestParseOpenURLLegacyTokenParam(t *testing.T) {
	params, ok := ParseOpenURL("https://etp.armtek.ru/artinfo/index/AT332101?elizabeth_token=legacy-7&elizabeth_product_id=7")

	require.True(t, ok)
	assert.Equal(t, "legacy-7", params.CorrelationID)
}

func TestParseOpenURLMissingParams(t *testing.T) {
	cases := []string{
		"https://etp.armtek.ru/artinfo/index/AT332101",
		"https://etp.armtek.ru/artinfo/index/AT332101?request_id=abc",
		"https://etp.armtek.ru/artinfo/index/AT332101?elizabeth_product_id=42",
		"://broken",
	}
	for _, raw := range cases {
		_, ok := ParseOpenURL(raw)
		assert.False(t, ok, "url=%q", raw)
	}
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusIdle.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusSuccess))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusFailed))
	assert.True(t, StatusFailed.CanTransitionTo(StatusProcessing))

	// Success is terminal; only a fresh search replaces the row.
	assert.False(t, StatusSuccess.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusSuccess.CanTransitionTo(StatusIdle))
	assert.False(t, StatusIdle.CanTransitionTo(StatusSuccess))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSuccess))
}

func TestCharacteristicsSparse(t *testing.T) {
	weight := 350.0
	image := "https://example.com/p.jpg"
	c := &Characteristics{
		ImageURL:   &image,
		Weight:     &weight,
		OEMNumbers: []string{"11111", "22222"},
	}

	payload := c.Sparse()
	assert.Equal(t, map[string]any{
		"image_url":   image,
		"weight":      weight,
		"oem_numbers": []string{"11111", "22222"},
	}, payload)

	assert.Empty(t, (&Characteristics{}).Sparse())
	assert.True(t, (&Characteristics{}).IsEmpty())
	assert.False(t, c.IsEmpty())
}
