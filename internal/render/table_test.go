package render

import (
	"bytes"
	"testing"

	"elizabeth/agent/internal/domain"
	"elizabeth/agent/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmptySession(t *testing.T) {
	var buf bytes.Buffer
	NewTableRenderer(&buf).Render(session.New())

	assert.Contains(t, buf.String(), "No results yet")
}

func TestRenderRowsAndSummary(t *testing.T) {
	s := session.New()
	k1, _ := s.Upsert(domain.Product{ID: 1, ArtID: "332101", Brand: "KYB", Pin: "332101", Name: "Амортизатор"})
	s.Upsert(domain.Product{ID: 2, ArtID: "C1062", Brand: "LUZAR", Pin: "C1062", Name: "Радиатор"})

	weight := 1.2
	s.SetStatus(k1, domain.StatusProcessing)
	require.True(t, s.ApplyCharacteristics(k1, &domain.Characteristics{
		Weight:     &weight,
		OEMNumbers: []string{"48531-80513", "333305", "90915", "11111"},
	}))

	var buf bytes.Buffer
	NewTableRenderer(&buf).Render(s)
	out := buf.String()

	assert.Contains(t, out, "332101")
	assert.Contains(t, out, "LUZAR")
	assert.Contains(t, out, "Ready: 1, processing: 0, waiting: 1, failed: 0")
	// Long OEM lists are truncated with a remainder marker.
	assert.Contains(t, out, "+1")
	// The freshly resolved row is called out once.
	assert.Contains(t, out, "Resolved: 332101_KYB")

	buf.Reset()
	NewTableRenderer(&buf).Render(s)
	assert.NotContains(t, buf.String(), "Resolved:", "highlight is one-shot")
}

func TestFormatHelpers(t *testing.T) {
	price := 1234.5
	assert.Equal(t, "1234.50 RUB", formatPrice(&price, "RUB"))
	assert.Equal(t, "-", formatPrice(nil, "RUB"))

	length := 140.0
	assert.Equal(t, "140/-/-", formatDimensions(&domain.Characteristics{Length: &length}))
	assert.Equal(t, "-", formatDimensions(&domain.Characteristics{}))

	assert.Equal(t, "-", formatOEM(nil))
	assert.Equal(t, "a, b", formatOEM([]string{"a", "b"}))
}
