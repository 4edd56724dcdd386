package domain

import (
	"regexp"
	"strings"
)

// SearchQuery is one parsed line of omni input: article pin plus mandatory
// brand, e.g. "332101_KYB" -> {Pin: "332101", Brand: "KYB"}.
type SearchQuery struct {
	Pin   string `json:"pin"`
	Brand string `json:"brand"`
}

func (q SearchQuery) String() string {
	return q.Pin + "_" + q.Brand
}

// InvalidQuery is a rejected chunk of omni input with the reason shown to the
// user. Invalid chunks never abort the batch; they are aggregated into a
// "some lines skipped" warning.
type InvalidQuery struct {
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

var chunkSeparator = regexp.MustCompile(`[,\n;/.]+`)

// ParseOmniInput splits free-form user input into search queries. Chunks are
// separated by commas, newlines, semicolons, slashes or dots; each chunk must
// be "<pin>_<brand>" with exactly one underscore.
func ParseOmniInput(text string) ([]SearchQuery, []InvalidQuery) {
	normalized := strings.ReplaceAll(text, "\r", "\n")

	var queries []SearchQuery
	var invalid []InvalidQuery

	for _, raw := range chunkSeparator.Split(normalized, -1) {
		chunk := strings.TrimSpace(raw)
		if chunk == "" {
			continue
		}

		if strings.Contains(chunk, "_") {
			segments := strings.Split(chunk, "_")
			if len(segments) != 2 {
				invalid = append(invalid, InvalidQuery{chunk, "use a single '_' between article and brand"})
				continue
			}
			pin := strings.TrimSpace(segments[0])
			brand := strings.TrimSpace(segments[1])
			if pin == "" || brand == "" {
				invalid = append(invalid, InvalidQuery{chunk, "article and brand must not be empty"})
				continue
			}
			queries = append(queries, SearchQuery{Pin: pin, Brand: strings.ToUpper(brand)})
			continue
		}

		if strings.Contains(chunk, " ") {
			invalid = append(invalid, InvalidQuery{chunk, "use '_' instead of space between article and brand"})
			continue
		}

		invalid = append(invalid, InvalidQuery{chunk, "add brand via underscore"})
	}

	return queries, invalid
}
