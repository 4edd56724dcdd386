package domain

import "net/url"

// Query parameters carried by an open_url. The supplier page itself is the
// only shared context between the main flow and the dispatched scrape, so
// both identifiers ride along in the URL. Legacy parameter names from older
// revisions are still accepted.
const (
	ParamCorrelationID       = "request_id"
	ParamProductID           = "elizabeth_product_id"
	ParamLegacyCorrelationID = "elizabeth_token"
)

// DetailJob is a server-tracked unit of work: "scrape characteristics for
// this product". OpenURL points at the supplier product page pre-filled with
// the correlation id.
type DetailJob struct {
	ProductID     int64  `json:"product_id"`
	ArtID         string `json:"artid"`
	CorrelationID string `json:"request_id"`
	OpenURL       string `json:"open_url"`
	Status        string `json:"status,omitempty"`
}

// JobParams identifies the job a supplier page was opened for.
type JobParams struct {
	ProductID     string
	CorrelationID string
}

// ParseOpenURL extracts the correlation token and product identifier from a
// supplier page URL. ok is false when either is missing, meaning the page was
// not opened by this system and the scraper must be a no-op.
func ParseOpenURL(raw string) (JobParams, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return JobParams{}, false
	}
	q := u.Query()

	correlationID := q.Get(ParamCorrelationID)
	if correlationID == "" {
		correlationID = q.Get(ParamLegacyCorrelationID)
	}
	productID := q.Get(ParamProductID)

	if correlationID == "" || productID == "" {
		return JobParams{}, false
	}
	return JobParams{ProductID: productID, CorrelationID: correlationID}, true
}
