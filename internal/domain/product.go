package domain

// DetailsStatus describes where a product row is in the detail-enrichment cycle.
type DetailsStatus string

func (s DetailsStatus) String() string {
	return string(s)
}

const (
	StatusIdle       DetailsStatus = "idle"
	StatusProcessing DetailsStatus = "processing"
	StatusSuccess    DetailsStatus = "success"
	StatusFailed     DetailsStatus = "failed"
)

// CanTransitionTo enforces the row state machine:
// idle -> processing -> {success, failed}; failed -> processing (manual retry);
// success is terminal until the row is replaced by a fresh search.
func (s DetailsStatus) CanTransitionTo(next DetailsStatus) bool {
	switch s {
	case StatusIdle:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusSuccess || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	case StatusSuccess:
		return false
	default:
		return false
	}
}

// Characteristics holds the secondary attributes obtainable only from the
// supplier's own product page. Every field is individually nullable: a nil
// field means the scraper could not find it on the page, which is not the
// same as "not yet requested".
type Characteristics struct {
	ImageURL   *string  `json:"image_url,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	Length     *float64 `json:"length,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	AnalogCode *string  `json:"analog_code,omitempty"`
	OEMNumbers []string `json:"oem_numbers,omitempty"`
}

// IsEmpty reports whether no field was resolved at all.
func (c *Characteristics) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.ImageURL == nil && c.Weight == nil && c.Length == nil &&
		c.Height == nil && c.Width == nil && c.AnalogCode == nil && len(c.OEMNumbers) == 0
}

// Sparse returns the canonical ingest payload: only resolved fields are
// included, absent fields are omitted rather than sent as explicit nulls.
func (c *Characteristics) Sparse() map[string]any {
	payload := make(map[string]any)
	if c == nil {
		return payload
	}
	if c.ImageURL != nil {
		payload["image_url"] = *c.ImageURL
	}
	if c.Weight != nil {
		payload["weight"] = *c.Weight
	}
	if c.Length != nil {
		payload["length"] = *c.Length
	}
	if c.Height != nil {
		payload["height"] = *c.Height
	}
	if c.Width != nil {
		payload["width"] = *c.Width
	}
	if c.AnalogCode != nil {
		payload["analog_code"] = *c.AnalogCode
	}
	if len(c.OEMNumbers) > 0 {
		payload["oem_numbers"] = c.OEMNumbers
	}
	return payload
}

// Product is one search result row. Core fields are immutable once fetched
// from search; CorrelationID and Characteristics evolve with the detail job.
type Product struct {
	ID       int64  `json:"id"`
	ArtID    string `json:"artid"`
	Brand    string `json:"brand"`
	Pin      string `json:"pin"`
	Name     string `json:"name"`
	Quantity *int   `json:"quantity,omitempty"`

	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`

	// CorrelationID joins this row to a detail job, an opened supplier page
	// and a poll cycle. A row has at most one active correlation id; starting
	// a new detail job replaces it.
	CorrelationID string `json:"request_id,omitempty"`

	DetailsStatus   DetailsStatus    `json:"details_status,omitempty"`
	Characteristics *Characteristics `json:"characteristics,omitempty"`
}

// Identity is the dedupe key for upserts: the same supplier article returned
// by a repeated search maps onto the existing row instead of a new one.
func (p Product) Identity() string {
	return p.Brand + ":" + p.ArtID
}
