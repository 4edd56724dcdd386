package task

// ScrapeJobTask asks an agent worker to visit a supplier product page and
// post the scraped characteristics back to the backend. OpenURL already
// carries the correlation id and product id as query parameters.
type ScrapeJobTask struct {
	ProductID     int64  `json:"product_id"`
	ArtID         string `json:"artid"`
	CorrelationID string `json:"request_id"`
	OpenURL       string `json:"open_url"`
}

func (t *ScrapeJobTask) TaskType() string {
	return "ScrapeJobTask"
}

func (t *ScrapeJobTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
