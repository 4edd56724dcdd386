package task

// ScrapeRetryTask re-queues a scrape that failed (page never became ready or
// the ingest POST did not go through).
type ScrapeRetryTask struct {
	ProductID     int64  `json:"product_id"`
	ArtID         string `json:"artid"`
	CorrelationID string `json:"request_id"`
	OpenURL       string `json:"open_url"`
	RetryCount    int    `json:"retry_count"`
	Error         string `json:"error"`
}

func (t *ScrapeRetryTask) TaskType() string {
	return "ScrapeRetryTask"
}

func (t *ScrapeRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
