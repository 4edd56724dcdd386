package session

import (
	"sync"

	"elizabeth/agent/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Row is one rendered result line. Key is a per-row idempotency token,
// distinct from the product id: the same product searched twice maps back
// onto the same row instead of duplicating it.
type Row struct {
	Key     string
	Product domain.Product
	Status  domain.DetailsStatus
}

// Session owns the in-memory row collection for one view of results. It is
// constructed at view mount and torn down at unmount; nothing survives a
// restart, which is accepted: a reload means re-searching.
type Session struct {
	mu         sync.Mutex
	rows       []*Row
	byIdentity map[string]*Row

	// One-shot highlight of the most recently resolved row.
	highlightKey string
}

func New() *Session {
	return &Session{
		byIdentity: make(map[string]*Row),
	}
}

// Upsert merges a search result into the collection. A duplicate identity
// replaces the core product data but preserves already-resolved
// characteristics and never regresses a row that is further along than idle.
func (s *Session) Upsert(product domain.Product) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.DetailsStatus == "" {
		product.DetailsStatus = domain.StatusIdle
	}

	existing, ok := s.byIdentity[product.Identity()]
	if !ok {
		row := &Row{
			Key:     uuid.NewString(),
			Product: product,
			Status:  product.DetailsStatus,
		}
		s.rows = append(s.rows, row)
		s.byIdentity[product.Identity()] = row
		return row.Key, true
	}

	resolved := existing.Product.Characteristics
	correlationID := existing.Product.CorrelationID
	status := existing.Status

	existing.Product = product
	if resolved != nil {
		// Merge, not overwrite: keep what the scraper already resolved even
		// when the fresh search result carries nothing.
		existing.Product.Characteristics = resolved
	}
	if product.CorrelationID == "" {
		// A result without a freshly assigned id must not wipe an in-flight
		// correlation.
		existing.Product.CorrelationID = correlationID
	}
	if status != domain.StatusIdle {
		existing.Status = status
	} else {
		existing.Status = product.DetailsStatus
	}
	// Keep the embedded wire status in step with the row status.
	existing.Product.DetailsStatus = existing.Status
	return existing.Key, false
}

// Replace drops the whole collection and rebuilds it from a fresh search.
// This is the only path that lets a success row go back to idle.
func (s *Session) Replace(products []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = nil
	s.byIdentity = make(map[string]*Row)
	s.highlightKey = ""

	for _, product := range products {
		if product.DetailsStatus == "" {
			product.DetailsStatus = domain.StatusIdle
		}
		if _, ok := s.byIdentity[product.Identity()]; ok {
			continue
		}
		row := &Row{
			Key:     uuid.NewString(),
			Product: product,
			Status:  product.DetailsStatus,
		}
		s.rows = append(s.rows, row)
		s.byIdentity[product.Identity()] = row
	}
}

// SetStatus applies a guarded status transition. Invalid transitions (for
// example success back to idle) are ignored and logged rather than applied.
func (s *Session) SetStatus(key string, next domain.DetailsStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byKey(key)
	if row == nil {
		return false
	}
	if !row.Status.CanTransitionTo(next) {
		log.Debugf("Ignoring status transition %s -> %s for row %s", row.Status, next, key)
		return false
	}
	row.Status = next
	row.Product.DetailsStatus = next
	return true
}

// SetCorrelation assigns a fresh correlation id to a row. Any previous id is
// replaced: a row has exactly one active correlation id at a time.
func (s *Session) SetCorrelation(key, correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row := s.byKey(key); row != nil {
		row.Product.CorrelationID = correlationID
	}
}

// ApplyCharacteristics resolves a row: merges the scraped payload, marks the
// row success and arms the one-shot highlight.
func (s *Session) ApplyCharacteristics(key string, chars *domain.Characteristics) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byKey(key)
	if row == nil {
		return false
	}
	if !row.Status.CanTransitionTo(domain.StatusSuccess) {
		log.Debugf("Ignoring late characteristics for row %s in status %s", key, row.Status)
		return false
	}
	row.Product.Characteristics = chars
	row.Status = domain.StatusSuccess
	row.Product.DetailsStatus = domain.StatusSuccess
	s.highlightKey = key
	return true
}

// RowByCorrelation finds the row currently joined to a correlation id.
func (s *Session) RowByCorrelation(correlationID string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if correlationID == "" {
		return Row{}, false
	}
	for _, row := range s.rows {
		if row.Product.CorrelationID == correlationID {
			return *row, true
		}
	}
	return Row{}, false
}

// RowByProductID finds the row for a backend product id.
func (s *Session) RowByProductID(productID int64) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Product.ID == productID {
			return *row, true
		}
	}
	return Row{}, false
}

// Rows returns a snapshot of the ordered collection.
func (s *Session) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		snapshot = append(snapshot, *row)
	}
	return snapshot
}

// FailedRows returns the rows eligible for the retry-failed operation.
func (s *Session) FailedRows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []Row
	for _, row := range s.rows {
		if row.Status == domain.StatusFailed {
			failed = append(failed, *row)
		}
	}
	return failed
}

// StatusCounts aggregates rows per status for the summary line.
func (s *Session) StatusCounts() map[domain.DetailsStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[domain.DetailsStatus]int{
		domain.StatusIdle:       0,
		domain.StatusProcessing: 0,
		domain.StatusSuccess:    0,
		domain.StatusFailed:     0,
	}
	for _, row := range s.rows {
		counts[row.Status]++
	}
	return counts
}

// TakeHighlight returns the key of the row to highlight once and clears it.
func (s *Session) TakeHighlight() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.highlightKey
	s.highlightKey = ""
	return key
}

func (s *Session) byKey(key string) *Row {
	for _, row := range s.rows {
		if row.Key == key {
			return row
		}
	}
	return nil
}
