package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"elizabeth/agent/internal/api"
	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/domain"
	"elizabeth/agent/internal/poller"
	"elizabeth/agent/internal/scraper"
	"elizabeth/agent/internal/session"

	log "github.com/sirupsen/logrus"
)

// Opener dispatches a detail job against the supplier page. This is the Go
// analog of opening the pre-filled URL in a new browser tab: the main flow
// only shares the correlation id with whatever runs the page.
type Opener interface {
	Open(ctx context.Context, job domain.DetailJob) error
}

// Confirmer asks the user for explicit consent before the flow starts
// hitting a third-party site on their behalf.
type Confirmer interface {
	Confirm(message string) bool
}

// Renderer redraws the result collection after each full mutation.
type Renderer interface {
	Render(s *session.Session)
}

const confirmMessage = "Collecting characteristics will visit a supplier product page for every selected row. Continue?"

// Service drives the search -> confirm -> dispatch -> poll -> merge workflow
// over one session of results.
type Service struct {
	api       api.Client
	poller    *poller.Poller
	session   *session.Session
	opener    Opener
	confirmer Confirmer
	renderer  Renderer
	cfg       config.DetailsConfig

	mu             sync.Mutex
	cycleCompleted bool
}

func NewService(
	apiClient api.Client,
	pollr *poller.Poller,
	sess *session.Session,
	opener Opener,
	confirmer Confirmer,
	renderer Renderer,
	cfg config.DetailsConfig,
) *Service {
	return &Service{
		api:       apiClient,
		poller:    pollr,
		session:   sess,
		opener:    opener,
		confirmer: confirmer,
		renderer:  renderer,
		cfg:       cfg,
	}
}

// Session exposes the row collection owned by this service.
func (s *Service) Session() *session.Session {
	return s.session
}

// Search parses omni input, runs the bulk search and upserts the results.
// Invalid chunks never abort the batch; they surface as a skipped-lines
// warning. A new search cancels every outstanding poll first so stale
// callbacks cannot touch the refreshed rows.
func (s *Service) Search(ctx context.Context, input string) error {
	queries, invalid := domain.ParseOmniInput(input)
	if len(queries) == 0 {
		if len(invalid) > 0 {
			return fmt.Errorf("no valid queries: %s (%s)", invalid[0].Value, invalid[0].Reason)
		}
		return fmt.Errorf("enter at least one article to search")
	}

	s.poller.CancelAll()

	resp, err := s.api.BulkSearch(ctx, queries)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	for _, wireProduct := range resp.Products {
		s.session.Upsert(wireProduct.ToDomain())
	}

	if len(invalid) > 0 {
		reasons := make([]string, 0, len(invalid))
		for _, bad := range invalid {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", bad.Value, bad.Reason))
		}
		log.Warnf("⚠️ %d line(s) skipped: %s", len(invalid), strings.Join(reasons, "; "))
	}

	log.Infof("Search request %d returned %d products", resp.Request.ID, len(resp.Products))
	s.renderer.Render(s.session)
	return nil
}

// CollectDetails runs the details flow for every row that can be processed
// (idle or failed).
func (s *Service) CollectDetails(ctx context.Context) error {
	var ids []int64
	for _, row := range s.session.Rows() {
		if row.Status == domain.StatusIdle || row.Status == domain.StatusFailed {
			ids = append(ids, row.Product.ID)
		}
	}
	return s.StartDetailsFlow(ctx, ids)
}

// RetryFailed re-runs the flow restricted to rows currently in failed
// status. Only available after a full processing cycle has completed, so a
// retry cannot be fired mid-flight.
func (s *Service) RetryFailed(ctx context.Context) error {
	if !s.CanRetryFailed() {
		return fmt.Errorf("retry is available only after a processing cycle completes with failures")
	}

	var ids []int64
	for _, row := range s.session.FailedRows() {
		ids = append(ids, row.Product.ID)
	}
	return s.StartDetailsFlow(ctx, ids)
}

// CanRetryFailed reports whether the retry-failed operation is enabled.
func (s *Service) CanRetryFailed() bool {
	s.mu.Lock()
	completed := s.cycleCompleted
	s.mu.Unlock()
	return completed && len(s.session.FailedRows()) > 0
}

func (s *Service) setCycleCompleted(done bool) {
	s.mu.Lock()
	s.cycleCompleted = done
	s.mu.Unlock()
}

// StartDetailsFlow is the job orchestrator. It requests detail jobs for the
// given products, dispatches each job's open_url and serializes per-row
// processing: every row's poll outcome is awaited before the next dispatch,
// which bounds load on the supplier to one page in flight.
func (s *Service) StartDetailsFlow(ctx context.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return fmt.Errorf("no rows to process: run a search or adjust row statuses")
	}

	if !s.confirmer.Confirm(confirmMessage) {
		// Declined confirmation aborts silently.
		log.Debug("Details flow declined by user")
		return nil
	}

	s.setCycleCompleted(false)

	if _, err := s.api.RequestDetails(ctx, productIDs); err != nil {
		return fmt.Errorf("failed to request detail jobs: %w", err)
	}

	jobs, err := s.api.DetailJobs(ctx, s.cfg.JobsLimit)
	if err != nil {
		return fmt.Errorf("failed to list detail jobs: %w", err)
	}

	requested := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		requested[id] = struct{}{}
	}

	processed := 0
	for _, job := range jobs {
		if _, ok := requested[job.ProductID]; !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.processJob(ctx, job)
		processed++
	}

	s.setCycleCompleted(true)
	s.renderer.Render(s.session)
	log.Infof("Details cycle finished: %d job(s) processed", processed)
	return nil
}

// processJob handles a single row end to end: assign the correlation id,
// dispatch the page, give the scrape a head start and poll to a terminal
// outcome. Row failures are per-row state, never an error for the batch.
func (s *Service) processJob(ctx context.Context, job domain.DetailJob) {
	row, ok := s.session.RowByProductID(job.ProductID)
	if !ok {
		log.Warnf("Job for unknown product %d, skipping", job.ProductID)
		return
	}

	if job.ArtID == "" {
		// Older backend revisions omit the article id; the open_url path
		// carries it either way.
		job.ArtID = scraper.ExtractArtID(job.OpenURL)
	}

	s.session.SetCorrelation(row.Key, job.CorrelationID)
	s.session.SetStatus(row.Key, domain.StatusProcessing)
	s.renderer.Render(s.session)

	if err := s.opener.Open(ctx, job); err != nil {
		log.Errorf("Failed to dispatch job for product %d: %v", job.ProductID, err)
		s.session.SetStatus(row.Key, domain.StatusFailed)
		s.renderer.Render(s.session)
		return
	}

	// Give the dispatched page time to start loading; polling immediately
	// would only collect guaranteed "pending" round trips.
	s.wait(ctx, s.cfg.GraceDelay())

	outcome := s.poller.WaitForCharacteristics(ctx, job.CorrelationID)
	if outcome.Status == poller.OutcomeOK {
		s.session.ApplyCharacteristics(row.Key, outcome.Characteristics)
	} else {
		log.Warnf("Details for product %d ended with status %q", job.ProductID, outcome.Status)
		s.session.SetStatus(row.Key, domain.StatusFailed)
	}
	s.renderer.Render(s.session)
}

// RefreshStatuses is the batch poll variant: one round trip for every row
// with an assigned correlation id, merging whatever already resolved.
func (s *Service) RefreshStatuses(ctx context.Context) error {
	var ids []string
	for _, row := range s.session.Rows() {
		if row.Product.CorrelationID != "" {
			ids = append(ids, row.Product.CorrelationID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	snapshots, err := s.poller.PollStatuses(ctx, ids)
	if err != nil {
		return fmt.Errorf("status refresh failed: %w", err)
	}

	for _, snapshot := range snapshots {
		if snapshot.DetailsRequest == nil {
			continue
		}
		row, ok := s.session.RowByCorrelation(snapshot.DetailsRequest.RequestID)
		if !ok {
			continue
		}
		switch snapshot.DetailsRequest.Status {
		case api.RequestStatusReady:
			if row.Status == domain.StatusFailed {
				// A row that timed out locally can still resolve server-side;
				// route it through processing so the transition guard holds.
				s.session.SetStatus(row.Key, domain.StatusProcessing)
			}
			s.session.ApplyCharacteristics(row.Key, snapshot.Details)
		case api.RequestStatusFailed:
			s.session.SetStatus(row.Key, domain.StatusFailed)
		}
	}

	s.renderer.Render(s.session)
	return nil
}

// Teardown cancels all outstanding polls. Called when the view goes away.
func (s *Service) Teardown() {
	s.poller.CancelAll()
}

func (s *Service) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
