package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"elizabeth/agent/internal/api"
	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/domain"
	"elizabeth/agent/internal/poller"
	"elizabeth/agent/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements the slice of the backend used by the details flow. The
// scrape side is simulated by the opener flipping correlation ids to ready.
type fakeAPI struct {
	api.Client

	mu        sync.Mutex
	products  []api.SearchProduct
	jobs      []domain.DetailJob
	requested [][]int64
	outcome   map[string]string // correlation id -> request status
}

func (f *fakeAPI) BulkSearch(_ context.Context, _ []domain.SearchQuery) (*api.SearchResponse, error) {
	return &api.SearchResponse{
		Request:  api.SearchRequestInfo{ID: 1, Status: "done"},
		Products: f.products,
	}, nil
}

func (f *fakeAPI) RequestDetails(_ context.Context, productIDs []int64) ([]api.CreatedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, productIDs)
	return nil, nil
}

func (f *fakeAPI) DetailJobs(_ context.Context, _ int) ([]domain.DetailJob, error) {
	return f.jobs, nil
}

func (f *fakeAPI) PollStatuses(_ context.Context, requestIDs []string) ([]api.RowSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snapshots []api.RowSnapshot
	for _, id := range requestIDs {
		status, ok := f.outcome[id]
		if !ok {
			continue
		}
		snapshot := api.RowSnapshot{
			DetailsRequest: &api.DetailsRequestInfo{RequestID: id, Status: status},
		}
		if status == api.RequestStatusReady {
			weight := 350.0
			snapshot.Details = &domain.Characteristics{Weight: &weight}
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (f *fakeAPI) setOutcome(correlationID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcome[correlationID] = status
}

// fakeOpener records dispatches and reports the scrape result to the fake
// backend, standing in for the whole page visit.
type fakeOpener struct {
	backend *fakeAPI
	result  string

	mu     sync.Mutex
	opened []domain.DetailJob
}

func (o *fakeOpener) Open(_ context.Context, job domain.DetailJob) error {
	o.mu.Lock()
	o.opened = append(o.opened, job)
	o.mu.Unlock()
	o.backend.setOutcome(job.CorrelationID, o.result)
	return nil
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func (o *fakeOpener) dispatched() []domain.DetailJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.DetailJob(nil), o.opened...)
}

type countingRenderer struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRenderer) Render(*session.Session) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
}

type decliningConfirmer struct{ asked int }

func (c *decliningConfirmer) Confirm(string) bool {
	c.asked++
	return false
}

func testConfig() config.DetailsConfig {
	return config.DetailsConfig{
		PollIntervalMS: 1,
		PollTimeoutMS:  200,
		GraceDelayMS:   0,
		JobsLimit:      50,
	}
}

func newTestService(t *testing.T, backend *fakeAPI, opener Opener, confirmer Confirmer) (*Service, *countingRenderer) {
	t.Helper()
	cfg := testConfig()
	p := poller.New(backend, cfg.PollInterval(), cfg.PollTimeout())
	renderer := &countingRenderer{}
	svc := NewService(backend, p, session.New(), opener, confirmer, renderer, cfg)
	return svc, renderer
}

func wireProduct(id int64, artID, brand string) api.SearchProduct {
	return api.SearchProduct{ID: id, ArtID: artID, Brand: brand, Pin: artID, Name: brand + " " + artID}
}

func TestSearchPopulatesSession(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB"), wireProduct(2, "344459", "KYB")},
		outcome:  map[string]string{},
	}
	svc, renderer := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})

	require.NoError(t, svc.Search(context.Background(), "332101_KYB, 344459_KYB, garbage line"))

	rows := svc.Session().Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, domain.StatusIdle, rows[0].Status)
	assert.Equal(t, 1, renderer.calls)
}

func TestSearchRejectsFullyInvalidInput(t *testing.T) {
	backend := &fakeAPI{outcome: map[string]string{}}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})

	assert.Error(t, svc.Search(context.Background(), "just some words"))
	assert.Error(t, svc.Search(context.Background(), "   "))
}

func TestStartDetailsFlowRequiresRows(t *testing.T) {
	backend := &fakeAPI{outcome: map[string]string{}}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})

	assert.Error(t, svc.StartDetailsFlow(context.Background(), nil))
}

func TestStartDetailsFlowDeclinedConfirmationAbortsSilently(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		outcome:  map[string]string{},
	}
	confirmer := &decliningConfirmer{}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, confirmer)
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	err := svc.CollectDetails(context.Background())

	require.NoError(t, err, "a declined confirmation is not an error")
	assert.Equal(t, 1, confirmer.asked)
	assert.Empty(t, backend.requested, "no jobs may be requested without consent")
}

func TestCollectDetailsResolvesRows(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB"), wireProduct(2, "344459", "KYB")},
		jobs: []domain.DetailJob{
			{ProductID: 1, ArtID: "AT332101", CorrelationID: "req-1", OpenURL: "https://supplier/artinfo/index/AT332101?request_id=req-1&elizabeth_product_id=1"},
			{ProductID: 2, ArtID: "AT344459", CorrelationID: "req-2", OpenURL: "https://supplier/artinfo/index/AT344459?request_id=req-2&elizabeth_product_id=2"},
		},
		outcome: map[string]string{},
	}
	opener := &fakeOpener{backend: backend, result: api.RequestStatusReady}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB, 344459_KYB"))

	require.NoError(t, svc.CollectDetails(context.Background()))

	assert.Equal(t, 2, opener.openCount(), "one dispatch per requested row")
	for _, row := range svc.Session().Rows() {
		assert.Equal(t, domain.StatusSuccess, row.Status)
		require.NotNil(t, row.Product.Characteristics)
	}
	assert.False(t, svc.CanRetryFailed(), "nothing failed, retry stays disabled")

	require.Len(t, backend.requested, 1)
	assert.ElementsMatch(t, []int64{1, 2}, backend.requested[0])
}

func TestCollectDetailsSkipsJobsForUnrequestedProducts(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		jobs: []domain.DetailJob{
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "u1"},
			// Stale job from another session's request.
			{ProductID: 99, CorrelationID: "req-99", OpenURL: "u99"},
		},
		outcome: map[string]string{},
	}
	opener := &fakeOpener{backend: backend, result: api.RequestStatusReady}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	require.NoError(t, svc.CollectDetails(context.Background()))

	assert.Equal(t, 1, opener.openCount())
}

func TestFailedRowsCanBeRetriedAfterCycle(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		jobs: []domain.DetailJob{
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "u1"},
		},
		outcome: map[string]string{},
	}
	opener := &fakeOpener{backend: backend, result: api.RequestStatusFailed}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	require.NoError(t, svc.CollectDetails(context.Background()))

	rows := svc.Session().Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, domain.StatusFailed, rows[0].Status)
	require.True(t, svc.CanRetryFailed())

	// The supplier page behaves on the second visit.
	opener.result = api.RequestStatusReady
	require.NoError(t, svc.RetryFailed(context.Background()))

	rows = svc.Session().Rows()
	assert.Equal(t, domain.StatusSuccess, rows[0].Status)
	assert.False(t, svc.CanRetryFailed())
	assert.Equal(t, 2, opener.openCount())
}

func TestProcessJobFillsArtIDFromOpenURL(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		jobs: []domain.DetailJob{
			// ArtID left empty, as older backend revisions send it.
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "https://supplier/artinfo/index/AT332101?request_id=req-1&elizabeth_product_id=1"},
		},
		outcome: map[string]string{},
	}
	opener := &fakeOpener{backend: backend, result: api.RequestStatusReady}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	require.NoError(t, svc.CollectDetails(context.Background()))

	jobs := opener.dispatched()
	require.Len(t, jobs, 1)
	assert.Equal(t, "AT332101", jobs[0].ArtID)
}

func TestRefreshStatusesMergesLateResolution(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		jobs: []domain.DetailJob{
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "u1"},
		},
		outcome: map[string]string{},
	}
	opener := &fakeOpener{backend: backend, result: api.RequestStatusFailed}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))
	require.NoError(t, svc.CollectDetails(context.Background()))

	rows := svc.Session().Rows()
	require.Equal(t, domain.StatusFailed, rows[0].Status)

	// The backend catches up after the cycle gave up on the row.
	backend.setOutcome("req-1", api.RequestStatusReady)
	require.NoError(t, svc.RefreshStatuses(context.Background()))

	rows = svc.Session().Rows()
	assert.Equal(t, domain.StatusSuccess, rows[0].Status)
	require.NotNil(t, rows[0].Product.Characteristics)
	assert.NotNil(t, rows[0].Product.Characteristics.Weight)
}

func TestRefreshStatusesBranches(t *testing.T) {
	backend := &fakeAPI{outcome: map[string]string{}}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})
	sess := svc.Session()

	failing, _ := sess.Upsert(domain.Product{ID: 1, ArtID: "A1", Brand: "KYB", Pin: "1"})
	sess.SetCorrelation(failing, "req-1")
	sess.SetStatus(failing, domain.StatusProcessing)
	backend.setOutcome("req-1", api.RequestStatusFailed)

	pending, _ := sess.Upsert(domain.Product{ID: 2, ArtID: "A2", Brand: "KYB", Pin: "2"})
	sess.SetCorrelation(pending, "req-2")
	sess.SetStatus(pending, domain.StatusProcessing)
	backend.setOutcome("req-2", api.RequestStatusPending)

	// Correlation id the backend no longer knows: the row is left alone.
	unknown, _ := sess.Upsert(domain.Product{ID: 3, ArtID: "A3", Brand: "KYB", Pin: "3"})
	sess.SetCorrelation(unknown, "req-3")
	sess.SetStatus(unknown, domain.StatusProcessing)

	require.NoError(t, svc.RefreshStatuses(context.Background()))

	byID := func(id int64) session.Row {
		row, ok := sess.RowByProductID(id)
		require.True(t, ok)
		return row
	}
	assert.Equal(t, domain.StatusFailed, byID(1).Status)
	assert.Equal(t, domain.StatusProcessing, byID(2).Status)
	assert.Equal(t, domain.StatusProcessing, byID(3).Status)
}

func TestRefreshStatusesNoCorrelatedRows(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		outcome:  map[string]string{},
	}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	// No row has a correlation id yet; the refresh is a no-op round trip.
	require.NoError(t, svc.RefreshStatuses(context.Background()))
	assert.Equal(t, domain.StatusIdle, svc.Session().Rows()[0].Status)
}

func TestRetryFailedGuardedBeforeFirstCycle(t *testing.T) {
	backend := &fakeAPI{outcome: map[string]string{}}
	svc, _ := newTestService(t, backend, &fakeOpener{backend: backend}, AutoConfirmer{})

	assert.Error(t, svc.RetryFailed(context.Background()))
}

func TestPollTimeoutMarksRowFailed(t *testing.T) {
	backend := &fakeAPI{
		products: []api.SearchProduct{wireProduct(1, "332101", "KYB")},
		jobs: []domain.DetailJob{
			{ProductID: 1, CorrelationID: "req-1", OpenURL: "u1"},
		},
		outcome: map[string]string{},
	}
	// The opener reports pending forever; the poll cycle must give up on its
	// own timeout instead of hanging.
	opener := &fakeOpener{backend: backend, result: api.RequestStatusPending}
	svc, _ := newTestService(t, backend, opener, AutoConfirmer{})
	require.NoError(t, svc.Search(context.Background(), "332101_KYB"))

	start := time.Now()
	require.NoError(t, svc.CollectDetails(context.Background()))

	assert.Less(t, time.Since(start), 5*time.Second)
	rows := svc.Session().Rows()
	assert.Equal(t, domain.StatusFailed, rows[0].Status)
}
