package poller

import (
	"context"
	"sync"
	"time"

	"elizabeth/agent/internal/api"
	"elizabeth/agent/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Outcome statuses of a poll cycle beyond the backend's own request states.
const (
	OutcomeOK       = "ok"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Outcome is the terminal result of one poll cycle for a correlation id.
type Outcome struct {
	Status          string
	Characteristics *domain.Characteristics
}

// StatusClient is the slice of the backend client the poller needs.
type StatusClient interface {
	PollStatuses(ctx context.Context, requestIDs []string) ([]api.RowSnapshot, error)
}

type registration struct {
	cancel context.CancelFunc
}

// Poller repeatedly asks the backend whether a correlation id resolved.
// At most one poll cycle is active per id: restarting a poll for an id
// cancels the previous cycle, so stale timers never mutate current rows.
type Poller struct {
	client   StatusClient
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	active map[string]*registration
}

func New(client StatusClient, interval, timeout time.Duration) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		timeout:  timeout,
		active:   make(map[string]*registration),
	}
}

// register installs a cancelable context for the id, cancelling any poll
// already in flight for it.
func (p *Poller) register(ctx context.Context, correlationID string) (context.Context, *registration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.active[correlationID]; ok {
		log.Debugf("Replacing in-flight poll for %s", correlationID)
		prev.cancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	reg := &registration{cancel: cancel}
	p.active[correlationID] = reg
	return pollCtx, reg
}

func (p *Poller) deregister(correlationID string, reg *registration) {
	reg.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	// Only remove the entry if it still belongs to this cycle; a restart may
	// already have replaced it.
	if current, ok := p.active[correlationID]; ok && current == reg {
		delete(p.active, correlationID)
	}
}

// ActiveCount reports the number of in-flight poll cycles.
func (p *Poller) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// CancelAll stops every outstanding poll cycle. Used on view teardown and
// before a brand-new search so stale callbacks cannot touch the new row set.
func (p *Poller) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, reg := range p.active {
		reg.cancel()
		delete(p.active, id)
	}
}

// WaitForCharacteristics blocks until the correlation id reaches a terminal
// outcome: resolved characteristics, an explicit failure status, a transport
// error, or the bounded timeout while the backend keeps answering "pending".
func (p *Poller) WaitForCharacteristics(ctx context.Context, correlationID string) Outcome {
	pollCtx, reg := p.register(ctx, correlationID)
	defer p.deregister(correlationID, reg)

	startedAt := time.Now()

	for {
		outcome, terminal := p.attempt(pollCtx, correlationID)
		if terminal {
			return outcome
		}

		if time.Since(startedAt) > p.timeout {
			log.Warnf("Poll for %s timed out after %v", correlationID, p.timeout)
			return Outcome{Status: OutcomeTimeout}
		}

		select {
		case <-pollCtx.Done():
			return Outcome{Status: OutcomeError}
		case <-time.After(p.interval):
		}
	}
}

// attempt performs one status round trip. terminal is false only for a clean
// "pending" answer; everything else ends the cycle.
func (p *Poller) attempt(ctx context.Context, correlationID string) (Outcome, bool) {
	snapshots, err := p.client.PollStatuses(ctx, []string{correlationID})
	if err != nil {
		if ctx.Err() == nil {
			log.Debugf("Status poll for %s failed: %v", correlationID, err)
		}
		return Outcome{Status: OutcomeError}, true
	}

	snapshot := findSnapshot(snapshots, correlationID)
	if snapshot == nil {
		return Outcome{Status: OutcomeNotFound}, true
	}

	switch snapshot.DetailsRequest.Status {
	case api.RequestStatusReady:
		return Outcome{Status: OutcomeOK, Characteristics: snapshot.Details}, true
	case api.RequestStatusPending:
		return Outcome{}, false
	default:
		return Outcome{Status: snapshot.DetailsRequest.Status}, true
	}
}

// PollStatuses is the batch variant: one round trip for a set of correlation
// ids, returning whatever snapshots the backend currently has.
func (p *Poller) PollStatuses(ctx context.Context, correlationIDs []string) ([]api.RowSnapshot, error) {
	return p.client.PollStatuses(ctx, correlationIDs)
}

func findSnapshot(snapshots []api.RowSnapshot, correlationID string) *api.RowSnapshot {
	for i := range snapshots {
		if snapshots[i].DetailsRequest != nil && snapshots[i].DetailsRequest.RequestID == correlationID {
			return &snapshots[i]
		}
	}
	return nil
}
