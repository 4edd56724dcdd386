package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// ErrPageNotReady is returned when the product card never finished rendering
// within the readiness timeout. Nothing is posted in that case.
var ErrPageNotReady = errors.New("supplier page never became ready")

// IngestPoster is the slice of the backend client the scraper needs.
type IngestPoster interface {
	PostDetails(ctx context.Context, productID, correlationID string, payload map[string]any) error
}

// Scraper is the Go rendition of the injected helper script: it visits a
// supplier product page on behalf of a detail job, waits for the card to
// render, extracts characteristics and posts them to the ingest endpoint
// keyed by the correlation id.
type Scraper struct {
	cfg     config.ArmtekConfig
	fetcher PageFetcher
	parser  *PageParser
	ingest  IngestPoster
}

func New(cfg config.ArmtekConfig, fetcher PageFetcher, ingest IngestPoster) *Scraper {
	return &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		parser:  NewPageParser(),
		ingest:  ingest,
	}
}

// Run executes one scrape. A URL without the correlation token and product id
// was not produced by this system and is skipped as a no-op. The returned
// characteristics are what was posted (also on ingest failure, for callers
// that archive locally).
func (s *Scraper) Run(ctx context.Context, openURL string) (*domain.Characteristics, error) {
	params, ok := domain.ParseOpenURL(openURL)
	if !ok {
		log.Debugf("No correlation params in URL, skipping: %s", openURL)
		return nil, nil
	}

	doc, err := s.waitForReady(ctx, openURL)
	if err != nil {
		log.Warnf("Page not ready for product %s (request %s): %v",
			params.ProductID, params.CorrelationID, err)
		s.sleep(ctx, s.cfg.FailureCloseDelay())
		return nil, err
	}

	// Let late widgets settle before reading the DOM.
	s.sleep(ctx, s.cfg.SettleDelay())

	chars := s.parser.Extract(doc)
	chars.OEMNumbers = s.collectCrossNumbers(ctx, openURL, doc)

	if err := s.ingest.PostDetails(ctx, params.ProductID, params.CorrelationID, chars.Sparse()); err != nil {
		log.Errorf("Failed to post details for product %s (request %s): %v",
			params.ProductID, params.CorrelationID, err)
		s.sleep(ctx, s.cfg.FailureCloseDelay())
		return &chars, err
	}

	log.Infof("✅ Posted details for product %s (request %s)", params.ProductID, params.CorrelationID)
	s.sleep(ctx, s.cfg.SuccessCloseDelay())
	return &chars, nil
}

// waitForReady re-fetches the page at the check interval until the readiness
// predicate holds or the overall timeout expires.
func (s *Scraper) waitForReady(ctx context.Context, openURL string) (*goquery.Document, error) {
	deadline := time.Now().Add(s.cfg.ReadyTimeout())

	for {
		doc, err := s.fetchDocument(ctx, openURL)
		if err != nil {
			log.Debugf("Fetch attempt failed: %v", err)
		} else if s.parser.IsReady(doc) {
			return doc, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrPageNotReady
		}
		if err := s.sleep(ctx, s.cfg.ReadyCheckInterval()); err != nil {
			return nil, err
		}
	}
}

// collectCrossNumbers runs the secondary, shorter wait loop for the lazily
// rendered crosses tab. Missing cross numbers are not a failure.
func (s *Scraper) collectCrossNumbers(ctx context.Context, openURL string, doc *goquery.Document) []string {
	if numbers := s.parser.ExtractOEMNumbers(doc); len(numbers) > 0 {
		return numbers
	}

	deadline := time.Now().Add(s.cfg.CrossTimeout())
	for time.Now().Before(deadline) {
		if err := s.sleep(ctx, s.cfg.ReadyCheckInterval()); err != nil {
			return nil
		}
		fresh, err := s.fetchDocument(ctx, openURL)
		if err != nil {
			continue
		}
		if numbers := s.parser.ExtractOEMNumbers(fresh); len(numbers) > 0 {
			return numbers
		}
	}

	log.Debugf("No cross numbers appeared within %v", s.cfg.CrossTimeout())
	return nil
}

func (s *Scraper) fetchDocument(ctx context.Context, openURL string) (*goquery.Document, error) {
	html, err := s.fetcher.FetchHTML(ctx, openURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *Scraper) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
