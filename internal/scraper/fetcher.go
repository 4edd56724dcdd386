package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// PageFetcher retrieves supplier page HTML. Kept narrow so the scrape
// workflow can be tested against canned documents.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

type pageFetcher struct {
	rl            ratelimit.Limiter
	cfg           config.ArmtekConfig
	httpClient    *resty.Client
	proxySupplier proxy.Supplier

	// Circuit breaker for supplier-side blocks (login wall, access page).
	breakerMutex sync.RWMutex
	blockedUntil time.Time
	breakerDelay time.Duration
}

// Markers of pages the portal serves instead of a product card. These are
// detected, never solved: a blocked fetch is a failed scrape.
var blockMarkers = []string{
	"Доступ ограничен",
	"Превышен лимит запросов",
	"g-recaptcha",
	"name=\"login\"",
}

func NewPageFetcher(cfg config.ArmtekConfig, proxySupplier proxy.Supplier) PageFetcher {
	httpClient := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.5").
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			httpClient.SetProxy(proxyURL)
			log.Infof("Using initial proxy: %s", proxyURL)
		}
	}

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &pageFetcher{
		rl:            ratelimit.New(rps),
		cfg:           cfg,
		httpClient:    httpClient,
		proxySupplier: proxySupplier,
		breakerDelay:  10 * time.Minute,
	}
}

func (f *pageFetcher) isBreakerOpen() bool {
	f.breakerMutex.RLock()
	defer f.breakerMutex.RUnlock()
	return time.Now().Before(f.blockedUntil)
}

func (f *pageFetcher) tripBreaker() {
	f.breakerMutex.Lock()
	defer f.breakerMutex.Unlock()

	f.blockedUntil = time.Now().Add(f.breakerDelay)
	log.Warnf("🚫 Supplier block detected, fetches disabled until %s", f.blockedUntil.Format("15:04:05"))
}

func isBlockedPage(html string) bool {
	for _, marker := range blockMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

func (f *pageFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	if f.isBreakerOpen() {
		f.breakerMutex.RLock()
		remaining := time.Until(f.blockedUntil).Round(time.Second)
		f.breakerMutex.RUnlock()
		return "", fmt.Errorf("supplier fetches disabled for %v more", remaining)
	}

	f.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	resp, err := f.httpClient.R().
		SetContext(reqCtx).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	html := resp.String()
	if isBlockedPage(html) {
		log.Warnf("🚫 Block page served for URL: %s", url)

		// One immediate retry through a fresh proxy before giving up.
		if f.proxySupplier != nil {
			if newProxy := f.proxySupplier.Get(); newProxy != "" {
				log.Infof("🔄 Switching to proxy %s and retrying", newProxy)
				f.httpClient.SetProxy(newProxy)

				retryResp, retryErr := f.httpClient.R().
					SetContext(reqCtx).
					Get(url)
				if retryErr == nil && !retryResp.IsError() {
					retryHTML := retryResp.String()
					if !isBlockedPage(retryHTML) {
						return retryHTML, nil
					}
				}
			}
		}

		f.tripBreaker()
		return "", fmt.Errorf("supplier served a block page")
	}

	return html, nil
}
