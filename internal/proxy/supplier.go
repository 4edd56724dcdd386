package proxy

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Supplier hands out proxies for supplier-portal fetches in round-robin
// order. The portal throttles per source address, so rotating through a
// validated pool spreads the load.
type Supplier interface {
	Get() string
}

type supplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewSupplier validates the configured proxies against the portal base URL in
// parallel and keeps only the working ones. An empty pool is fine: Get then
// returns "" and fetches go direct.
func NewSupplier(ctx context.Context, proxies []string, testURL string) (Supplier, error) {
	if len(proxies) == 0 {
		return &supplier{}, nil
	}

	log.Infof("Testing %d proxies against %s", len(proxies), testURL)

	validCh := make(chan string, len(proxies))
	semaphore := make(chan struct{}, 50)
	var wg sync.WaitGroup

	for _, proxyURL := range proxies {
		wg.Add(1)
		go func(proxy string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if isProxyValid(ctx, proxy, testURL) {
				validCh <- proxy
			} else {
				log.Infof("❌ Proxy %s is not working, skipping", proxy)
			}
		}(proxyURL)
	}

	wg.Wait()
	close(validCh)

	valid := make([]string, 0, len(proxies))
	for proxy := range validCh {
		valid = append(valid, proxy)
	}

	log.Infof("✅ Proxy pool ready: %d working out of %d tested", len(valid), len(proxies))

	return &supplier{proxies: valid}, nil
}

// Get returns the next proxy URL in round-robin fashion
func (p *supplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func isProxyValid(ctx context.Context, proxyURL, testURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)
	if err != nil {
		log.Debugf("Proxy test failed for %s: %v", proxyURL, err)
		return false
	}

	return !resp.IsError()
}
