package container

import (
	"context"
	"fmt"
	"os"

	"elizabeth/agent/internal/api"
	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/poller"
	"elizabeth/agent/internal/proxy"
	"elizabeth/agent/internal/queue"
	"elizabeth/agent/internal/render"
	"elizabeth/agent/internal/scraper"
	"elizabeth/agent/internal/service"
	"elizabeth/agent/internal/session"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components of the interactive client.
type Container struct {
	Config  *config.Config
	API     api.Client
	Scraper *scraper.Scraper
	Poller  *poller.Poller
	Session *session.Session
	Service *service.Service

	redis *redis.Client
}

// New creates a new container with all dependencies initialized. Dispatch of
// detail jobs is in-process by default; with dispatch_mode "queue" the jobs
// go to a remote agent over Redis streams.
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	apiClient := api.NewClient(cfg.Backend)
	container.API = apiClient

	proxySupplier, err := proxy.NewSupplier(context.Background(), cfg.Armtek.Proxies, cfg.Armtek.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	fetcher := scraper.NewPageFetcher(cfg.Armtek, proxySupplier)
	pageScraper := scraper.New(cfg.Armtek, fetcher, apiClient)
	container.Scraper = pageScraper

	pollr := poller.New(apiClient, cfg.Details.PollInterval(), cfg.Details.PollTimeout())
	container.Poller = pollr

	sess := session.New()
	container.Session = sess

	var opener service.Opener
	if cfg.Details.DispatchMode == "queue" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		taskQueue, err := queue.NewRedisQueue(rdb, cfg.Redis)
		if err != nil {
			return nil, err
		}
		container.redis = rdb
		opener = service.NewQueueOpener(taskQueue)
	} else {
		opener = service.NewLocalOpener(pageScraper)
	}

	renderer := render.NewTableRenderer(os.Stdout)
	confirmer := service.NewTerminalConfirmer(os.Stdin, os.Stdout)

	container.Service = service.NewService(
		apiClient,
		pollr,
		sess,
		opener,
		confirmer,
		renderer,
		cfg.Details,
	)

	return container, nil
}

// Run executes one interactive cycle: authenticate, search the given omni
// input, collect characteristics for every processable row and offer a retry
// for what failed.
func (c *Container) Run(ctx context.Context, input string) error {
	if _, err := c.API.Login(ctx); err != nil {
		return err
	}

	if creds, err := c.API.ArmtekCredentials(ctx); err != nil {
		log.Warnf("⚠️ Could not check supplier credentials: %v", err)
	} else if creds == nil {
		log.Warn("⚠️ No supplier credentials stored; searches may be rejected")
	}

	if err := c.Service.Search(ctx, input); err != nil {
		return err
	}

	if len(c.Session.Rows()) == 0 {
		return nil
	}

	if err := c.Service.CollectDetails(ctx); err != nil {
		return err
	}

	if c.Service.CanRetryFailed() {
		if err := c.Service.RetryFailed(ctx); err != nil {
			log.Warnf("⚠️ Retry of failed rows did not run: %v", err)
		}
	}

	// One final batch poll: rows whose serialized poll timed out may have
	// resolved on the backend in the meantime.
	if err := c.Service.RefreshStatuses(ctx); err != nil {
		log.Warnf("⚠️ Final status refresh failed: %v", err)
	}

	return nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	c.Service.Teardown()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
