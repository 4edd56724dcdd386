package container

import (
	"context"
	"fmt"

	"elizabeth/agent/internal/api"
	"elizabeth/agent/internal/config"
	"elizabeth/agent/internal/proxy"
	"elizabeth/agent/internal/queue"
	"elizabeth/agent/internal/repository"
	"elizabeth/agent/internal/scraper"
	"elizabeth/agent/internal/service"
	"elizabeth/agent/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// AgentContainer holds the components of the queue-consuming scraper agent.
type AgentContainer struct {
	Config *config.Config
	API    api.Client
	Agent  *service.Agent

	redis *redis.Client
	db    *pgxpool.Pool
}

// NewAgent wires the agent: Redis streams in, supplier pages fetched through
// the shared scraper, results posted to the backend and archived in Postgres.
func NewAgent(cfg *config.Config) (*AgentContainer, error) {
	container := &AgentContainer{
		Config: cfg,
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	container.redis = rdb
	log.Info("✅ Connected to Redis successfully")

	taskQueue, err := queue.NewRedisQueue(rdb, cfg.Redis)
	if err != nil {
		return nil, err
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)
	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	container.db = db
	log.Info("✅ Connected to database successfully")

	archive := repository.NewDetailsArchive(db)
	stateManager := state.NewRedisJobStateManager(rdb)

	apiClient := api.NewClient(cfg.Backend)
	container.API = apiClient

	proxySupplier, err := proxy.NewSupplier(context.Background(), cfg.Armtek.Proxies, cfg.Armtek.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize proxy supplier: %w", err)
	}

	fetcher := scraper.NewPageFetcher(cfg.Armtek, proxySupplier)
	pageScraper := scraper.New(cfg.Armtek, fetcher, apiClient)

	container.Agent = service.NewAgent(
		pageScraper,
		taskQueue,
		stateManager,
		archive,
		cfg.Redis.ConsumerGroup,
		cfg.Redis.MinIdleTime,
	)

	return container, nil
}

// Run authenticates against the backend and blocks consuming scrape tasks
// until the context is cancelled.
func (c *AgentContainer) Run(ctx context.Context) error {
	if _, err := c.API.Login(ctx); err != nil {
		return fmt.Errorf("backend login failed: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Agent.RunWorkers(ctx, c.Config.Agent.MaxWorkers)
	})
	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *AgentContainer) Close() error {
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
