package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"elizabeth/agent/internal/domain/task"
	"elizabeth/agent/internal/queue"
	"elizabeth/agent/internal/repository"
	"elizabeth/agent/internal/state"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const maxScrapeRetries = 3

// Agent consumes scrape tasks from the Redis streams and executes them with
// the page scraper. It is the remote counterpart of LocalOpener: the same
// correlation protocol, just with the page visits running on another host.
type Agent struct {
	scraper      ScrapeRunner
	queue        queue.Queue
	stateManager state.JobStateManager
	archive      repository.DetailsArchive
	groupName    string
	minIdleTime  time.Duration
}

func NewAgent(
	scraper ScrapeRunner,
	q queue.Queue,
	stateManager state.JobStateManager,
	archive repository.DetailsArchive,
	groupName string,
	minIdleTime int,
) *Agent {
	return &Agent{
		scraper:      scraper,
		queue:        q,
		stateManager: stateManager,
		archive:      archive,
		groupName:    groupName,
		minIdleTime:  time.Duration(minIdleTime) * time.Second,
	}
}

// RunWorkers blocks, processing scrape and retry tasks until the context is
// cancelled.
func (a *Agent) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	a.runWorkersForStream(ctx, &wg, numWorkers, queue.StreamFor("ScrapeJobTask"), "main")
	a.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), queue.StreamFor("ScrapeRetryTask"), "retry")

	wg.Wait()
	return nil
}

func (a *Agent) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer rescues tasks stuck with a dead consumer.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(a.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimed, err := a.queue.AutoClaim(ctx, a.groupName, consumer, streamName, a.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimed) > 0 {
					log.Infof("🔄 Auto-claimed %d message(s) from %s stream", len(claimed), workerType)
					for _, msg := range claimed {
						if err := a.processMessage(ctx, streamName, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := a.queue.GetTask(ctx, a.groupName, consumer, streamName)
					if err != nil {
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						continue
					}
					if msg != nil {
						if err := a.processMessage(ctx, streamName, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

func (a *Agent) processMessage(ctx context.Context, streamName string, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}
	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	switch taskType {
	case "ScrapeJobTask":
		scrapeTask, err := task.UnmarshalTask[*task.ScrapeJobTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal scrape task data: %w", err)
		}
		a.executeScrape(ctx, scrapeTask.ProductID, scrapeTask.CorrelationID, scrapeTask.ArtID, scrapeTask.OpenURL, 0)

	case "ScrapeRetryTask":
		retryTask, err := task.UnmarshalTask[*task.ScrapeRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task data: %w", err)
		}
		a.executeScrape(ctx, retryTask.ProductID, retryTask.CorrelationID, retryTask.ArtID, retryTask.OpenURL, retryTask.RetryCount)

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := a.queue.AckTask(ctx, streamName, a.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}
	return nil
}

// executeScrape runs one scrape, archiving the posted payload and marking the
// correlation id done. A failed scrape is re-queued with a bounded retry
// count; past the cap the backend's client-side timeout is the authority.
func (a *Agent) executeScrape(ctx context.Context, productID int64, correlationID, artID, openURL string, retryCount int) {
	done, err := a.stateManager.IsCompleted(ctx, correlationID)
	if err != nil {
		log.Errorf("❌ Failed to check job state for %s: %v", correlationID, err)
	} else if done {
		log.Infof("Job %s already completed, skipping", correlationID)
		return
	}

	chars, err := a.scraper.Run(ctx, openURL)
	if err != nil {
		if retryCount+1 >= maxScrapeRetries {
			log.Errorf("❌ Giving up on product %d (request %s) after %d attempts: %v",
				productID, correlationID, retryCount+1, err)
			return
		}
		retryTask := &task.ScrapeRetryTask{
			ProductID:     productID,
			ArtID:         artID,
			CorrelationID: correlationID,
			OpenURL:       openURL,
			RetryCount:    retryCount + 1,
			Error:         err.Error(),
		}
		if _, addErr := a.queue.AddTask(ctx, retryTask); addErr != nil {
			log.Errorf("❌ Failed to re-queue scrape for product %d: %v", productID, addErr)
		} else {
			log.Warnf("🔄 Re-queued scrape for product %d (attempt %d): %v", productID, retryCount+1, err)
		}
		return
	}
	if chars == nil {
		// URL without correlation params; nothing was scraped.
		return
	}

	if err := a.stateManager.MarkCompleted(ctx, correlationID); err != nil {
		log.Errorf("❌ Failed to mark job %s completed: %v", correlationID, err)
	}

	if a.archive != nil {
		if err := a.archive.SaveDetails(ctx, productID, correlationID, chars); err != nil {
			log.Errorf("❌ Failed to archive details for product %d: %v", productID, err)
		}
	}
}
