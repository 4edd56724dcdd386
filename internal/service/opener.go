package service

import (
	"context"

	"elizabeth/agent/internal/domain"
	"elizabeth/agent/internal/domain/task"
	"elizabeth/agent/internal/queue"

	log "github.com/sirupsen/logrus"
)

// ScrapeRunner is the slice of the scraper the local opener needs.
type ScrapeRunner interface {
	Run(ctx context.Context, openURL string) (*domain.Characteristics, error)
}

// LocalOpener runs the scrape in-process. Dispatch is fire-and-forget, like
// window.open: the flow learns the result through polling, not from the
// scrape itself.
type LocalOpener struct {
	scraper ScrapeRunner
}

func NewLocalOpener(scraper ScrapeRunner) *LocalOpener {
	return &LocalOpener{scraper: scraper}
}

func (o *LocalOpener) Open(ctx context.Context, job domain.DetailJob) error {
	go func() {
		if _, err := o.scraper.Run(ctx, job.OpenURL); err != nil {
			log.Debugf("Scrape for product %d finished with error: %v", job.ProductID, err)
		}
	}()
	return nil
}

// QueueOpener hands the job to a remote agent over the Redis stream queue.
type QueueOpener struct {
	queue queue.Queue
}

func NewQueueOpener(q queue.Queue) *QueueOpener {
	return &QueueOpener{queue: q}
}

func (o *QueueOpener) Open(ctx context.Context, job domain.DetailJob) error {
	_, err := o.queue.AddTask(ctx, &task.ScrapeJobTask{
		ProductID:     job.ProductID,
		ArtID:         job.ArtID,
		CorrelationID: job.CorrelationID,
		OpenURL:       job.OpenURL,
	})
	return err
}
