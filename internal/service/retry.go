package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/progress"
	"github.com/MimeLyc/chapter-translator/pkg/icron"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

// NewJobExecutor runs queued chapter jobs through t.
func NewJobExecutor(t *ChapterTranslator) jobs.Executor {
	return func(ctx context.Context, job *jobs.TranslationJob, report progress.Observer) error {
		p := job.Payload
		log.Info("Running job %s for chapter %d (attempt %d)", job.ID, p.ChapterID, job.Attempts)
		return t.TranslateChapter(ctx, ChapterInput{
			ChapterID:   p.ChapterID,
			NovelID:     p.NovelID,
			PluginID:    p.PluginID,
			ChapterName: p.ChapterName,
			NovelName:   p.NovelName,
		}, report)
	}
}

type WaitingRequeuer interface {
	RequeueWaiting() int
}

// RetryScheduler periodically wakes jobs parked on missing content.
type RetryScheduler struct {
	cronExpr string
	cron     *cron.Cron
	queue    WaitingRequeuer
	group    singleflight.Group
}

func NewRetryScheduler(cronExpr string, c *cron.Cron, queue WaitingRequeuer) *RetryScheduler {
	return &RetryScheduler{
		cronExpr: cronExpr,
		cron:     c,
		queue:    queue,
	}
}

// Schedule registers the sweep; the caller owns starting and stopping the cron.
func (s *RetryScheduler) Schedule() error {
	if _, err := s.cron.AddFunc(s.cronExpr, func() { s.Sweep() }); err != nil {
		return err
	}
	if info, err := icron.GetTriggerInfo(s.cronExpr, time.Now()); err == nil {
		log.Info("Retry sweep scheduled (%s), next run at %s", s.cronExpr, info.Next.Format(time.RFC3339))
	}
	return nil
}

// Sweep requeues waiting jobs. Overlapping calls share one sweep.
func (s *RetryScheduler) Sweep() int {
	v, _, _ := s.group.Do("requeue", func() (any, error) {
		n := s.queue.RequeueWaiting()
		if n > 0 {
			log.Info("Requeued %d waiting chapter jobs", n)
		}
		return n, nil
	})
	n, _ := v.(int)
	return n
}
