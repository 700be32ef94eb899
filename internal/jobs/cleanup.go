package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/repository"
)

// CleanupJob periodically purges match log entries past the retention
// window. The trail is advisory; nothing reads entries that old.
type CleanupJob struct {
	matchLogRepo  repository.MatchLogRepository
	retentionDays int
	interval      time.Duration
	done          chan struct{}
}

func NewCleanupJob(matchLogRepo repository.MatchLogRepository, retentionDays int, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		matchLogRepo:  matchLogRepo,
		retentionDays: retentionDays,
		interval:      interval,
		done:          make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Int("retentionDays", j.retentionDays).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)
	count, err := j.matchLogRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup match logs")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up match logs")
	}
}
