package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/repository"
)

type mockMatchLogRepo struct {
	mu         sync.Mutex
	deleted    int64
	lastCutoff time.Time
}

func (m *mockMatchLogRepo) Create(ctx context.Context, outcome model.MatchOutcome, userIDs []string) (*model.MatchLog, error) {
	return nil, nil
}

func (m *mockMatchLogRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.MatchLog, error) {
	return nil, nil
}

func (m *mockMatchLogRepo) CountByOutcome(ctx context.Context, outcome model.MatchOutcome) (int, error) {
	return 0, nil
}

func (m *mockMatchLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCutoff = cutoff
	return m.deleted, nil
}

func (m *mockMatchLogRepo) cutoff() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCutoff
}

func (m *mockMatchLogRepo) WithTx(tx *sqlx.Tx) repository.MatchLogRepository {
	return m
}

func TestCleanupPurgesPastRetention(t *testing.T) {
	repo := &mockMatchLogRepo{deleted: 7}
	job := NewCleanupJob(repo, 90, time.Hour)

	job.cleanup()

	expected := time.Now().AddDate(0, 0, -90)
	assert.WithinDuration(t, expected, repo.cutoff(), time.Minute)
}

func TestCleanupStartRunsImmediately(t *testing.T) {
	repo := &mockMatchLogRepo{}
	job := NewCleanupJob(repo, 30, time.Hour)

	job.Start()
	defer job.Stop()

	assert.Eventually(t, func() bool {
		return !repo.cutoff().IsZero()
	}, time.Second, 10*time.Millisecond)
}
