package scheduler

import (
	"context"
	"time"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single scheduled run
const jobTimeout = 5 * time.Minute

// IndexRebuilder reloads the in-memory indexes from the database
type IndexRebuilder interface {
	RebuildIndexes(ctx context.Context) error
}

// CacheWarmer precomputes cached aggregations
type CacheWarmer interface {
	Warm(ctx context.Context) error
}

// DirectoryScheduler 인덱스 재구성 및 집계 캐시 갱신 스케줄러
type DirectoryScheduler struct {
	cron    *cron.Cron
	cfg     config.SchedulerConfig
	indexes IndexRebuilder
	warmer  CacheWarmer
}

// NewDirectoryScheduler 스케줄러 생성
func NewDirectoryScheduler(cfg config.SchedulerConfig, indexes IndexRebuilder, warmer CacheWarmer) *DirectoryScheduler {
	return &DirectoryScheduler{
		cron:    cron.New(),
		cfg:     cfg,
		indexes: indexes,
		warmer:  warmer,
	}
}

// Start 스케줄러 시작
func (s *DirectoryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.IndexRebuild, s.RunIndexRebuild); err != nil {
		logger.Error("Failed to add cron job for index rebuild", err, map[string]interface{}{
			"spec": s.cfg.IndexRebuild,
		})
		return err
	}

	if _, err := s.cron.AddFunc(s.cfg.CacheWarmup, s.RunCacheWarmup); err != nil {
		logger.Error("Failed to add cron job for cache warmup", err, map[string]interface{}{
			"spec": s.cfg.CacheWarmup,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Directory scheduler started", map[string]interface{}{
		"index_rebuild": s.cfg.IndexRebuild,
		"cache_warmup":  s.cfg.CacheWarmup,
	})
	return nil
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 기다린다
func (s *DirectoryScheduler) Stop() {
	logger.Info("Stopping directory scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Directory scheduler stopped")
}

func (s *DirectoryScheduler) RunIndexRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger.Info("Starting scheduled index rebuild")
	if err := s.indexes.RebuildIndexes(ctx); err != nil {
		logger.Error("Scheduled index rebuild failed", err)
		return
	}
	logger.Info("Scheduled index rebuild finished")
}

func (s *DirectoryScheduler) RunCacheWarmup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.warmer.Warm(ctx); err != nil {
		logger.Error("Scheduled cache warmup failed", err)
	}
}
