package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DealsJobRunner 由调度器触发的任务
type DealsJobRunner interface {
	Run(ctx context.Context, countries []string) (*SyncDealsResult, error)
}

// Scheduler 进程内定时同步，显式构造并由 main 管理启停
type Scheduler struct {
	cron    *cron.Cron
	job     DealsJobRunner
	timeout time.Duration
	logger  *logrus.Logger
}

func NewScheduler(job DealsJobRunner, timeout time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		job:     job,
		timeout: timeout,
		logger:  logger,
	}
}

// Schedule 注册折扣同步，expr 为 cron 表达式或 @daily/@every 1h 等描述符
func (s *Scheduler) Schedule(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.runOnce); err != nil {
		return fmt.Errorf("注册定时任务失败(cron=%s): %w", expr, err)
	}
	s.logger.WithField("cron", expr).Info("折扣同步定时任务已注册")
	return nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	result, err := s.job.Run(ctx, nil)
	if err != nil {
		s.logger.WithError(err).Error("定时折扣同步失败")
		return
	}
	s.logger.WithField("countries", len(result.Countries)).Info("定时折扣同步完成")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}
