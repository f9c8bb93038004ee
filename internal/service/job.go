package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"DealSync/internal/model"
	"DealSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// JobNameSyncDeals 折扣同步任务名
const JobNameSyncDeals = "syncDeals"

const jobSuccessMessage = "Completed successfully"

// JobTracker 记录任务的开始/结束/状态/结果
type JobTracker struct {
	repo   repository.JobRepository
	logger *logrus.Logger
	now    func() time.Time
}

func NewJobTracker(repo repository.JobRepository, logger *logrus.Logger) *JobTracker {
	return &JobTracker{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run 先写 RUNNING 记录，再执行 fn；fn 的错误原样返回
func (t *JobTracker) Run(ctx context.Context, jobName string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	run := &model.JobRun{
		JobName:   jobName,
		Status:    model.JobStatusRunning,
		StartedAt: t.now(),
	}
	if err := t.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("创建任务记录失败(job=%s): %w", jobName, err)
	}
	log := t.logger.WithFields(logrus.Fields{"job": jobName, "run_id": run.ID})
	log.Info("任务开始")

	result, runErr := fn(ctx)

	finished := t.now()
	run.FinishedAt = &finished
	if runErr != nil {
		msg := runErr.Error()
		run.Status = model.JobStatusFailed
		run.Message = &msg
	} else {
		msg := jobSuccessMessage
		run.Status = model.JobStatusSuccess
		run.Message = &msg
		if result != nil {
			if b, err := json.Marshal(result); err == nil {
				run.Result = datatypes.JSON(b)
			} else {
				log.WithError(err).Warn("任务结果序列化失败")
			}
		}
	}

	// 调用方 ctx 已取消时仍要写回最终状态
	if err := t.repo.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.WithError(err).Error("更新任务记录失败")
	}

	if runErr != nil {
		log.WithError(runErr).Error("任务失败")
		return nil, runErr
	}
	log.WithField("elapsed", finished.Sub(run.StartedAt).String()).Info("任务完成")
	return result, nil
}

// Latest 运维状态页：最近 limit 条
func (t *JobTracker) Latest(ctx context.Context, limit int) ([]*model.JobRun, error) {
	return t.repo.Latest(ctx, limit)
}

// CountrySyncer 单国家同步
type CountrySyncer interface {
	SyncCountry(ctx context.Context, country string) (*CountrySummary, error)
}

// SyncDealsResult 任务汇总 {countries: [...]}
type SyncDealsResult struct {
	Countries []CountrySummary `json:"countries"`
}

// DealSyncJob 多国家折扣同步任务，国家之间顺序执行
type DealSyncJob struct {
	tracker   *JobTracker
	syncer    CountrySyncer
	countries []string
	logger    *logrus.Logger
}

func NewDealSyncJob(tracker *JobTracker, syncer CountrySyncer, defaultCountries []string, logger *logrus.Logger) *DealSyncJob {
	return &DealSyncJob{
		tracker:   tracker,
		syncer:    syncer,
		countries: defaultCountries,
		logger:    logger,
	}
}

// Run countries 为空时使用配置的默认国家列表；任一国家失败即中止并标记任务失败
func (j *DealSyncJob) Run(ctx context.Context, countries []string) (*SyncDealsResult, error) {
	list := cleanCountries(countries)
	if len(list) == 0 {
		list = cleanCountries(j.countries)
	}

	out, err := j.tracker.Run(ctx, JobNameSyncDeals, func(ctx context.Context) (interface{}, error) {
		res := &SyncDealsResult{Countries: make([]CountrySummary, 0, len(list))}
		for _, c := range list {
			summary, err := j.syncer.SyncCountry(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("同步国家%s失败: %w", c, err)
			}
			res.Countries = append(res.Countries, *summary)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*SyncDealsResult), nil
}

func cleanCountries(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}
