package repository

import (
	"context"

	"DealSync/internal/model"

	"gorm.io/gorm"
)

// JobRepository 任务运行记录
type JobRepository interface {
	Create(ctx context.Context, run *model.JobRun) error
	Finish(ctx context.Context, run *model.JobRun) error
	Latest(ctx context.Context, limit int) ([]*model.JobRun, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, run *model.JobRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish 写回状态、结束时间、消息与结果
func (r *jobRepository) Finish(ctx context.Context, run *model.JobRun) error {
	return r.db.WithContext(ctx).Model(&model.JobRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":      run.Status,
		"finished_at": run.FinishedAt,
		"message":     run.Message,
		"result":      run.Result,
	}).Error
}

func (r *jobRepository) Latest(ctx context.Context, limit int) ([]*model.JobRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []*model.JobRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
