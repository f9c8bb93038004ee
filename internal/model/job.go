package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobRun 后台任务运行记录（运维状态页）
type JobRun struct {
	ID         string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	JobName    string         `gorm:"column:job_name;type:varchar(64);not null;index" json:"jobName"`
	Status     JobStatus      `gorm:"column:status;type:varchar(16);not null" json:"status"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamp;not null;index" json:"startedAt"`
	FinishedAt *time.Time     `gorm:"column:finished_at;type:timestamp" json:"finishedAt,omitempty"`
	Message    *string        `gorm:"column:message;type:text" json:"message,omitempty"`
	Result     datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
}

func (JobRun) TableName() string { return "job_runs" }

func (j *JobRun) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}

// AllModels AutoMigrate 用的模型列表
func AllModels() []interface{} {
	return []interface{}{
		&Store{},
		&Game{},
		&GameImage{},
		&Deal{},
		&PriceSnapshot{},
		&JobRun{},
	}
}
