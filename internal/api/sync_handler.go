package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"DealSync/internal/interfaces"
	"DealSync/internal/model"
	"DealSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JobLister 最近任务记录
type JobLister interface {
	Latest(ctx context.Context, limit int) ([]*model.JobRun, error)
}

// SyncHandler 定时触发 + 管理接口
type SyncHandler struct {
	job    service.DealsJobRunner
	jobs   JobLister
	source interfaces.NamedAdapter
	logger *logrus.Logger
}

func NewSyncHandler(job service.DealsJobRunner, jobs JobLister, source interfaces.NamedAdapter, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		job:    job,
		jobs:   jobs,
		source: source,
		logger: logger,
	}
}

// runJobRequest 手动触发任务的请求体，countries 为空时使用默认国家
type runJobRequest struct {
	Countries []string `json:"countries" binding:"omitempty,dive,len=2,alpha"`
}

// CronSyncDeals 外部定时器触发的折扣同步（默认国家）
// POST /api/cron/sync-deals
func (h *SyncHandler) CronSyncDeals(c *gin.Context) {
	result, err := h.job.Run(c.Request.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("定时折扣同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

// RunJob 手动触发任务，目前只有 deals
// POST /api/admin/jobs/:job  body: {"countries": ["US","GB"]}
func (h *SyncHandler) RunJob(c *gin.Context) {
	name := c.Param("job")
	if name != "deals" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job: " + name})
		return
	}

	var req runJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.job.Run(c.Request.Context(), req.Countries)
	if err != nil {
		h.logger.WithError(err).WithField("countries", req.Countries).Error("手动折扣同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "job": name, "result": result})
}

// ListJobs 运维状态页
// GET /api/admin/jobs?limit=20
func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.jobs.Latest(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("ListJobs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

// SourceGame 直接查询数据源的游戏详情与历史价格（排查用）
// GET /api/admin/source/games/:id
func (h *SyncHandler) SourceGame(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	log := h.logger.WithFields(logrus.Fields{"adapter": h.source.Name, "external_id": id})

	details, err := h.source.Adapter.GetGameDetails(ctx, id)
	if err != nil {
		log.WithError(err).Error("查询数据源游戏详情失败")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	history, err := h.source.Adapter.GetPriceHistory(ctx, id)
	if err != nil {
		log.WithError(err).Warn("查询数据源历史价格失败")
		history = nil
	}
	c.JSON(http.StatusOK, gin.H{"adapter": h.source.Name, "game": details, "history": history})
}
