package api

import (
	"DealSync/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由；cron 与 admin 分别使用各自的 Bearer 令牌
func RegisterRoutes(r *gin.Engine, auth config.AuthConfig, deals *DealHandler, sync *SyncHandler) {
	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)

	r.GET("/health", Health)

	pub := r.Group("/api")
	pub.GET("/regions", ListRegions)
	pub.GET("/region/suggest", SuggestRegion)
	pub.GET("/deals", deals.ListDeals)
	pub.GET("/deals/featured", deals.Featured)
	pub.GET("/deals/trending", deals.Trending)
	pub.GET("/freebies", deals.Freebies)
	pub.GET("/games/:slug", deals.GameBySlug)

	cron := r.Group("/api/cron", BearerAuth(auth.CronSecret))
	cron.POST("/sync-deals", sync.CronSyncDeals)

	admin := r.Group("/api/admin", BearerAuth(auth.AdminToken))
	admin.POST("/jobs/:job", sync.RunJob)
	admin.GET("/jobs", sync.ListJobs)
	admin.GET("/source/games/:id", sync.SourceGame)
}
