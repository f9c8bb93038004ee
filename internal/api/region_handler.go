package api

import (
	"net/http"

	"DealSync/internal/region"

	"github.com/gin-gonic/gin"
)

// ListRegions GET /api/regions
func ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"default": region.DefaultCountry, "countries": region.All()})
}

// SuggestRegion 根据 Accept-Language 推测国家
// GET /api/region/suggest
func SuggestRegion(c *gin.Context) {
	code := region.SuggestFromAcceptLanguage(c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, gin.H{"country": region.Resolve(code)})
}

// Health GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
