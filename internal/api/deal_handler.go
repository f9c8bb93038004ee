package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"DealSync/internal/model"
	"DealSync/internal/region"
	"DealSync/internal/repository"
	"DealSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DealQuerier 折扣读接口
type DealQuerier interface {
	ListDeals(ctx context.Context, filter repository.DealFilter) (*service.DealPage, error)
	Featured(ctx context.Context, country string, limit int) ([]*model.Deal, error)
	Trending(ctx context.Context, country string, limit int) ([]*model.Deal, error)
	Freebies(ctx context.Context, country string, limit int) ([]*model.Deal, error)
	GameBySlug(ctx context.Context, slug, country string) (*service.GameDetail, error)
}

// DealHandler 提供给前端的折扣查询接口
type DealHandler struct {
	query  DealQuerier
	logger *logrus.Logger
}

func NewDealHandler(query DealQuerier, logger *logrus.Logger) *DealHandler {
	return &DealHandler{query: query, logger: logger}
}

type listDealsQuery struct {
	Country     string `form:"country" binding:"omitempty,len=2"`
	Search      string `form:"q"`
	Stores      string `form:"stores"`
	MinDiscount int    `form:"min_discount" binding:"omitempty,gte=0,lte=100"`
	MinPrice    *int64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice    *int64 `form:"max_price" binding:"omitempty,gte=0"`
	Sort        string `form:"sort" binding:"omitempty,oneof=discount price_asc price_desc latest"`
	Page        int    `form:"page" binding:"omitempty,gte=1,lte=10000"`
	PageSize    int    `form:"page_size" binding:"omitempty,gte=1"`
}

// dealView 折扣 + 按国家格式化后的价格
type dealView struct {
	*model.Deal
	Price         string `json:"price"`
	OriginalPrice string `json:"originalPrice"`
}

func toViews(deals []*model.Deal) []dealView {
	out := make([]dealView, 0, len(deals))
	for _, d := range deals {
		out = append(out, dealView{
			Deal:          d,
			Price:         region.FormatMoney(d.PriceCents, d.Country, d.Currency),
			OriginalPrice: region.FormatMoney(d.OriginalPriceCents, d.Country, d.Currency),
		})
	}
	return out
}

// ListDeals 折扣列表
// GET /api/deals?country=US&q=&stores=steam,epic-games-store&min_discount=50&sort=discount&page=1&page_size=24
func (h *DealHandler) ListDeals(c *gin.Context) {
	var q listDealsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := repository.DealFilter{
		Country:       q.Country,
		Search:        q.Search,
		Stores:        splitList(q.Stores),
		MinDiscount:   q.MinDiscount,
		MinPriceCents: q.MinPrice,
		MaxPriceCents: q.MaxPrice,
		Sort:          q.Sort,
		Page:          q.Page,
		PageSize:      q.PageSize,
	}
	page, err := h.query.ListDeals(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("ListDeals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"country":    page.Country,
		"items":      toViews(page.Items),
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"total":      page.Total,
		"totalPages": page.TotalPages,
	})
}

// Featured GET /api/deals/featured?country=US&limit=10
func (h *DealHandler) Featured(c *gin.Context) {
	h.respondList(c, "Featured", h.query.Featured)
}

// Trending GET /api/deals/trending?country=US&limit=10
func (h *DealHandler) Trending(c *gin.Context) {
	h.respondList(c, "Trending", h.query.Trending)
}

// Freebies GET /api/freebies?country=US&limit=10
func (h *DealHandler) Freebies(c *gin.Context) {
	h.respondList(c, "Freebies", h.query.Freebies)
}

func (h *DealHandler) respondList(c *gin.Context, name string, fetch func(context.Context, string, int) ([]*model.Deal, error)) {
	country := region.Resolve(c.Query("country")).Code
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit > 50 {
		limit = 50
	}

	list, err := fetch(c.Request.Context(), country, limit)
	if err != nil {
		h.logger.WithError(err).Error(name + " failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": country, "items": toViews(list)})
}

// GameBySlug 游戏详情
// GET /api/games/:slug?country=US
func (h *DealHandler) GameBySlug(c *gin.Context) {
	slug := c.Param("slug")
	country := region.Resolve(c.Query("country")).Code

	detail, err := h.query.GameBySlug(c.Request.Context(), slug, country)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("slug", slug).Error("GameBySlug failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"country":      country,
		"game":         detail.Game,
		"deals":        toViews(dealPtrs(detail.Game.Deals)),
		"similarGames": detail.SimilarGames,
	})
}

func dealPtrs(deals []model.Deal) []*model.Deal {
	out := make([]*model.Deal, len(deals))
	for i := range deals {
		out[i] = &deals[i]
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
