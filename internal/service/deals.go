package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"DealSync/internal/model"
	"DealSync/internal/region"
	"DealSync/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize  = 24
	maxPageSize      = 100
	historyWindow    = 90 * 24 * time.Hour
	similarGameLimit = 6
)

// QueryCache 读接口缓存；scope 为国家码，同步完成后 Bump 使旧结果失效
type QueryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Generation(ctx context.Context, scope string) (int64, error)
	Bump(ctx context.Context, scope string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, interface{}) error         { return nil }
func (noopCache) Generation(context.Context, string) (int64, error)      { return 0, nil }
func (noopCache) Bump(context.Context, string) error                     { return nil }

// DealPage 分页结果
type DealPage struct {
	Country    string        `json:"country"`
	Items      []*model.Deal `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"totalPages"`
}

// GameDetail 游戏详情页数据
type GameDetail struct {
	Game         *model.Game   `json:"game"`
	SimilarGames []*model.Game `json:"similarGames"`
}

// DealQueryService 读层：筛选/排序/分页
type DealQueryService struct {
	deals   repository.DealRepository
	catalog repository.CatalogRepository
	cache   QueryCache
	logger  *logrus.Logger
	now     func() time.Time
}

func NewDealQueryService(deals repository.DealRepository, catalog repository.CatalogRepository, cache QueryCache, logger *logrus.Logger) *DealQueryService {
	if cache == nil {
		cache = noopCache{}
	}
	return &DealQueryService{
		deals:   deals,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListDeals 国家按目录规范化；默认按折扣排序、每页24条（上限100）
func (s *DealQueryService) ListDeals(ctx context.Context, filter repository.DealFilter) (*DealPage, error) {
	filter.Country = region.Resolve(filter.Country).Code
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Page > repository.MaxPage {
		filter.Page = repository.MaxPage
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.Sort == "" {
		filter.Sort = repository.SortDiscount
	}

	key := s.cacheKey(ctx, "deals", filter.Country, filter)
	var cached DealPage
	if key != "" {
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("读取查询缓存失败")
		} else if hit {
			return &cached, nil
		}
	}

	items, total, err := s.deals.ListDeals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("查询折扣列表失败: %w", err)
	}
	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	page := &DealPage{
		Country:    filter.Country,
		Items:      items,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, page); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("写入查询缓存失败")
		}
	}
	return page, nil
}

// Featured 折扣最高
func (s *DealQueryService) Featured(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	return s.top(ctx, country, repository.SortDiscount, limit)
}

// Trending 最近确认
func (s *DealQueryService) Trending(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	return s.top(ctx, country, repository.SortLatest, limit)
}

func (s *DealQueryService) top(ctx context.Context, country, sort string, limit int) ([]*model.Deal, error) {
	if limit <= 0 {
		limit = 10
	}
	page, err := s.ListDeals(ctx, repository.DealFilter{Country: country, Sort: sort, Page: 1, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Freebies 售价为0的折扣，按最近确认排序
func (s *DealQueryService) Freebies(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	code := region.Resolve(country).Code
	key := s.cacheKey(ctx, "freebies", code, limit)
	if key != "" {
		var cached []*model.Deal
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	list, err := s.deals.ListFreebies(ctx, code, limit)
	if err != nil {
		return nil, fmt.Errorf("查询免费游戏失败: %w", err)
	}
	if key != "" {
		if err := s.cache.Set(ctx, key, list); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("写入查询缓存失败")
		}
	}
	return list, nil
}

// GameBySlug 游戏详情 + 该国家折扣 + 近90天快照 + 相似游戏；不存在时返回 repository.ErrNotFound
func (s *DealQueryService) GameBySlug(ctx context.Context, slug, country string) (*GameDetail, error) {
	code := region.Resolve(country).Code
	game, err := s.deals.GetGameDetail(ctx, slug, code, s.now().Add(-historyWindow))
	if err != nil {
		return nil, err
	}
	similar, err := s.catalog.ListSimilarGames(ctx, game.ID, code, similarGameLimit)
	if err != nil {
		return nil, fmt.Errorf("查询相似游戏失败: %w", err)
	}
	return &GameDetail{Game: game, SimilarGames: similar}, nil
}

// cacheKey {kind}:{country}:g{generation}:{参数摘要}；代数读取失败时不走缓存
func (s *DealQueryService) cacheKey(ctx context.Context, kind, country string, params interface{}) string {
	gen, err := s.cache.Generation(ctx, country)
	if err != nil {
		s.logger.WithError(err).Warn("读取缓存代数失败，跳过缓存")
		return ""
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%s:g%d:%s", kind, country, gen, hex.EncodeToString(sum[:8]))
}
