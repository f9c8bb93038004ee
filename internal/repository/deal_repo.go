package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DealSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 排序方式
const (
	SortDiscount  = "discount"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortLatest    = "latest"
)

// DealRepository 折扣与价格快照仓储
type DealRepository interface {
	UpsertDeal(ctx context.Context, deal *model.Deal) error
	UpsertSnapshot(ctx context.Context, snap *model.PriceSnapshot) error
	// ExpireStale 删除该国家 last_seen_at 早于 cutoff 的折扣，快照不受影响
	ExpireStale(ctx context.Context, country string, cutoff time.Time) (int64, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]*model.Deal, int64, error)
	ListFreebies(ctx context.Context, country string, limit int) ([]*model.Deal, error)
	GetGameDetail(ctx context.Context, slug, country string, since time.Time) (*model.Game, error)
}

// MaxPage 列表最大页码
const MaxPage = 10000

// DealFilter 折扣列表筛选
type DealFilter struct {
	Country       string
	Search        string   // 标题包含（不区分大小写）
	Stores        []string // 商店 slug
	MinDiscount   int
	MinPriceCents *int64
	MaxPriceCents *int64
	Sort          string
	Page          int
	PageSize      int
}

type dealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) UpsertDeal(ctx context.Context, deal *model.Deal) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}, {Name: "store_id"}, {Name: "country"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"currency", "price_cents", "original_price_cents", "discount_percent",
			"url", "start_at", "end_at", "last_seen_at", "updated_at",
		}),
	}).Create(deal).Error
	if err != nil {
		return fmt.Errorf("写入折扣失败(game=%s, store=%s, country=%s): %w", deal.GameID, deal.StoreID, deal.Country, err)
	}
	return nil
}

func (r *dealRepository) UpsertSnapshot(ctx context.Context, snap *model.PriceSnapshot) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}, {Name: "store_id"}, {Name: "country"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"currency", "price_cents", "original_price_cents", "discount_percent",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("写入价格快照失败(game=%s, store=%s, country=%s): %w", snap.GameID, snap.StoreID, snap.Country, err)
	}
	return nil
}

func (r *dealRepository) ExpireStale(ctx context.Context, country string, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("country = ? AND last_seen_at < ?", country, cutoff.UTC()).
		Delete(&model.Deal{})
	if res.Error != nil {
		return 0, fmt.Errorf("清理过期折扣失败(country=%s): %w", country, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *dealRepository) ListDeals(ctx context.Context, filter DealFilter) ([]*model.Deal, int64, error) {
	page, pageSize := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize <= 0 {
		pageSize = 24
	}
	if pageSize > 100 {
		pageSize = 100
	}

	db := r.db.WithContext(ctx).Model(&model.Deal{}).Where("country = ?", filter.Country)
	if filter.MinDiscount > 0 {
		db = db.Where("discount_percent >= ?", filter.MinDiscount)
	}
	if filter.MinPriceCents != nil {
		db = db.Where("price_cents >= ?", *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		db = db.Where("price_cents <= ?", *filter.MaxPriceCents)
	}
	if len(filter.Stores) > 0 {
		db = db.Where("store_id IN (?)", r.db.Model(&model.Store{}).Select("id").Where("slug IN ?", filter.Stores))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		db = db.Where("game_id IN (?)", r.db.Model(&model.Game{}).Select("id").Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%"))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []*model.Deal
	err := db.Order(orderBy(filter.Sort)).
		Preload("Game.Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Store").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func orderBy(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price_cents ASC, id ASC"
	case SortPriceDesc:
		return "price_cents DESC, id ASC"
	case SortLatest:
		return "last_seen_at DESC, id ASC"
	default:
		return "discount_percent DESC, id ASC"
	}
}

func (r *dealRepository) ListFreebies(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []*model.Deal
	err := r.db.WithContext(ctx).
		Where("country = ? AND price_cents = 0", country).
		Preload("Game.Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Store").
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *dealRepository) GetGameDetail(ctx context.Context, slug, country string, since time.Time) (*model.Game, error) {
	var g model.Game
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Deals", func(db *gorm.DB) *gorm.DB {
			return db.Where("country = ?", country).Order("price_cents ASC")
		}).
		Preload("Deals.Store").
		Preload("Snapshots", func(db *gorm.DB) *gorm.DB {
			return db.Where("country = ? AND date >= ?", country, model.SnapshotDate(since)).Order("date ASC")
		}).
		Preload("Snapshots.Store").
		First(&g).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}
