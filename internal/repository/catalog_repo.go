package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DealSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository 商店/游戏/图片仓储
type CatalogRepository interface {
	UpsertStore(ctx context.Context, name, slug string) (*model.Store, error)
	ListStores(ctx context.Context) ([]*model.Store, error)
	FindGameBySlug(ctx context.Context, slug string) (*model.Game, error)
	// UpsertGame 按 slug 写入；非空字段覆盖，空字段保留原值，external_ids 在数据库侧合并
	UpsertGame(ctx context.Context, game *model.Game, storeSlug, externalID string) (*model.Game, error)
	UpsertImage(ctx context.Context, img *model.GameImage) error
	// ApplyMetadata 只填充当前为 NULL 的字段
	ApplyMetadata(ctx context.Context, gameID string, patch MetadataPatch) error
	ListSimilarGames(ctx context.Context, excludeID, country string, limit int) ([]*model.Game, error)
}

// MetadataPatch 元数据补全的候选值，nil 表示不提供
type MetadataPatch struct {
	Description  *string
	Developer    *string
	Publisher    *string
	SystemReqMin *string
	SystemReqRec *string
	SteamAppID   *string
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) UpsertStore(ctx context.Context, name, slug string) (*model.Store, error) {
	store := &model.Store{Name: name, Slug: slug}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(store).Error; err != nil {
		return nil, fmt.Errorf("写入商店失败(slug=%s): %w", slug, err)
	}

	var saved model.Store
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&saved).Error; err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

func (r *catalogRepository) ListStores(ctx context.Context) ([]*model.Store, error) {
	var stores []*model.Store
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *catalogRepository) FindGameBySlug(ctx context.Context, slug string) (*model.Game, error) {
	var g model.Game
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *catalogRepository) UpsertGame(ctx context.Context, game *model.Game, storeSlug, externalID string) (*model.Game, error) {
	ids, err := json.Marshal(map[string]string{storeSlug: externalID})
	if err != nil {
		return nil, err
	}
	game.ExternalIDs = datatypes.JSON(ids)

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.Assignments(gameUpsertAssignments(db)),
	}).Create(game).Error; err != nil {
		return nil, fmt.Errorf("写入游戏失败(slug=%s): %w", game.Slug, err)
	}

	var saved model.Game
	if err := db.Where("slug = ?", game.Slug).First(&saved).Error; err != nil {
		return nil, notFound(err)
	}
	return &saved, nil
}

// gameUpsertAssignments 冲突时的更新表达式；external_ids 用单条语句合并，避免并发同步丢失其他商店的ID
func gameUpsertAssignments(db *gorm.DB) map[string]interface{} {
	coalesce := func(col string) clause.Expr {
		return gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, games.%s)", col, col))
	}
	mergeIDs := gorm.Expr("json_patch(COALESCE(games.external_ids, '{}'), excluded.external_ids)")
	if isPostgres(db) {
		mergeIDs = gorm.Expr("COALESCE(games.external_ids, '{}'::jsonb) || excluded.external_ids")
	}
	return map[string]interface{}{
		"title":          gorm.Expr("excluded.title"),
		"description":    coalesce("description"),
		"release_date":   coalesce("release_date"),
		"developer":      coalesce("developer"),
		"publisher":      coalesce("publisher"),
		"genres":         coalesce("genres"),
		"system_req_min": coalesce("system_req_min"),
		"system_req_rec": coalesce("system_req_rec"),
		"external_ids":   mergeIDs,
		"updated_at":     gorm.Expr("excluded.updated_at"),
	}
}

func (r *catalogRepository) UpsertImage(ctx context.Context, img *model.GameImage) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "type", "sort_order"}),
	}).Create(img).Error
}

func (r *catalogRepository) ApplyMetadata(ctx context.Context, gameID string, patch MetadataPatch) error {
	updates := map[string]interface{}{}
	fill := func(col string, v *string) {
		if v != nil && *v != "" {
			updates[col] = gorm.Expr(fmt.Sprintf("COALESCE(%s, ?)", col), *v)
		}
	}
	fill("description", patch.Description)
	fill("developer", patch.Developer)
	fill("publisher", patch.Publisher)
	fill("system_req_min", patch.SystemReqMin)
	fill("system_req_rec", patch.SystemReqRec)
	if patch.SteamAppID != nil && *patch.SteamAppID != "" {
		updates["steam_app_id"] = *patch.SteamAppID
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	return r.db.WithContext(ctx).Model(&model.Game{}).Where("id = ?", gameID).Updates(updates).Error
}

func (r *catalogRepository) ListSimilarGames(ctx context.Context, excludeID, country string, limit int) ([]*model.Game, error) {
	if limit <= 0 {
		limit = 6
	}
	var games []*model.Game
	err := r.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Deals", "country = ?", country).
		Preload("Deals.Store").
		Order("updated_at DESC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}
