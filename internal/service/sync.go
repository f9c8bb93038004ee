package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"DealSync/internal/config"
	"DealSync/internal/interfaces"
	"DealSync/internal/model"
	"DealSync/internal/region"
	"DealSync/internal/repository"
	"DealSync/internal/utils/slug"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	defaultFreshnessWindow = 48 * time.Hour
	maxEnrichScreenshots   = 6
)

// CountrySummary 单个国家的同步结果
type CountrySummary struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
	Adapter string `json:"adapter"`
}

// DealSyncService 单国家折扣入库流程：拉取 -> 逐条规范化写入 -> 过期清理
type DealSyncService struct {
	catalog  repository.CatalogRepository
	deals    repository.DealRepository
	source   interfaces.NamedAdapter
	metadata interfaces.MetadataSource // 可为 nil
	cache    QueryCache
	cfg      config.SyncConfig
	validate *validator.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

func NewDealSyncService(
	catalog repository.CatalogRepository,
	deals repository.DealRepository,
	source interfaces.NamedAdapter,
	metadata interfaces.MetadataSource,
	cache QueryCache,
	cfg config.SyncConfig,
	logger *logrus.Logger,
) *DealSyncService {
	if cache == nil {
		cache = noopCache{}
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = defaultFreshnessWindow
	}
	return &DealSyncService{
		catalog:  catalog,
		deals:    deals,
		source:   source,
		metadata: metadata,
		cache:    cache,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock 测试用
func (s *DealSyncService) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

// SyncCountry 同步单个国家。记录逐条顺序写入；任一记录失败则整个国家失败，不做过期清理
func (s *DealSyncService) SyncCountry(ctx context.Context, country string) (*CountrySummary, error) {
	c := region.Resolve(country)
	startedAt := s.now()
	log := s.logger.WithFields(logrus.Fields{"country": c.Code, "adapter": s.source.Name})

	rows, err := s.source.Adapter.GetDeals(ctx, c.Code)
	if err != nil {
		return nil, fmt.Errorf("数据源%s获取%s折扣失败: %w", s.source.Name, c.Code, err)
	}

	// 此后可能已有写入，失败路径同样要让该国家的查询缓存失效
	defer func() {
		if err := s.cache.Bump(context.WithoutCancel(ctx), c.Code); err != nil {
			log.WithError(err).Warn("查询缓存失效失败")
		}
	}()

	for _, row := range rows {
		game, err := s.upsertRecord(ctx, c, row)
		if err != nil {
			return nil, err
		}
		s.enrich(ctx, game, row)
	}

	if len(rows) == 0 && !s.cfg.ExpireOnEmpty {
		log.Warn("数据源返回0条折扣，跳过过期清理")
	} else {
		cutoff := startedAt.Add(-s.cfg.FreshnessWindow)
		expired, err := s.deals.ExpireStale(ctx, c.Code, cutoff)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"expired": expired, "cutoff": cutoff}).Info("过期折扣已清理")
	}

	log.WithField("count", len(rows)).Info("国家折扣同步完成")
	return &CountrySummary{Country: c.Code, Count: len(rows), Adapter: s.source.Name}, nil
}

// upsertRecord 商店 -> 游戏 -> 封面 -> 折扣 -> 当日快照
func (s *DealSyncService) upsertRecord(ctx context.Context, c region.Country, row *model.AdapterDeal) (*model.Game, error) {
	if row == nil {
		return nil, errors.New("数据源返回了空记录")
	}
	if err := s.validate.Struct(row); err != nil {
		return nil, fmt.Errorf("折扣数据校验失败(externalId=%s, title=%q): %w", row.ExternalGameID, row.Title, err)
	}

	store, err := s.catalog.UpsertStore(ctx, row.Store.Name, row.Store.Slug)
	if err != nil {
		return nil, err
	}

	gameSlug, err := s.resolveGameSlug(ctx, row)
	if err != nil {
		return nil, err
	}

	game, err := s.catalog.UpsertGame(ctx, buildGame(row, gameSlug), row.Store.Slug, row.ExternalGameID)
	if err != nil {
		return nil, err
	}

	if url := strings.TrimSpace(row.ImageURL); url != "" {
		if err := s.catalog.UpsertImage(ctx, &model.GameImage{
			ID:     model.CoverImageID(game.ID, row.Store.Slug),
			GameID: game.ID,
			URL:    url,
			Type:   model.ImageTypeCover,
		}); err != nil {
			return nil, fmt.Errorf("写入封面失败(game=%s): %w", game.Slug, err)
		}
	}

	now := s.now()
	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = c.Currency
	}
	discount := NormalizeDiscount(row.PriceCents, row.OriginalPriceCents, row.DiscountPercent)

	if err := s.deals.UpsertDeal(ctx, &model.Deal{
		GameID:             game.ID,
		StoreID:            store.ID,
		Country:            c.Code,
		Currency:           currency,
		PriceCents:         row.PriceCents,
		OriginalPriceCents: row.OriginalPriceCents,
		DiscountPercent:    discount,
		URL:                row.URL,
		StartAt:            row.StartAt,
		EndAt:              row.EndAt,
		LastSeenAt:         now,
	}); err != nil {
		return nil, err
	}

	if err := s.deals.UpsertSnapshot(ctx, &model.PriceSnapshot{
		GameID:             game.ID,
		StoreID:            store.ID,
		Country:            c.Code,
		Date:               model.SnapshotDate(now),
		Currency:           currency,
		PriceCents:         row.PriceCents,
		OriginalPriceCents: row.OriginalPriceCents,
		DiscountPercent:    discount,
	}); err != nil {
		return nil, err
	}

	return game, nil
}

// resolveGameSlug 同 slug 但标题不同的游戏已存在时追加外部ID
func (s *DealSyncService) resolveGameSlug(ctx context.Context, row *model.AdapterDeal) (string, error) {
	base := slug.Make(row.Title)
	if base == "" {
		base = "game"
	}

	existing, err := s.catalog.FindGameBySlug(ctx, base)
	if errors.Is(err, repository.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", fmt.Errorf("查询游戏slug失败(slug=%s): %w", base, err)
	}
	if existing.Title != row.Title {
		return slug.WithSuffix(base, row.ExternalGameID), nil
	}
	return base, nil
}

func buildGame(row *model.AdapterDeal, gameSlug string) *model.Game {
	g := &model.Game{
		Title:        row.Title,
		Slug:         gameSlug,
		Description:  nonBlank(row.Description),
		ReleaseDate:  row.ReleaseDate,
		Developer:    nonBlank(row.Developer),
		Publisher:    nonBlank(row.Publisher),
		SystemReqMin: nonBlank(row.SystemReqMin),
		SystemReqRec: nonBlank(row.SystemReqRec),
	}
	if len(row.Genres) > 0 {
		if b, err := json.Marshal(row.Genres); err == nil {
			g.Genres = datatypes.JSON(b)
		}
	}
	return g
}

// enrich 尽力而为：只有带 steamAppId 且两项系统需求都为空时才查询，失败只记日志
func (s *DealSyncService) enrich(ctx context.Context, game *model.Game, row *model.AdapterDeal) {
	if s.metadata == nil || game == nil {
		return
	}
	appID := strings.TrimSpace(row.Metadata[model.MetadataSteamAppID])
	if appID == "" || nonBlank(game.SystemReqMin) != nil || nonBlank(game.SystemReqRec) != nil {
		return
	}

	log := s.logger.WithFields(logrus.Fields{"game": game.Slug, "appid": appID, "source": s.metadata.Name()})
	meta, err := s.metadata.FetchMetadata(ctx, appID)
	if err != nil {
		log.WithError(err).Warn("元数据补全失败，已忽略")
		return
	}
	if meta == nil {
		return
	}

	patch := repository.MetadataPatch{
		Description:  meta.Description,
		Developer:    joinNames(meta.Developers),
		Publisher:    joinNames(meta.Publishers),
		SystemReqMin: meta.SystemReqMin,
		SystemReqRec: meta.SystemReqRec,
		SteamAppID:   &appID,
	}
	if err := s.catalog.ApplyMetadata(ctx, game.ID, patch); err != nil {
		log.WithError(err).Warn("写入补全元数据失败，已忽略")
		return
	}

	shots := meta.Screenshots
	if len(shots) > maxEnrichScreenshots {
		shots = shots[:maxEnrichScreenshots]
	}
	for i, url := range shots {
		if err := s.catalog.UpsertImage(ctx, &model.GameImage{
			ID:        model.ScreenshotImageID(game.ID, s.metadata.Name(), i),
			GameID:    game.ID,
			URL:       url,
			Type:      model.ImageTypeScreenshot,
			SortOrder: i,
		}); err != nil {
			log.WithError(err).Warn("写入截图失败，已忽略")
			return
		}
	}
}

// NormalizeDiscount 数据源未给出折扣时按 round((1-price/original)*100) 计算，限定在 [0,100]，原价为0时为0
func NormalizeDiscount(priceCents, originalPriceCents int64, explicit *int) int {
	if explicit != nil {
		return clampPercent(*explicit)
	}
	if originalPriceCents <= 0 {
		return 0
	}
	pct := math.Round((1 - float64(priceCents)/float64(originalPriceCents)) * 100)
	return clampPercent(int(pct))
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func joinNames(names []string) *string {
	var parts []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}
