package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"DealSync/internal/config"
	"DealSync/internal/interfaces"
	"DealSync/internal/model"
	"DealSync/internal/repository"
	"DealSync/internal/utils/testdb"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type fakeAdapter struct {
	deals []*model.AdapterDeal
	err   error
	calls int
}

func (f *fakeAdapter) GetDeals(ctx context.Context, country string) ([]*model.AdapterDeal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.deals, nil
}

func (f *fakeAdapter) GetGameDetails(ctx context.Context, externalID string) (*model.AdapterGameDetails, error) {
	return nil, nil
}

func (f *fakeAdapter) GetPriceHistory(ctx context.Context, externalID string) ([]*model.AdapterPricePoint, error) {
	return nil, nil
}

type fakeMetadata struct {
	meta  *model.GameMetadata
	err   error
	calls int
}

func (f *fakeMetadata) Name() string { return "steam" }

func (f *fakeMetadata) FetchMetadata(ctx context.Context, appID string) (*model.GameMetadata, error) {
	f.calls++
	return f.meta, f.err
}

type countingCache struct {
	noopCache
	bumps map[string]int
}

func (c *countingCache) Bump(ctx context.Context, scope string) error {
	if c.bumps == nil {
		c.bumps = map[string]int{}
	}
	c.bumps[scope]++
	return nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	db      *gorm.DB
	adapter *fakeAdapter
	meta    *fakeMetadata
	cache   *countingCache
	clock   *clock
	svc     *DealSyncService
}

func newHarness(t *testing.T, cfg config.SyncConfig, withMeta bool) *harness {
	t.Helper()
	db := testdb.New(t)
	h := &harness{
		db:      db,
		adapter: &fakeAdapter{},
		cache:   &countingCache{},
		clock:   &clock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	var meta interfaces.MetadataSource
	if withMeta {
		h.meta = &fakeMetadata{}
		meta = h.meta
	}
	h.svc = NewDealSyncService(
		repository.NewCatalogRepository(db),
		repository.NewDealRepository(db),
		interfaces.NamedAdapter{Name: "fake", Adapter: h.adapter},
		meta,
		h.cache,
		cfg,
		testLogger(),
	)
	h.svc.SetClock(h.clock.now)
	return h
}

func nebula() *model.AdapterDeal {
	return &model.AdapterDeal{
		ExternalGameID:     "mock-1",
		Title:              "Nebula Strikers",
		Store:              model.AdapterStore{Name: "Steam", Slug: "steam"},
		Country:            "US",
		Currency:           "USD",
		PriceCents:         499,
		OriginalPriceCents: 1999,
		DiscountPercent:    intPtr(75),
		URL:                "https://store.steampowered.com",
	}
}

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSyncCountry_EndToEnd(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	h.adapter.deals = []*model.AdapterDeal{nebula()}

	summary, err := h.svc.SyncCountry(context.Background(), "us")
	if err != nil {
		t.Fatalf("SyncCountry() returned unexpected error: %v", err)
	}
	if summary.Count != 1 || summary.Country != "US" || summary.Adapter != "fake" {
		t.Errorf("Unexpected summary %+v", summary)
	}

	var store model.Store
	if err := h.db.Where("slug = ?", "steam").First(&store).Error; err != nil || store.Name != "Steam" {
		t.Fatalf("Expected store Steam/steam, got %+v (%v)", store, err)
	}
	var game model.Game
	if err := h.db.Where("slug = ?", "nebula-strikers").First(&game).Error; err != nil || game.Title != "Nebula Strikers" {
		t.Fatalf("Expected game nebula-strikers, got %+v (%v)", game, err)
	}
	var deal model.Deal
	if err := h.db.Where("game_id = ? AND store_id = ? AND country = ?", game.ID, store.ID, "US").First(&deal).Error; err != nil {
		t.Fatalf("Expected deal row: %v", err)
	}
	if deal.PriceCents != 499 || deal.DiscountPercent != 75 {
		t.Errorf("Expected 499/75, got %d/%d", deal.PriceCents, deal.DiscountPercent)
	}
	var snap model.PriceSnapshot
	if err := h.db.Where("game_id = ? AND country = ?", game.ID, "US").First(&snap).Error; err != nil {
		t.Fatalf("Expected snapshot row: %v", err)
	}
	if !snap.Date.Equal(model.SnapshotDate(h.clock.t)) || snap.PriceCents != 499 || snap.OriginalPriceCents != 1999 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if h.cache.bumps["US"] != 1 {
		t.Errorf("Expected query cache for US to be invalidated once, got %d", h.cache.bumps["US"])
	}
}

func TestSyncCountry_IdempotentResync(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	cover := nebula()
	cover.ImageURL = "https://img/cover.jpg"
	h.adapter.deals = []*model.AdapterDeal{cover}
	ctx := context.Background()

	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}
	var first model.Deal
	h.db.First(&first)

	h.clock.advance(time.Minute)
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	for name, m := range map[string]interface{}{
		"stores": &model.Store{}, "games": &model.Game{}, "deals": &model.Deal{},
		"snapshots": &model.PriceSnapshot{}, "images": &model.GameImage{},
	} {
		if n := count(t, h.db, m); n != 1 {
			t.Errorf("Expected exactly 1 row in %s, got %d", name, n)
		}
	}

	var second model.Deal
	h.db.First(&second)
	if second.ID != first.ID {
		t.Errorf("Deal identity must be stable, got %s then %s", first.ID, second.ID)
	}
	if !second.LastSeenAt.After(first.LastSeenAt) {
		t.Errorf("last_seen_at must advance: %s -> %s", first.LastSeenAt, second.LastSeenAt)
	}
}

func TestSyncCountry_SlugDisambiguation(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	a := nebula()
	b := nebula()
	b.Title = "Nebula: Strikers"
	b.ExternalGameID = "mock-9"
	h.adapter.deals = []*model.AdapterDeal{a, b}

	if _, err := h.svc.SyncCountry(context.Background(), "US"); err != nil {
		t.Fatal(err)
	}

	var games []model.Game
	h.db.Order("slug ASC").Find(&games)
	if len(games) != 2 {
		t.Fatalf("Expected 2 games, got %d", len(games))
	}
	if games[0].Slug != "nebula-strikers" || games[0].Title != "Nebula Strikers" {
		t.Errorf("First game must keep its slug, got %+v", games[0])
	}
	if games[1].Slug != "nebula-strikers-mock-9" || games[1].Title != "Nebula: Strikers" {
		t.Errorf("Second game must get the disambiguated slug, got %+v", games[1])
	}

	// 第二次同步落到同一个消歧 slug，不再新增
	if _, err := h.svc.SyncCountry(context.Background(), "US"); err != nil {
		t.Fatal(err)
	}
	if n := count(t, h.db, &model.Game{}); n != 2 {
		t.Errorf("Expected 2 games after resync, got %d", n)
	}
}

func TestSyncCountry_FieldMergeAndExternalIDs(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	ctx := context.Background()

	first := nebula()
	first.Description = strPtr("Arcade space shooter.")
	h.adapter.deals = []*model.AdapterDeal{first}
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	second := nebula()
	second.ExternalGameID = "epic-77"
	second.Store = model.AdapterStore{Name: "Epic Games Store", Slug: "epic-games-store"}
	h.adapter.deals = []*model.AdapterDeal{second}
	h.clock.advance(time.Hour)
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	var game model.Game
	h.db.Where("slug = ?", "nebula-strikers").First(&game)
	if game.Description == nil || *game.Description != "Arcade space shooter." {
		t.Errorf("Description must survive a sync that omits it, got %v", game.Description)
	}
	ids := map[string]string{}
	if err := json.Unmarshal(game.ExternalIDs, &ids); err != nil {
		t.Fatal(err)
	}
	if ids["steam"] != "mock-1" || ids["epic-games-store"] != "epic-77" {
		t.Errorf("Expected external ids from both stores, got %v", ids)
	}
	if n := count(t, h.db, &model.Deal{}); n != 2 {
		t.Errorf("Expected one deal per store, got %d", n)
	}
}

func TestSyncCountry_ComputesDiscountWhenMissing(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	row := nebula()
	row.PriceCents, row.OriginalPriceCents, row.DiscountPercent = 500, 2000, nil
	h.adapter.deals = []*model.AdapterDeal{row}

	if _, err := h.svc.SyncCountry(context.Background(), "US"); err != nil {
		t.Fatal(err)
	}
	var deal model.Deal
	h.db.First(&deal)
	if deal.DiscountPercent != 75 {
		t.Errorf("Expected computed discount 75, got %d", deal.DiscountPercent)
	}
}

func TestNormalizeDiscount(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		original int64
		explicit *int
		want     int
	}{
		{"computed", 500, 2000, nil, 75},
		{"zero original", 500, 0, nil, 0},
		{"zero original free", 0, 0, nil, 0},
		{"price above original clamps", 3000, 2000, nil, 0},
		{"free", 0, 1499, nil, 100},
		{"rounding", 333, 1000, nil, 67},
		{"explicit wins", 500, 2000, intPtr(70), 70},
		{"explicit clamped", 500, 2000, intPtr(120), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDiscount(tt.price, tt.original, tt.explicit); got != tt.want {
				t.Errorf("NormalizeDiscount(%d, %d) = %d, want %d", tt.price, tt.original, got, tt.want)
			}
		})
	}
}

func TestSyncCountry_ExpiresStaleDealsOfThatCountryOnly(t *testing.T) {
	h := newHarness(t, config.SyncConfig{FreshnessWindow: 48 * time.Hour}, false)
	ctx := context.Background()

	old := nebula()
	old.Title, old.ExternalGameID = "Old Game", "old-1"
	h.adapter.deals = []*model.AdapterDeal{old}
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.SyncCountry(ctx, "DE"); err != nil {
		t.Fatal(err)
	}

	h.clock.advance(49 * time.Hour)
	h.adapter.deals = []*model.AdapterDeal{nebula()}
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	var us []model.Deal
	h.db.Where("country = ?", "US").Preload("Game").Find(&us)
	if len(us) != 1 || us[0].Game.Title != "Nebula Strikers" {
		t.Errorf("Expected only the re-confirmed US deal to remain, got %d rows", len(us))
	}
	var de int64
	h.db.Model(&model.Deal{}).Where("country = ?", "DE").Count(&de)
	if de != 1 {
		t.Errorf("DE deals must not be expired by a US run, got %d", de)
	}
	if n := count(t, h.db, &model.PriceSnapshot{}); n != 3 {
		t.Errorf("Snapshots must be kept, got %d", n)
	}
}

func TestSyncCountry_ZeroRecordsSkipsExpiryByDefault(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	ctx := context.Background()
	h.adapter.deals = []*model.AdapterDeal{nebula()}
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	h.clock.advance(72 * time.Hour)
	h.adapter.deals = nil
	summary, err := h.svc.SyncCountry(ctx, "US")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 0 {
		t.Errorf("Expected count 0, got %d", summary.Count)
	}
	if n := count(t, h.db, &model.Deal{}); n != 1 {
		t.Errorf("Empty upstream response must not wipe deals, got %d", n)
	}
}

func TestSyncCountry_ZeroRecordsExpiresWhenConfigured(t *testing.T) {
	h := newHarness(t, config.SyncConfig{ExpireOnEmpty: true}, false)
	ctx := context.Background()
	h.adapter.deals = []*model.AdapterDeal{nebula()}
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	h.clock.advance(72 * time.Hour)
	h.adapter.deals = nil
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}
	if n := count(t, h.db, &model.Deal{}); n != 0 {
		t.Errorf("Expected stale deal removed with expire_on_empty, got %d", n)
	}
}

func TestSyncCountry_AdapterErrorPropagates(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	sentinel := errors.New("upstream down")
	h.adapter.err = sentinel

	if _, err := h.svc.SyncCountry(context.Background(), "US"); !errors.Is(err, sentinel) {
		t.Fatalf("Expected adapter error to propagate, got %v", err)
	}
	if h.cache.bumps["US"] != 0 {
		t.Error("Cache must not be invalidated for a failed run")
	}
}

func TestSyncCountry_InvalidRecordFails(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	bad := nebula()
	bad.URL = ""
	h.adapter.deals = []*model.AdapterDeal{nebula(), bad}

	if _, err := h.svc.SyncCountry(context.Background(), "US"); err == nil {
		t.Fatal("Expected validation error")
	}
	// 失败前已写入的记录保留
	if n := count(t, h.db, &model.Deal{}); n != 1 {
		t.Errorf("Expected the record before the failure to be kept, got %d", n)
	}
	if h.cache.bumps["US"] != 1 {
		t.Errorf("Expected query cache to be invalidated after a partial write, got %d bumps", h.cache.bumps["US"])
	}
}

func TestSyncCountry_PartialFailureRefreshesCachedPages(t *testing.T) {
	cache := newMemoryCache()
	h, q := seedDeals(t, cache)
	ctx := context.Background()

	before, err := q.ListDeals(ctx, repository.DealFilter{Country: "US"})
	if err != nil {
		t.Fatal(err)
	}

	added := nebula()
	added.Title, added.ExternalGameID = "Orbit Racer", "mock-7"
	bad := nebula()
	bad.URL = ""
	h.adapter.deals = []*model.AdapterDeal{added, bad}
	if _, err := h.svc.SyncCountry(ctx, "US"); err == nil {
		t.Fatal("Expected validation error")
	}

	after, err := q.ListDeals(ctx, repository.DealFilter{Country: "US"})
	if err != nil {
		t.Fatal(err)
	}
	if before.Total != 3 || after.Total != 4 {
		t.Errorf("Expected cached page to be refreshed after a partial write, got %d then %d", before.Total, after.Total)
	}
}

func TestSyncCountry_UnknownCountryFallsBackToDefault(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, false)
	h.adapter.deals = []*model.AdapterDeal{nebula()}

	summary, err := h.svc.SyncCountry(context.Background(), "zz")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Country != "US" {
		t.Errorf("Expected fallback to US, got %s", summary.Country)
	}
}

func TestSyncCountry_Enrichment(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, true)
	row := nebula()
	row.Description = strPtr("From the aggregator.")
	row.Metadata = map[string]string{model.MetadataSteamAppID: "12345"}
	h.adapter.deals = []*model.AdapterDeal{row}

	shots := []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	h.meta.meta = &model.GameMetadata{
		Description:  strPtr("From Steam."),
		Developers:   []string{"Nebula Works", "Second Studio"},
		Publishers:   []string{"Orbit"},
		Screenshots:  shots,
		SystemReqMin: strPtr("OS: Windows 10"),
	}

	ctx := context.Background()
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}

	var game model.Game
	h.db.Where("slug = ?", "nebula-strikers").First(&game)
	if *game.Description != "From the aggregator." {
		t.Errorf("Enrichment must not overwrite a populated description, got %q", *game.Description)
	}
	if game.Developer == nil || *game.Developer != "Nebula Works, Second Studio" {
		t.Errorf("Expected joined developers, got %v", game.Developer)
	}
	if game.SystemReqMin == nil || *game.SystemReqMin != "OS: Windows 10" {
		t.Errorf("Expected system requirements filled, got %v", game.SystemReqMin)
	}
	if game.SteamAppID == nil || *game.SteamAppID != "12345" {
		t.Errorf("Expected steam app id, got %v", game.SteamAppID)
	}

	var images []model.GameImage
	h.db.Where("game_id = ? AND type = ?", game.ID, model.ImageTypeScreenshot).Order("sort_order ASC").Find(&images)
	if len(images) != 6 {
		t.Fatalf("Expected 6 screenshots, got %d", len(images))
	}
	if images[0].ID != game.ID+"-steam-ss-0" || images[5].URL != "s5" {
		t.Errorf("Unexpected screenshot slots %+v", images)
	}

	// 已有系统需求，不再查询
	if _, err := h.svc.SyncCountry(ctx, "US"); err != nil {
		t.Fatal(err)
	}
	if h.meta.calls != 1 {
		t.Errorf("Expected a single metadata lookup, got %d", h.meta.calls)
	}
}

func TestSyncCountry_EnrichmentSkippedWithoutAppID(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, true)
	h.adapter.deals = []*model.AdapterDeal{nebula()}

	if _, err := h.svc.SyncCountry(context.Background(), "US"); err != nil {
		t.Fatal(err)
	}
	if h.meta.calls != 0 {
		t.Errorf("Expected no metadata lookup without steamAppId, got %d", h.meta.calls)
	}
}

func TestSyncCountry_EnrichmentFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, config.SyncConfig{}, true)
	row := nebula()
	row.Metadata = map[string]string{model.MetadataSteamAppID: "12345"}
	h.adapter.deals = []*model.AdapterDeal{row}
	h.meta.err = errors.New("steam timeout")

	summary, err := h.svc.SyncCountry(context.Background(), "US")
	if err != nil {
		t.Fatalf("Enrichment failure must not fail the sync: %v", err)
	}
	if summary.Count != 1 || count(t, h.db, &model.Deal{}) != 1 {
		t.Error("Expected the core upsert to succeed")
	}
}
