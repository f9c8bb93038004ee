package mock

import (
	"context"

	"DealSync/internal/model"
	"DealSync/internal/region"
)

// Name 数据源名称
const Name = "mock"

// Adapter 无外部凭证时使用的固定样例数据，不做任何网络请求
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func (a *Adapter) GetDeals(ctx context.Context, country string) ([]*model.AdapterDeal, error) {
	code := region.Resolve(country).Code
	return []*model.AdapterDeal{
		{
			ExternalGameID:     "mock-1",
			Title:              "Nebula Strikers",
			Description:        strPtr("Arcade space shooter."),
			ImageURL:           "https://images.unsplash.com/photo-1542751371-adc38448a05e?auto=format&fit=crop&w=1200&q=80",
			Screenshots:        []string{},
			Store:              model.AdapterStore{Name: "Steam", Slug: "steam"},
			Country:            code,
			Currency:           "USD",
			PriceCents:         499,
			OriginalPriceCents: 1999,
			DiscountPercent:    intPtr(75),
			URL:                "https://store.steampowered.com",
		},
		{
			ExternalGameID:     "mock-2",
			Title:              "Crystal Frontiers",
			Description:        strPtr("Exploration RPG."),
			ImageURL:           "https://images.unsplash.com/photo-1511512578047-dfb367046420?auto=format&fit=crop&w=1200&q=80",
			Screenshots:        []string{},
			Store:              model.AdapterStore{Name: "Epic Games Store", Slug: "epic-games-store"},
			Country:            code,
			Currency:           "USD",
			PriceCents:         0,
			OriginalPriceCents: 1499,
			DiscountPercent:    intPtr(100),
			URL:                "https://store.epicgames.com",
			IsFreebie:          true,
		},
		{
			ExternalGameID:     "mock-3",
			Title:              "Steel Circuit",
			Description:        strPtr("Mech tactics."),
			ImageURL:           "https://images.unsplash.com/photo-1486572788966-cfd3df1f5b42?auto=format&fit=crop&w=1200&q=80",
			Screenshots:        []string{},
			Store:              model.AdapterStore{Name: "Microsoft Store", Slug: "microsoft-store"},
			Country:            code,
			Currency:           "USD",
			PriceCents:         2999,
			OriginalPriceCents: 5999,
			DiscountPercent:    intPtr(50),
			URL:                "https://www.microsoft.com/store",
		},
	}, nil
}

func (a *Adapter) GetGameDetails(ctx context.Context, externalID string) (*model.AdapterGameDetails, error) {
	return &model.AdapterGameDetails{
		ExternalGameID: externalID,
		Title:          "Mock Game " + externalID,
		Description:    strPtr("Running in mock mode because aggregator credentials are missing."),
		CoverURL:       "https://images.unsplash.com/photo-1511512578047-dfb367046420?auto=format&fit=crop&w=1200&q=80",
		Screenshots: []string{
			"https://images.unsplash.com/photo-1542751371-adc38448a05e?auto=format&fit=crop&w=1200&q=80",
		},
		SystemReqMin: strPtr("OS: Windows 10; CPU: i5; RAM: 8 GB; GPU: GTX 970"),
		SystemReqRec: strPtr("OS: Windows 11; CPU: i7; RAM: 16 GB; GPU: RTX 3060"),
	}, nil
}

func (a *Adapter) GetPriceHistory(ctx context.Context, externalID string) ([]*model.AdapterPricePoint, error) {
	return []*model.AdapterPricePoint{}, nil
}
