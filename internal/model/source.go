package model

import "time"

// MetadataSteamAppID 元数据中携带的 Steam appid，用于后续补全
const MetadataSteamAppID = "steamAppId"

// AdapterStore 数据源返回的商店描述
type AdapterStore struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required"`
}

// AdapterDeal 数据源返回的单条折扣（已转换为规范形状，尚未入库）
type AdapterDeal struct {
	ExternalGameID     string            `json:"externalGameId" validate:"required"`
	Title              string            `json:"title" validate:"required"`
	Description        *string           `json:"description,omitempty"`
	ReleaseDate        *time.Time        `json:"releaseDate,omitempty"`
	Developer          *string           `json:"developer,omitempty"`
	Publisher          *string           `json:"publisher,omitempty"`
	Genres             []string          `json:"genres,omitempty"`
	SystemReqMin       *string           `json:"systemReqMin,omitempty"`
	SystemReqRec       *string           `json:"systemReqRec,omitempty"`
	ImageURL           string            `json:"imageUrl,omitempty"`
	Screenshots        []string          `json:"screenshots,omitempty"`
	Store              AdapterStore      `json:"store" validate:"required"`
	Country            string            `json:"country" validate:"omitempty,len=2"`
	Currency           string            `json:"currency" validate:"omitempty,len=3"`
	PriceCents         int64             `json:"priceCents" validate:"gte=0"`
	OriginalPriceCents int64             `json:"originalPriceCents" validate:"gte=0"`
	DiscountPercent    *int              `json:"discountPercent,omitempty" validate:"omitempty,gte=0,lte=100"` // 为空时按价格推算
	URL                string            `json:"url" validate:"required"`
	StartAt            *time.Time        `json:"startAt,omitempty"`
	EndAt              *time.Time        `json:"endAt,omitempty"`
	IsFreebie          bool              `json:"isFreebie,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// AdapterGameDetails 单个游戏详情
type AdapterGameDetails struct {
	ExternalGameID string     `json:"externalGameId"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	ReleaseDate    *time.Time `json:"releaseDate,omitempty"`
	Developer      *string    `json:"developer,omitempty"`
	Publisher      *string    `json:"publisher,omitempty"`
	CoverURL       string     `json:"coverUrl,omitempty"`
	Screenshots    []string   `json:"screenshots"`
	Genres         []string   `json:"genres,omitempty"`
	SystemReqMin   *string    `json:"systemReqMin,omitempty"`
	SystemReqRec   *string    `json:"systemReqRec,omitempty"`
}

// AdapterPricePoint 历史价格点
type AdapterPricePoint struct {
	Date               time.Time `json:"date"`
	Country            string    `json:"country"`
	Currency           string    `json:"currency"`
	PriceCents         int64     `json:"priceCents"`
	OriginalPriceCents int64     `json:"originalPriceCents"`
	DiscountPercent    int       `json:"discountPercent"`
}

// GameMetadata 第三方元数据（Steam appdetails 转换后）
type GameMetadata struct {
	Description  *string
	Developers   []string
	Publishers   []string
	Screenshots  []string
	SystemReqMin *string
	SystemReqRec *string
}
