package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deal 某游戏在某商店某国家的当前报价，(game_id, store_id, country) 唯一
type Deal struct {
	ID                 string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	GameID             string     `gorm:"column:game_id;type:varchar(36);not null;uniqueIndex:uq_deal_game_store_country" json:"gameId"`
	StoreID            string     `gorm:"column:store_id;type:varchar(36);not null;uniqueIndex:uq_deal_game_store_country" json:"storeId"`
	Country            string     `gorm:"column:country;type:varchar(2);not null;uniqueIndex:uq_deal_game_store_country;index" json:"country"`
	Currency           string     `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	PriceCents         int64      `gorm:"column:price_cents;type:bigint;not null" json:"priceCents"`
	OriginalPriceCents int64      `gorm:"column:original_price_cents;type:bigint;not null" json:"originalPriceCents"`
	DiscountPercent    int        `gorm:"column:discount_percent;type:int;not null;default:0" json:"discountPercent"`
	URL                string     `gorm:"column:url;type:text;not null" json:"url"`
	StartAt            *time.Time `gorm:"column:start_at;type:timestamp" json:"startAt,omitempty"`
	EndAt              *time.Time `gorm:"column:end_at;type:timestamp" json:"endAt,omitempty"`
	LastSeenAt         time.Time  `gorm:"column:last_seen_at;type:timestamp;not null;index" json:"lastSeenAt"` // 过期清理依据
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"-"`

	Game  *Game  `gorm:"foreignKey:GameID" json:"game,omitempty"`
	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}

func (Deal) TableName() string { return "deals" }

func (d *Deal) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// PriceSnapshot 每日价格快照，(game_id, store_id, country, date) 唯一，同步流程从不删除
type PriceSnapshot struct {
	ID                 string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	GameID             string    `gorm:"column:game_id;type:varchar(36);not null;uniqueIndex:uq_snapshot_game_store_country_date" json:"gameId"`
	StoreID            string    `gorm:"column:store_id;type:varchar(36);not null;uniqueIndex:uq_snapshot_game_store_country_date" json:"storeId"`
	Country            string    `gorm:"column:country;type:varchar(2);not null;uniqueIndex:uq_snapshot_game_store_country_date" json:"country"`
	Date               time.Time `gorm:"column:date;type:date;not null;uniqueIndex:uq_snapshot_game_store_country_date" json:"date"` // UTC 当日零点
	Currency           string    `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	PriceCents         int64     `gorm:"column:price_cents;type:bigint;not null" json:"priceCents"`
	OriginalPriceCents int64     `gorm:"column:original_price_cents;type:bigint;not null" json:"originalPriceCents"`
	DiscountPercent    int       `gorm:"column:discount_percent;type:int;not null;default:0" json:"discountPercent"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`

	Store *Store `gorm:"foreignKey:StoreID" json:"store,omitempty"`
}

func (PriceSnapshot) TableName() string { return "price_snapshots" }

func (p *PriceSnapshot) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// SnapshotDate 截断到 UTC 日
func SnapshotDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
