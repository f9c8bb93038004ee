package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store 商店（Steam / Epic 等），slug 唯一
type Store struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Slug      string    `gorm:"column:slug;type:varchar(128);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Store) TableName() string { return "stores" }

func (s *Store) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Game 规范化游戏主表（同一游戏跨商店/国家只有一条）
type Game struct {
	ID           string         `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Title        string         `gorm:"column:title;type:varchar(256);not null" json:"title"`
	Slug         string         `gorm:"column:slug;type:varchar(256);uniqueIndex;not null" json:"slug"` // 创建后稳定，冲突时追加外部ID
	Description  *string        `gorm:"column:description;type:text" json:"description,omitempty"`
	ReleaseDate  *time.Time     `gorm:"column:release_date;type:timestamp" json:"releaseDate,omitempty"`
	Developer    *string        `gorm:"column:developer;type:varchar(256)" json:"developer,omitempty"`
	Publisher    *string        `gorm:"column:publisher;type:varchar(256)" json:"publisher,omitempty"`
	Genres       datatypes.JSON `gorm:"column:genres;type:jsonb" json:"genres,omitempty"`
	SystemReqMin *string        `gorm:"column:system_req_min;type:text" json:"systemReqMin,omitempty"`
	SystemReqRec *string        `gorm:"column:system_req_rec;type:text" json:"systemReqRec,omitempty"`
	ExternalIDs  datatypes.JSON `gorm:"column:external_ids;type:jsonb" json:"externalIds,omitempty"` // storeSlug -> 外部ID，只合并不覆盖
	SteamAppID   *string        `gorm:"column:steam_app_id;type:varchar(32)" json:"steamAppId,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Images    []GameImage     `gorm:"foreignKey:GameID" json:"images,omitempty"`
	Deals     []Deal          `gorm:"foreignKey:GameID" json:"deals,omitempty"`
	Snapshots []PriceSnapshot `gorm:"foreignKey:GameID" json:"snapshots,omitempty"`
}

func (Game) TableName() string { return "games" }

func (g *Game) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// 图片类型
const (
	ImageTypeCover      = "cover"
	ImageTypeScreenshot = "screenshot"
)

// GameImage 游戏图片，ID 为确定性组合键 {gameId}-{storeSlug}-{purpose}
type GameImage struct {
	ID        string `gorm:"column:id;type:varchar(160);primaryKey" json:"id"`
	GameID    string `gorm:"column:game_id;type:varchar(36);index;not null" json:"gameId"`
	URL       string `gorm:"column:url;type:text;not null" json:"url"`
	Type      string `gorm:"column:type;type:varchar(16);not null" json:"type"`
	SortOrder int    `gorm:"column:sort_order;type:int;default:0" json:"sortOrder"`
}

func (GameImage) TableName() string { return "game_images" }

// CoverImageID 封面图槽位
func CoverImageID(gameID, storeSlug string) string {
	return gameID + "-" + storeSlug + "-cover"
}

// ScreenshotImageID 截图槽位
func ScreenshotImageID(gameID, source string, index int) string {
	return gameID + "-" + source + "-ss-" + strconv.Itoa(index)
}
