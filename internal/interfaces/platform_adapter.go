package interfaces

import (
	"context"

	"DealSync/internal/model"
)

// DealsSourceAdapter 折扣数据源必须实现的接口
type DealsSourceAdapter interface {
	GetDeals(ctx context.Context, country string) ([]*model.AdapterDeal, error)                 // 拉取该国家当前全部折扣（完整快照）
	GetGameDetails(ctx context.Context, externalID string) (*model.AdapterGameDetails, error)   // 游戏详情，不存在时返回 nil, nil
	GetPriceHistory(ctx context.Context, externalID string) ([]*model.AdapterPricePoint, error) // 历史价格，可为空
}

// NamedAdapter 带名称的数据源（名称写入同步摘要）
type NamedAdapter struct {
	Name    string
	Adapter DealsSourceAdapter
}

// MetadataSource 第三方元数据补全来源（如 Steam），未找到时返回 nil, nil
type MetadataSource interface {
	Name() string
	FetchMetadata(ctx context.Context, appID string) (*model.GameMetadata, error)
}
