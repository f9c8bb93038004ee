package adapter

import (
	"fmt"
	"strings"
	"time"

	"DealSync/internal/adapter/cheapshark"
	"DealSync/internal/adapter/mock"
	"DealSync/internal/adapter/steam"
	"DealSync/internal/config"
	"DealSync/internal/interfaces"
	"DealSync/internal/utils/httpclient"
	"DealSync/internal/utils/limiter"
	"DealSync/internal/utils/retry"

	"github.com/sirupsen/logrus"
)

// Select 按配置选择数据源：source.mock=true 用样例数据，否则使用线上数据源（必须配置 base_url）。
// 在组合根调用一次后注入，不维护全局注册表。
func Select(cfg *config.Config, lim *limiter.Limiter, logger *logrus.Logger) (interfaces.NamedAdapter, error) {
	if cfg.Source.Mock {
		logger.Warn("已启用mock数据源，同步将写入固定样例数据")
		return interfaces.NamedAdapter{Name: mock.Name, Adapter: mock.NewAdapter()}, nil
	}
	if strings.TrimSpace(cfg.Source.BaseURL) == "" {
		return interfaces.NamedAdapter{}, fmt.Errorf("数据源 %s 未配置 base_url", cfg.Source.Name)
	}

	switch strings.ToLower(cfg.Source.Name) {
	case "", cheapshark.Name:
		client := httpclient.NewHTTPClient(httpclient.Options{
			Timeout:   time.Duration(cfg.Source.Timeout) * time.Second,
			Proxy:     cfg.Source.Proxy,
			UserAgent: cfg.Source.UserAgent,
		}, logger)
		logger.WithField("base_url", cfg.Source.BaseURL).Info("使用CheapShark数据源")
		return interfaces.NamedAdapter{
			Name:    cheapshark.Name,
			Adapter: cheapshark.NewAdapter(cfg.Source, client, lim, logger),
		}, nil
	default:
		return interfaces.NamedAdapter{}, fmt.Errorf("不支持的数据源: %s", cfg.Source.Name)
	}
}

// NewMetadataSource Steam 元数据补全；sync.enrichment=false 或 mock 模式时返回 nil
func NewMetadataSource(cfg *config.Config, lim *limiter.Limiter, logger *logrus.Logger) interfaces.MetadataSource {
	if !cfg.Sync.Enrichment || cfg.Source.Mock || strings.TrimSpace(cfg.Steam.BaseURL) == "" {
		return nil
	}
	client := httpclient.NewHTTPClient(httpclient.Options{
		Timeout:   time.Duration(cfg.Steam.Timeout) * time.Second,
		Proxy:     cfg.Source.Proxy,
		UserAgent: cfg.Source.UserAgent,
	}, logger)
	policy := retry.Policy{
		Retries:      cfg.Source.RetryCount,
		InitialDelay: cfg.Source.RetryInitialDelay,
		Factor:       cfg.Source.RetryFactor,
	}
	return steam.NewClient(cfg.Steam.BaseURL, client, lim, policy, logger)
}
