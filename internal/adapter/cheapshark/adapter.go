package cheapshark

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DealSync/internal/config"
	"DealSync/internal/model"
	"DealSync/internal/region"
	"DealSync/internal/utils/httpclient"
	"DealSync/internal/utils/limiter"
	"DealSync/internal/utils/retry"
	"DealSync/internal/utils/slug"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Name 数据源名称
const Name = "cheapshark"

const (
	dealsPageSize    = 60
	fallbackStoreCap = 6
	redirectURL      = "https://www.cheapshark.com/redirect?dealID="
)

var preferredStoreKeywords = []string{"steam", "epic", "microsoft"}

type Adapter struct {
	cfg        config.SourceConfig
	httpClient *http.Client
	limiter    *limiter.Limiter
	policy     retry.Policy
	logger     *logrus.Logger
}

func NewAdapter(cfg config.SourceConfig, httpClient *http.Client, lim *limiter.Limiter, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    lim,
		policy: retry.Policy{
			Retries:      cfg.RetryCount,
			InitialDelay: cfg.RetryInitialDelay,
			Factor:       cfg.RetryFactor,
		},
		logger: logger,
	}
}

type selectedStore struct {
	id   string
	name string
}

// GetDeals 拉取所选商店的在售折扣，任一商店请求最终失败则整体失败
func (a *Adapter) GetDeals(ctx context.Context, country string) ([]*model.AdapterDeal, error) {
	c := region.Resolve(country)

	stores, err := a.resolveStores(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]model.CheapSharkDeal, len(stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range stores {
		i, st := i, st
		g.Go(func() error {
			path := fmt.Sprintf("/deals?storeID=%s&pageSize=%d&onSale=1", url.QueryEscape(st.id), dealsPageSize)
			var rows []model.CheapSharkDeal
			if err := a.fetchJSON(gctx, path, &rows); err != nil {
				return fmt.Errorf("获取商店 %s 折扣失败: %w", st.name, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var deals []*model.AdapterDeal
	for i, rows := range results {
		for _, row := range rows {
			d, err := toDeal(c, stores[i].name, row)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"deal_id": row.DealID,
					"store":   stores[i].name,
				}).Warn("CheapShark折扣数据格式异常，跳过")
				continue
			}
			deals = append(deals, d)
		}
	}

	a.logger.WithFields(logrus.Fields{
		"country": c.Code,
		"stores":  len(stores),
		"deals":   len(deals),
	}).Info("成功获取CheapShark折扣")
	return deals, nil
}

// GetGameDetails /games?id=，404 视为不存在
func (a *Adapter) GetGameDetails(ctx context.Context, externalID string) (*model.AdapterGameDetails, error) {
	var lookup model.CheapSharkGameLookup
	if err := a.fetchJSON(ctx, "/games?id="+url.QueryEscape(externalID), &lookup); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	details := &model.AdapterGameDetails{
		ExternalGameID: externalID,
		Title:          lookup.Info.Title,
		CoverURL:       lookup.Info.Thumb,
		Screenshots:    []string{},
	}
	if lookup.Info.Thumb != "" {
		details.Screenshots = append(details.Screenshots, lookup.Info.Thumb)
	}
	return details, nil
}

// GetPriceHistory CheapShark 不提供按国家的历史价格
func (a *Adapter) GetPriceHistory(ctx context.Context, externalID string) ([]*model.AdapterPricePoint, error) {
	return []*model.AdapterPricePoint{}, nil
}

// resolveStores 活跃商店中优先 steam/epic/microsoft（至少3家），否则取前6家
func (a *Adapter) resolveStores(ctx context.Context) ([]selectedStore, error) {
	var stores []model.CheapSharkStore
	if err := a.fetchJSON(ctx, "/stores", &stores); err != nil {
		return nil, fmt.Errorf("获取CheapShark商店列表失败: %w", err)
	}

	var active, preferred []selectedStore
	for _, s := range stores {
		if s.IsActive != 1 {
			continue
		}
		st := selectedStore{id: s.StoreID, name: s.StoreName}
		active = append(active, st)
		name := strings.ToLower(s.StoreName)
		for _, kw := range preferredStoreKeywords {
			if strings.Contains(name, kw) {
				preferred = append(preferred, st)
				break
			}
		}
	}

	if len(preferred) >= 3 {
		return preferred, nil
	}
	if len(active) > fallbackStoreCap {
		active = active[:fallbackStoreCap]
	}
	return active, nil
}

// fetchJSON 按重试策略发起请求，每次尝试都经过限流器；4xx（429除外）不重试
func (a *Adapter) fetchJSON(ctx context.Context, path string, out interface{}) error {
	header := http.Header{}
	if a.cfg.APIKey != "" {
		header.Set("x-api-key", a.cfg.APIKey)
	}
	fullURL := strings.TrimRight(a.cfg.BaseURL, "/") + path

	// 每次尝试各自占用并发名额与限速令牌，退避等待期间不占名额
	return retry.Do(ctx, a.policy, func(attempt int) error {
		err := a.limiter.Do(ctx, func(ctx context.Context) error {
			return httpclient.GetJSON(ctx, a.httpClient, fullURL, header, out)
		})
		if err == nil {
			return nil
		}
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.ClientError() {
			return retry.Permanent(err)
		}
		a.logger.WithError(err).WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
		}).Warn("CheapShark请求失败")
		return err
	})
}

func toDeal(c region.Country, storeName string, row model.CheapSharkDeal) (*model.AdapterDeal, error) {
	sale, err := toCents(row.SalePrice)
	if err != nil {
		return nil, fmt.Errorf("salePrice: %w", err)
	}
	normal, err := toCents(row.NormalPrice)
	if err != nil {
		return nil, fmt.Errorf("normalPrice: %w", err)
	}

	d := &model.AdapterDeal{
		ExternalGameID:     row.GameID,
		Title:              row.Title,
		ImageURL:           row.Thumb,
		Screenshots:        []string{},
		Store:              model.AdapterStore{Name: storeName, Slug: slug.Make(storeName)},
		Country:            c.Code,
		Currency:           c.Currency,
		PriceCents:         sale,
		OriginalPriceCents: normal,
		URL:                redirectURL + row.DealID,
		IsFreebie:          sale == 0,
	}
	if savings, err := decimal.NewFromString(row.Savings); err == nil {
		pct := int(savings.Round(0).IntPart())
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		d.DiscountPercent = &pct
	}
	if row.ReleaseDate > 0 {
		t := time.Unix(row.ReleaseDate, 0).UTC()
		d.ReleaseDate = &t
	}
	if row.SteamAppID != "" {
		d.Metadata = map[string]string{model.MetadataSteamAppID: row.SteamAppID}
	}
	return d, nil
}

// toCents "14.99" -> 1499
func toCents(s string) (int64, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return v.Shift(2).Round(0).IntPart(), nil
}
