package steam

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"DealSync/internal/model"
	"DealSync/internal/utils/httpclient"
	"DealSync/internal/utils/limiter"
	"DealSync/internal/utils/retry"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// SourceName 截图槽位 {game}-steam-ss-{i} 中的来源名
const SourceName = "steam"

// Client Steam appdetails 元数据查询
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *limiter.Limiter
	policy     retry.Policy
	logger     *logrus.Logger
}

func NewClient(baseURL string, httpClient *http.Client, lim *limiter.Limiter, policy retry.Policy, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    lim,
		policy:     policy,
		logger:     logger,
	}
}

func (c *Client) Name() string { return SourceName }

// FetchMetadata 查询 appdetails；success=false 或无 data 时返回 nil, nil
func (c *Client) FetchMetadata(ctx context.Context, appID string) (*model.GameMetadata, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("appids", appID)
	q.Set("l", "en")
	q.Set("cc", "us")
	fullURL := c.baseURL + "/api/appdetails?" + q.Encode()

	var payload map[string]model.SteamAppDetails
	err := retry.Do(ctx, c.policy, func(attempt int) error {
		err := c.limiter.Do(ctx, func(ctx context.Context) error {
			return httpclient.GetJSON(ctx, c.httpClient, fullURL, nil, &payload)
		})
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.ClientError() {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("获取Steam元数据失败(appid=%s): %w", appID, err)
	}

	entry, ok := payload[appID]
	if !ok || !entry.Success || entry.Data == nil {
		c.logger.WithField("appid", appID).Debug("Steam未返回该应用数据")
		return nil, nil
	}

	meta := &model.GameMetadata{
		Developers: entry.Data.Developers,
		Publishers: entry.Data.Publishers,
	}
	if d := strings.TrimSpace(entry.Data.DetailedDescription); d != "" {
		meta.Description = &d
	}
	for _, s := range entry.Data.Screenshots {
		if s.PathFull != "" {
			meta.Screenshots = append(meta.Screenshots, s.PathFull)
		}
	}
	meta.SystemReqMin = requirementsText(entry.Data.PCRequirements.Minimum)
	meta.SystemReqRec = requirementsText(entry.Data.PCRequirements.Recommended)
	return meta, nil
}

// requirementsText 把 pc_requirements 的 HTML 片段转成逐行纯文本
func requirementsText(html string) *string {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &html
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	text := strings.Join(lines, "\n")
	return &text
}
