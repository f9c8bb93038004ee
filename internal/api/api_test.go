package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DealSync/internal/config"
	"DealSync/internal/interfaces"
	"DealSync/internal/model"
	"DealSync/internal/repository"
	"DealSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type fakeJob struct {
	countries []string
	calls     int
	err       error
}

func (f *fakeJob) Run(ctx context.Context, countries []string) (*service.SyncDealsResult, error) {
	f.calls++
	f.countries = countries
	if f.err != nil {
		return nil, f.err
	}
	return &service.SyncDealsResult{Countries: []service.CountrySummary{{Country: "US", Count: 3, Adapter: "mock"}}}, nil
}

type fakeJobs struct{ limit int }

func (f *fakeJobs) Latest(ctx context.Context, limit int) ([]*model.JobRun, error) {
	f.limit = limit
	return []*model.JobRun{{ID: "run-1", JobName: service.JobNameSyncDeals, Status: model.JobStatusSuccess}}, nil
}

type fakeSource struct{}

func (fakeSource) GetDeals(ctx context.Context, country string) ([]*model.AdapterDeal, error) {
	return nil, nil
}

func (fakeSource) GetGameDetails(ctx context.Context, externalID string) (*model.AdapterGameDetails, error) {
	if externalID != "mock-1" {
		return nil, nil
	}
	return &model.AdapterGameDetails{ExternalGameID: "mock-1", Title: "Nebula Strikers"}, nil
}

func (fakeSource) GetPriceHistory(ctx context.Context, externalID string) ([]*model.AdapterPricePoint, error) {
	return nil, errors.New("history unsupported")
}

type fakeQuery struct {
	filter repository.DealFilter
}

func sampleDeal() *model.Deal {
	return &model.Deal{
		ID: "d1", Country: "US", Currency: "USD", PriceCents: 499, OriginalPriceCents: 1999, DiscountPercent: 75,
		Game: &model.Game{Title: "Nebula Strikers", Slug: "nebula-strikers"},
	}
}

func (f *fakeQuery) ListDeals(ctx context.Context, filter repository.DealFilter) (*service.DealPage, error) {
	f.filter = filter
	return &service.DealPage{Country: "US", Items: []*model.Deal{sampleDeal()}, Page: 1, PageSize: 24, Total: 1, TotalPages: 1}, nil
}

func (f *fakeQuery) Featured(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	return []*model.Deal{sampleDeal()}, nil
}

func (f *fakeQuery) Trending(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	return nil, nil
}

func (f *fakeQuery) Freebies(ctx context.Context, country string, limit int) ([]*model.Deal, error) {
	return nil, nil
}

func (f *fakeQuery) GameBySlug(ctx context.Context, slug, country string) (*service.GameDetail, error) {
	if slug != "nebula-strikers" {
		return nil, repository.ErrNotFound
	}
	g := &model.Game{Title: "Nebula Strikers", Slug: slug, Deals: []model.Deal{*sampleDeal()}}
	return &service.GameDetail{Game: g}, nil
}

type testServer struct {
	router *gin.Engine
	job    *fakeJob
	jobs   *fakeJobs
	query  *fakeQuery
}

func newTestServer(auth config.AuthConfig) *testServer {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &testServer{router: gin.New(), job: &fakeJob{}, jobs: &fakeJobs{}, query: &fakeQuery{}}
	RegisterRoutes(s.router, auth,
		NewDealHandler(s.query, logger),
		NewSyncHandler(s.job, s.jobs, interfaces.NamedAdapter{Name: "mock", Adapter: fakeSource{}}, logger),
	)
	return s
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestCronSyncDeals_Auth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		token  string
		want   int
	}{
		{"no secret configured", "", "anything", http.StatusUnauthorized},
		{"missing token", "s3cret", "", http.StatusUnauthorized},
		{"wrong token", "s3cret", "nope", http.StatusUnauthorized},
		{"ok", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(config.AuthConfig{CronSecret: tt.secret})
			w := s.do(http.MethodPost, "/api/cron/sync-deals", tt.token, "")
			if w.Code != tt.want {
				t.Fatalf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusOK && (s.job.calls != 1 || s.job.countries != nil) {
				t.Errorf("Expected one run with default countries, got calls=%d countries=%v", s.job.calls, s.job.countries)
			}
			if tt.want != http.StatusOK && s.job.calls != 0 {
				t.Error("Job must not run without authorization")
			}
		})
	}
}

func TestCronSyncDeals_JobFailure(t *testing.T) {
	s := newTestServer(config.AuthConfig{CronSecret: "s3cret"})
	s.job.err = errors.New("upstream down")

	w := s.do(http.MethodPost, "/api/cron/sync-deals", "s3cret", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
}

func TestRunJob(t *testing.T) {
	auth := config.AuthConfig{AdminToken: "admin"}

	t.Run("explicit countries", func(t *testing.T) {
		s := newTestServer(auth)
		w := s.do(http.MethodPost, "/api/admin/jobs/deals", "admin", `{"countries":["US","GB"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(s.job.countries) != 2 || s.job.countries[1] != "GB" {
			t.Errorf("Expected countries to be passed through, got %v", s.job.countries)
		}
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		s := newTestServer(auth)
		w := s.do(http.MethodPost, "/api/admin/jobs/deals", "admin", "")
		if w.Code != http.StatusOK || s.job.calls != 1 || len(s.job.countries) != 0 {
			t.Fatalf("Expected default run, got %d calls=%d countries=%v", w.Code, s.job.calls, s.job.countries)
		}
	})

	t.Run("invalid country", func(t *testing.T) {
		s := newTestServer(auth)
		w := s.do(http.MethodPost, "/api/admin/jobs/deals", "admin", `{"countries":["USA"]}`)
		if w.Code != http.StatusBadRequest || s.job.calls != 0 {
			t.Fatalf("Expected 400 without running, got %d calls=%d", w.Code, s.job.calls)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(auth)
		w := s.do(http.MethodPost, "/api/admin/jobs/deals", "admin", `{"countries":`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		s := newTestServer(auth)
		w := s.do(http.MethodPost, "/api/admin/jobs/news", "admin", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("cron secret is not an admin token", func(t *testing.T) {
		s := newTestServer(config.AuthConfig{AdminToken: "admin", CronSecret: "cron"})
		w := s.do(http.MethodPost, "/api/admin/jobs/deals", "cron", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", w.Code)
		}
	})
}

func TestListJobs(t *testing.T) {
	s := newTestServer(config.AuthConfig{AdminToken: "admin"})
	w := s.do(http.MethodGet, "/api/admin/jobs", "admin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if s.jobs.limit != 20 {
		t.Errorf("Expected default limit 20, got %d", s.jobs.limit)
	}
	var body struct {
		Items []model.JobRun `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.Items) != 1 || body.Items[0].JobName != "syncDeals" {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestSourceGame(t *testing.T) {
	s := newTestServer(config.AuthConfig{AdminToken: "admin"})

	w := s.do(http.MethodGet, "/api/admin/source/games/mock-1", "admin", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Nebula Strikers") {
		t.Fatalf("Expected game details, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/admin/source/games/unknown", "admin", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestListDeals(t *testing.T) {
	s := newTestServer(config.AuthConfig{})

	w := s.do(http.MethodGet, "/api/deals?country=gb&q=nebula&stores=steam,%20epic-games-store&min_discount=50&max_price=1000&sort=price_asc&page=2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	f := s.query.filter
	if f.Country != "gb" || f.Search != "nebula" || f.MinDiscount != 50 || f.Sort != "price_asc" || f.Page != 2 {
		t.Errorf("Unexpected filter %+v", f)
	}
	if len(f.Stores) != 2 || f.Stores[1] != "epic-games-store" {
		t.Errorf("Expected store list to be split, got %v", f.Stores)
	}
	if f.MaxPriceCents == nil || *f.MaxPriceCents != 1000 || f.MinPriceCents != nil {
		t.Errorf("Unexpected price bounds %v / %v", f.MinPriceCents, f.MaxPriceCents)
	}

	var body struct {
		Items []struct {
			Price           string `json:"price"`
			DiscountPercent int    `json:"discountPercent"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Items) != 1 || body.Items[0].DiscountPercent != 75 || !strings.Contains(body.Items[0].Price, "4.99") {
		t.Errorf("Unexpected items %+v", body.Items)
	}
}

func TestListDeals_InvalidQuery(t *testing.T) {
	s := newTestServer(config.AuthConfig{})
	for _, q := range []string{"sort=cheapest", "min_discount=150", "country=USA", "page=-1", "page=10001", "page=9223372036854775807"} {
		if w := s.do(http.MethodGet, "/api/deals?"+q, "", ""); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got %d", q, w.Code)
		}
	}
}

func TestGameBySlug(t *testing.T) {
	s := newTestServer(config.AuthConfig{})

	w := s.do(http.MethodGet, "/api/games/nebula-strikers?country=us", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"country":"US"`) {
		t.Fatalf("Expected 200 for known game, got %d: %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodGet, "/api/games/missing", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestFeaturedAndRegions(t *testing.T) {
	s := newTestServer(config.AuthConfig{})

	w := s.do(http.MethodGet, "/api/deals/featured?country=zz", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"country":"US"`) {
		t.Fatalf("Expected unknown country to resolve to US, got %s", w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/regions", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"default":"US"`) {
		t.Fatalf("Unexpected regions body %s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/region/suggest", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"code":"DE"`) {
		t.Errorf("Expected DE suggestion, got %s", rec.Body.String())
	}

	if w := s.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d", w.Code)
	}
}
