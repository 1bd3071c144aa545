package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gonghojin/prompt-center-sub001/internal/api/handler"
	"github.com/gonghojin/prompt-center-sub001/internal/api/middleware"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/security"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeRecordService struct {
	mu       sync.Mutex
	commands []service.RecordViewCommand
	err      error
	count    *service.ViewCount
}

func (f *fakeRecordService) Record(_ context.Context, cmd service.RecordViewCommand) (*service.RecordResult, error) {
	return nil, f.RecordViewAsync(context.Background(), cmd)
}

func (f *fakeRecordService) RecordViewAsync(_ context.Context, cmd service.RecordViewCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeRecordService) GetViewCount(_ context.Context, promptID uint64) (*service.ViewCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := *f.count
	c.PromptID = promptID
	return &c, nil
}

func (f *fakeRecordService) Wait() {}

type fakeStatsService struct {
	period   service.ComparisonPeriod
	limit    int
	category []uint64
	err      error
}

func (f *fakeStatsService) GetViewStatistics(_ context.Context, period service.ComparisonPeriod, _ *uint64) (*service.ViewStatistics, error) {
	f.period = period
	if f.err != nil {
		return nil, f.err
	}
	return &service.ViewStatistics{
		TotalViewCount: 42,
		Period:         period,
		PreviousPeriod: period.Previous(),
		Comparison:     service.NewComparisonResult(6, 3),
	}, nil
}

func (f *fakeStatsService) GetWeeklyStatistics(_ context.Context, promptID *uint64) (*service.WeeklyViewStatistics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return service.NewWeeklyViewStatistics(promptID, 1, 4, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)), nil
}

func (f *fakeStatsService) GetTopViewed(_ context.Context, period service.ComparisonPeriod, limit int, categoryIDs []uint64) ([]*service.TopViewedPrompt, error) {
	f.period, f.limit, f.category = period, limit, categoryIDs
	if f.err != nil {
		return nil, f.err
	}
	p, err := service.NewTopViewedPrompt(1, 9, "title", "cat", "author", 10, 8, 10.0/3,
		time.Date(2026, 1, 6, 8, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	return []*service.TopViewedPrompt{p}, nil
}

func (f *fakeStatsService) GetDailyStatistics(_ context.Context, _ uint64, period service.ComparisonPeriod) ([]*service.DailyViewStatistics, error) {
	f.period = period
	if f.err != nil {
		return nil, f.err
	}
	return []*service.DailyViewStatistics{
		{Date: period.Start, Count: 2},
		{Date: period.Start.AddDate(0, 0, 1), Count: 0},
	}, nil
}

func (f *fakeStatsService) GetViewCountDistribution(_ context.Context, ranges []service.ViewCountRange, categoryIDs []uint64) ([]*service.ViewCountDistribution, error) {
	f.category = categoryIDs
	if f.err != nil {
		return nil, f.err
	}
	if len(ranges) == 0 {
		ranges = service.DefaultViewCountRanges()
	}
	res := make([]*service.ViewCountDistribution, 0, len(ranges))
	for i, r := range ranges {
		res = append(res, &service.ViewCountDistribution{Range: r, PromptCount: int64(i)})
	}
	return res, nil
}

type fakeSyncService struct {
	service.FlushRequester
	err error
}

func (f *fakeSyncService) Reconcile(context.Context) (*service.SyncReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.SyncReport{Scanned: 3, Flushed: 2, Failed: 1, FailedPromptIDs: []uint64{7}, Duration: 1500 * time.Millisecond}, nil
}

func (f *fakeSyncService) ForceSync(_ context.Context, promptID uint64) (*service.ViewCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.ViewCount{PromptID: promptID, TotalViewCount: 11}, nil
}

func (f *fakeSyncService) ValidateConsistency(context.Context) (*service.ConsistencyReport, error) {
	return &service.ConsistencyReport{}, nil
}

func (f *fakeSyncService) FlushRequests() <-chan string { return nil }

type fixture struct {
	engine *gin.Engine
	record *fakeRecordService
	stats  *fakeStatsService
	sync   *fakeSyncService
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		record: &fakeRecordService{count: &service.ViewCount{TotalViewCount: 5}},
		stats:  &fakeStatsService{},
		sync:   &fakeSyncService{},
	}
	viewHandler := handler.NewViewHandler(f.record, f.stats, time.UTC)
	statsHandler := handler.NewViewStatisticsHandler(f.stats, time.UTC)
	adminHandler := handler.NewViewAdminHandler(f.sync)

	r := gin.New()
	prompts := r.Group("/api/prompts/:prompt_id/views")
	prompts.GET("/count", viewHandler.GetViewCount)
	prompts.GET("/daily", viewHandler.GetDailyStatistics)
	prompts.POST("", middleware.AuthOptionalMiddleware(), viewHandler.RecordView)
	views := r.Group("/api/views")
	views.GET("/statistics", statsHandler.GetStatistics)
	views.GET("/weekly", statsHandler.GetWeekly)
	views.GET("/top", statsHandler.GetTopViewed)
	views.GET("/distribution", statsHandler.GetViewCountDistribution)
	admin := r.Group("/api/admin/views", middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleAdmin))
	admin.POST("/sync/:prompt_id", adminHandler.ForceSync)
	admin.POST("/reconcile", adminHandler.Reconcile)
	f.engine = r
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string, headers map[string]string) envelope {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func bearer(t *testing.T, userID uint64, roles ...string) map[string]string {
	t.Helper()
	token, err := security.GenerateToken(userID, roles)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRecordView(t *testing.T) {
	f := newFixture()

	resp := f.do(t, http.MethodPost, "/api/prompts/7/views", `{"anonymous_id":"body-id"}`, nil)
	assert.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `{"prompt_id":7,"accepted":true}`, string(resp.Data))

	headers := bearer(t, 42)
	headers[consts.HeaderAnonymousID] = "header-id"
	resp = f.do(t, http.MethodPost, "/api/prompts/7/views", "", headers)
	assert.Equal(t, 200, resp.Code)

	require.Len(t, f.record.commands, 2)
	assert.Equal(t, "body-id", f.record.commands[0].AnonymousID)
	assert.Equal(t, uint64(0), f.record.commands[0].UserID)
	assert.Equal(t, "192.0.2.1", f.record.commands[0].IPAddress)
	assert.Equal(t, "header-id", f.record.commands[1].AnonymousID)
	assert.Equal(t, uint64(42), f.record.commands[1].UserID)
}

func TestRecordView_LongAnonymousIDAccepted(t *testing.T) {
	f := newFixture()
	longID := strings.Repeat("a", 65)

	resp := f.do(t, http.MethodPost, "/api/prompts/7/views", fmt.Sprintf(`{"anonymous_id":%q}`, longID), nil)
	assert.Equal(t, 200, resp.Code)
	require.Len(t, f.record.commands, 1)
	assert.Equal(t, longID, f.record.commands[0].AnonymousID)
}

func TestRecordView_Errors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		err      error
		wantCode int
	}{
		{name: "bad prompt id", target: "/api/prompts/abc/views", wantCode: 400},
		{name: "zero prompt id", target: "/api/prompts/0/views", wantCode: 400},
		{name: "unknown prompt", target: "/api/prompts/7/views", err: service.ErrPromptNotFound, wantCode: 404},
		{name: "unexpected", target: "/api/prompts/7/views", err: fmt.Errorf("boom"), wantCode: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.record.err = tt.err
			resp := f.do(t, http.MethodPost, tt.target, tt.body, nil)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestGetViewCount(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/prompts/7/views/count", "", nil)
	assert.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `{"prompt_id":7,"total_view_count":5}`, string(resp.Data))

	f.record.err = fmt.Errorf("%w: db down", service.ErrStatisticsUnavailable)
	resp = f.do(t, http.MethodGet, "/api/prompts/7/views/count", "", nil)
	assert.Equal(t, 503, resp.Code)
}

func TestGetDailyStatistics(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/prompts/7/views/daily?start_date=2026-01-05&end_date=2026-01-06", "", nil)
	assert.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `[{"date":"2026-01-05","count":2},{"date":"2026-01-06","count":0}]`, string(resp.Data))
	assert.Equal(t, time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC), f.stats.period.End, "date-only end is inclusive")

	resp = f.do(t, http.MethodGet, "/api/prompts/7/views/daily?start_date=2026-01-07&end_date=2026-01-05", "", nil)
	assert.Equal(t, 400, resp.Code)
	resp = f.do(t, http.MethodGet, "/api/prompts/7/views/daily?start_date=yesterday&end_date=2026-01-05", "", nil)
	assert.Equal(t, 400, resp.Code)
}

func TestGetStatistics(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/views/statistics?start_date=2026-01-05T00:00:00Z&end_date=2026-01-07T00:00:00Z", "", nil)
	require.Equal(t, 200, resp.Code)

	var data struct {
		TotalViewCount int64  `json:"total_view_count"`
		PreviousStart  string `json:"previous_start"`
		Comparison     struct {
			CurrentCount     int64   `json:"current_count"`
			PreviousCount    int64   `json:"previous_count"`
			PercentageChange float64 `json:"percentage_change"`
			IsIncreased      bool    `json:"is_increased"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, int64(42), data.TotalViewCount)
	assert.Equal(t, "2026-01-03T00:00:00Z", data.PreviousStart)
	assert.Equal(t, int64(6), data.Comparison.CurrentCount)
	assert.Equal(t, 100.0, data.Comparison.PercentageChange)
	assert.True(t, data.Comparison.IsIncreased)

	resp = f.do(t, http.MethodGet, "/api/views/statistics?start_date=2026-01-05", "", nil)
	assert.Equal(t, 400, resp.Code)
}

func TestGetWeekly(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/views/weekly?prompt_id=3", "", nil)
	require.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `{
		"prompt_id": 3,
		"this_week_count": 1,
		"last_week_count": 4,
		"delta": -3,
		"change_rate": -75,
		"week_start_date": "2026-01-05",
		"week_end_date": "2026-01-11",
		"trend": "DOWN"
	}`, string(resp.Data))
}

func TestGetTopViewed(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/views/top?start_date=2026-01-05&end_date=2026-01-06&limit=5&category_ids=2&category_ids=3", "", nil)
	require.Equal(t, 200, resp.Code)
	assert.Equal(t, 5, f.stats.limit)
	assert.Equal(t, []uint64{2, 3}, f.stats.category)

	var data []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data, 1)
	assert.Equal(t, 3.33, data[0]["average_daily_views"])
	assert.Equal(t, "2026-01-06T08:00:00Z", data[0]["last_viewed_at"])
	assert.Equal(t, true, data[0]["is_top_ranked"])
	assert.Equal(t, true, data[0]["has_inconsistent_data"])

	resp = f.do(t, http.MethodGet, "/api/views/top?start_date=2026-01-05&end_date=2026-01-06&limit=101", "", nil)
	assert.Equal(t, 400, resp.Code)
}

func TestGetViewCountDistribution(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/views/distribution?category_ids=4", "", nil)
	require.Equal(t, 200, resp.Code)
	assert.Equal(t, []uint64{4}, f.stats.category)

	var data []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Len(t, data, 6)
	assert.Equal(t, "0-10", data[0]["range"])
	assert.Equal(t, float64(10), data[0]["max_count"])
	assert.Equal(t, "1000+", data[5]["range"])
	assert.Equal(t, float64(1001), data[5]["min_count"])
	assert.Nil(t, data[5]["max_count"])
	assert.Equal(t, float64(5), data[5]["prompt_count"])

	resp = f.do(t, http.MethodGet, "/api/views/distribution?category_ids=0", "", nil)
	assert.Equal(t, 400, resp.Code)

	f.stats.err = service.ErrStatisticsUnavailable
	resp = f.do(t, http.MethodGet, "/api/views/distribution", "", nil)
	assert.Equal(t, 503, resp.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture()

	resp := f.do(t, http.MethodPost, "/api/admin/views/reconcile", "", nil)
	assert.Equal(t, 401, resp.Code)
	resp = f.do(t, http.MethodPost, "/api/admin/views/reconcile", "", bearer(t, 1, "USER"))
	assert.Equal(t, 403, resp.Code)

	admin := bearer(t, 1, consts.RoleAdmin)
	resp = f.do(t, http.MethodPost, "/api/admin/views/reconcile", "", admin)
	require.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `{"scanned":3,"flushed":2,"failed":1,"raised":0,"failed_prompt_ids":[7],"duration_ms":1500}`, string(resp.Data))

	resp = f.do(t, http.MethodPost, "/api/admin/views/sync/7", "", admin)
	require.Equal(t, 200, resp.Code)
	assert.JSONEq(t, `{"prompt_id":7,"total_view_count":11}`, string(resp.Data))

	f.sync.err = service.ErrSyncInProgress
	resp = f.do(t, http.MethodPost, "/api/admin/views/reconcile", "", admin)
	assert.Equal(t, 409, resp.Code)
}

func TestRetryableErrorsSetRetryAfter(t *testing.T) {
	f := newFixture()
	f.record.err = fmt.Errorf("%w: db down", service.ErrStatisticsUnavailable)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts/7/views/count", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))

	f.record.err = service.ErrPromptNotFound
	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/prompts/7/views/count", nil))
	assert.Empty(t, w.Header().Get("Retry-After"))
}
