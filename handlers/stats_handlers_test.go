package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"validateiq/api/models"
	"validateiq/api/store"
)

type fakeVisitorAggregates struct {
	count      int
	countCalls int
	devices    map[string]int
	referrers  map[string]int
}

func (f *fakeVisitorAggregates) Count(_ context.Context) (int, error) {
	f.countCalls++
	return f.count, nil
}

func (f *fakeVisitorAggregates) DeviceBreakdown(_ context.Context) (map[string]int, error) {
	return f.devices, nil
}

func (f *fakeVisitorAggregates) ReferrerBreakdown(_ context.Context) (map[string]int, error) {
	return f.referrers, nil
}

type fakePageViewAggregates struct {
	count     int
	avgTime   float64
	avgScroll float64
}

func (f *fakePageViewAggregates) Count(_ context.Context) (int, error) { return f.count, nil }

func (f *fakePageViewAggregates) AvgTimeOnPage(_ context.Context) (float64, error) {
	return f.avgTime, nil
}

func (f *fakePageViewAggregates) AvgScrollDepth(_ context.Context) (float64, error) {
	return f.avgScroll, nil
}

type fakeEventAggregates struct {
	types      map[string]uint64
	sections   map[string]uint64
	distinct   map[string]uint64
	distinctBy []string
}

func (f *fakeEventAggregates) TypeBreakdown(_ context.Context) (map[string]uint64, error) {
	return f.types, nil
}

func (f *fakeEventAggregates) SectionEngagement(_ context.Context) (map[string]uint64, error) {
	return f.sections, nil
}

func (f *fakeEventAggregates) DistinctVisitors(_ context.Context, eventType string) (uint64, error) {
	f.distinctBy = append(f.distinctBy, eventType)
	return f.distinct[eventType], nil
}

type fakeSignupAggregates struct {
	count int
	votes map[string]int
}

func (f *fakeSignupAggregates) Count(_ context.Context) (int, error) { return f.count, nil }

func (f *fakeSignupAggregates) FeatureVotes(_ context.Context) (map[string]int, error) {
	return f.votes, nil
}

func newMiniredisCache(t *testing.T) *store.StatsCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return store.NewStatsCache(client, time.Minute)
}

func newStatsRouter(h *StatsHandlers) *gin.Engine {
	r := gin.New()
	r.GET("/api/stats/dashboard", h.GetDashboardStats)
	return r
}

func getDashboard(t *testing.T, r *gin.Engine) (*httptest.ResponseRecorder, models.DashboardStats) {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/stats/dashboard", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var stats models.DashboardStats
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	}
	return w, stats
}

func TestGetDashboardStats(t *testing.T) {
	visitors := &fakeVisitorAggregates{
		count:     4,
		devices:   map[string]int{"desktop": 3, "mobile": 1},
		referrers: map[string]int{"direct": 4},
	}
	events := &fakeEventAggregates{
		types:    map[string]uint64{"click": 20, "scroll_depth": 14},
		sections: map[string]uint64{"hero": 4, "pricing": 2},
		distinct: map[string]uint64{"form_focus": 3, "form_field_blur": 2},
	}
	h := NewStatsHandlers(
		visitors,
		&fakePageViewAggregates{count: 6, avgTime: 93.25, avgScroll: 66.666},
		events,
		&fakeSignupAggregates{count: 1, votes: map[string]int{"ai_validation": 1}},
		nilCache(),
	)

	w, stats := getDashboard(t, newStatsRouter(h))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, stats.Overview.TotalVisitors)
	assert.Equal(t, 6, stats.Overview.TotalPageViews)
	assert.Equal(t, 1, stats.Overview.TotalSignups)
	assert.Equal(t, 25.0, stats.Overview.ConversionRate)
	assert.Equal(t, 93.3, stats.Overview.AvgTimeOnPageSeconds)
	assert.Equal(t, 66.7, stats.Overview.AvgScrollDepth)

	assert.Equal(t, map[string]int{"ai_validation": 1}, stats.FeatureVotes)
	assert.Equal(t, map[string]int{"desktop": 3, "mobile": 1}, stats.DeviceBreakdown)
	assert.Equal(t, map[string]uint64{"click": 20, "scroll_depth": 14}, stats.EventsBreakdown)

	assert.Equal(t, 4, stats.FormFunnel.Visitors)
	assert.Equal(t, uint64(3), stats.FormFunnel.ReachedForm)
	assert.Equal(t, uint64(2), stats.FormFunnel.FilledEmail)
	assert.Equal(t, 1, stats.FormFunnel.CompletedSignup)

	assert.Equal(t, []string{"form_focus", "form_field_blur"}, events.distinctBy)
}

func TestGetDashboardStatsNoVisitors(t *testing.T) {
	h := NewStatsHandlers(
		&fakeVisitorAggregates{},
		&fakePageViewAggregates{},
		&fakeEventAggregates{},
		&fakeSignupAggregates{},
		nilCache(),
	)

	w, stats := getDashboard(t, newStatsRouter(h))

	require.Equal(t, http.StatusOK, w.Code)
	// No division by zero; the rate is simply 0.
	assert.Equal(t, 0.0, stats.Overview.ConversionRate)
	assert.Equal(t, 0, stats.FormFunnel.Visitors)
}

func TestGetDashboardStatsConversionRounding(t *testing.T) {
	h := NewStatsHandlers(
		&fakeVisitorAggregates{count: 3},
		&fakePageViewAggregates{},
		&fakeEventAggregates{},
		&fakeSignupAggregates{count: 1},
		nilCache(),
	)

	_, stats := getDashboard(t, newStatsRouter(h))

	// 1/3 * 100 = 33.333... rounded to 2 decimals.
	assert.Equal(t, 33.33, stats.Overview.ConversionRate)
}

func TestGetDashboardStatsServedFromCache(t *testing.T) {
	visitors := &fakeVisitorAggregates{count: 4}
	h := NewStatsHandlers(
		visitors,
		&fakePageViewAggregates{},
		&fakeEventAggregates{},
		&fakeSignupAggregates{count: 1},
		newMiniredisCache(t),
	)
	r := newStatsRouter(h)

	for i := 0; i < 3; i++ {
		w, stats := getDashboard(t, r)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 25.0, stats.Overview.ConversionRate)
	}

	// Only the first request runs the aggregate queries.
	assert.Equal(t, 1, visitors.countCalls)
}
