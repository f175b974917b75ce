// api/handlers/stats_handlers.go
package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"validateiq/api/models"
	"validateiq/api/store"
)

type visitorAggregates interface {
	Count(ctx context.Context) (int, error)
	DeviceBreakdown(ctx context.Context) (map[string]int, error)
	ReferrerBreakdown(ctx context.Context) (map[string]int, error)
}

type pageViewAggregates interface {
	Count(ctx context.Context) (int, error)
	AvgTimeOnPage(ctx context.Context) (float64, error)
	AvgScrollDepth(ctx context.Context) (float64, error)
}

type eventAggregates interface {
	TypeBreakdown(ctx context.Context) (map[string]uint64, error)
	SectionEngagement(ctx context.Context) (map[string]uint64, error)
	DistinctVisitors(ctx context.Context, eventType string) (uint64, error)
}

type signupAggregates interface {
	Count(ctx context.Context) (int, error)
	FeatureVotes(ctx context.Context) (map[string]int, error)
}

type StatsHandlers struct {
	visitors  visitorAggregates
	pageViews pageViewAggregates
	events    eventAggregates
	signups   signupAggregates
	cache     *store.StatsCache
}

func NewStatsHandlers(visitors visitorAggregates, pageViews pageViewAggregates, events eventAggregates, signups signupAggregates, cache *store.StatsCache) *StatsHandlers {
	return &StatsHandlers{
		visitors:  visitors,
		pageViews: pageViews,
		events:    events,
		signups:   signups,
		cache:     cache,
	}
}

// GetDashboardStats assembles the full conversion dashboard. Served from
// cache when a fresh copy exists.
func (h *StatsHandlers) GetDashboardStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if cached, ok := h.cache.GetDashboard(ctx); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	stats, err := h.buildDashboard(ctx)
	if err != nil {
		log.Printf("Error building dashboard stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard statistics"})
		return
	}
	h.cache.SetDashboard(ctx, stats)

	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandlers) buildDashboard(ctx context.Context) (*models.DashboardStats, error) {
	totalVisitors, err := h.visitors.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalPageViews, err := h.pageViews.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalSignups, err := h.signups.Count(ctx)
	if err != nil {
		return nil, err
	}

	conversionRate := 0.0
	if totalVisitors > 0 {
		conversionRate = round2(float64(totalSignups) / float64(totalVisitors) * 100)
	}

	avgTimeOnPage, err := h.pageViews.AvgTimeOnPage(ctx)
	if err != nil {
		return nil, err
	}
	avgScrollDepth, err := h.pageViews.AvgScrollDepth(ctx)
	if err != nil {
		return nil, err
	}

	featureVotes, err := h.signups.FeatureVotes(ctx)
	if err != nil {
		return nil, err
	}
	deviceBreakdown, err := h.visitors.DeviceBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	referrerBreakdown, err := h.visitors.ReferrerBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	eventsBreakdown, err := h.events.TypeBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	sectionEngagement, err := h.events.SectionEngagement(ctx)
	if err != nil {
		return nil, err
	}

	// Funnel stages are independent distinct-visitor counts, not a strict
	// subset chain.
	reachedForm, err := h.events.DistinctVisitors(ctx, "form_focus")
	if err != nil {
		return nil, err
	}
	filledEmail, err := h.events.DistinctVisitors(ctx, "form_field_blur")
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		Overview: models.Overview{
			TotalVisitors:        totalVisitors,
			TotalPageViews:       totalPageViews,
			TotalSignups:         totalSignups,
			ConversionRate:       conversionRate,
			AvgTimeOnPageSeconds: round1(avgTimeOnPage),
			AvgScrollDepth:       round1(avgScrollDepth),
		},
		FeatureVotes:      featureVotes,
		DeviceBreakdown:   deviceBreakdown,
		ReferrerBreakdown: referrerBreakdown,
		EventsBreakdown:   eventsBreakdown,
		SectionEngagement: sectionEngagement,
		FormFunnel: models.FormFunnel{
			Visitors:        totalVisitors,
			ReachedForm:     reachedForm,
			FilledEmail:     filledEmail,
			CompletedSignup: totalSignups,
		},
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
