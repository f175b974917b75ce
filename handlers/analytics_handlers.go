// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"validateiq/api/models"
	"validateiq/api/store"
	"validateiq/api/utils"
)

// visitorResolver is the slice of the visitor store the tracking endpoints
// need.
type visitorResolver interface {
	Resolve(ctx context.Context, ipAddress string, firstTouch store.FirstTouch) (*models.Visitor, error)
	IncrementEvents(ctx context.Context, visitorID int) error
}

type pageViewRecorder interface {
	Create(ctx context.Context, pageView *models.PageView) error
	ApplyPartialUpdate(ctx context.Context, pageViewID int, metrics store.PartialMetrics) (*models.PageView, error)
	Finalize(ctx context.Context, pageViewID, timeOnPageSeconds, maxScrollDepth int) (*models.PageView, error)
}

type eventRecorder interface {
	Insert(ctx context.Context, event *models.Event) error
}

type AnalyticsHandlers struct {
	visitors  visitorResolver
	pageViews pageViewRecorder
	events    eventRecorder
}

func NewAnalyticsHandlers(visitors visitorResolver, pageViews pageViewRecorder, events eventRecorder) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		visitors:  visitors,
		pageViews: pageViews,
		events:    events,
	}
}

// InitVisitorRequest is sent by the frontend once per page load.
type InitVisitorRequest struct {
	Referrer       *string `json:"referrer"`
	UTMSource      *string `json:"utm_source"`
	UTMMedium      *string `json:"utm_medium"`
	UTMCampaign    *string `json:"utm_campaign"`
	UTMContent     *string `json:"utm_content"`
	ScreenWidth    *int    `json:"screen_width"`
	ScreenHeight   *int    `json:"screen_height"`
	ViewportWidth  *int    `json:"viewport_width"`
	ViewportHeight *int    `json:"viewport_height"`
}

// InitVisitor resolves the caller to a visitor (creating one on first
// contact) and opens a page view for this load. The returned identifiers are
// echoed back by the frontend on every subsequent tracking call.
func (h *AnalyticsHandlers) InitVisitor(c *gin.Context) {
	var req InitVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ipAddress := utils.ClientIP(c.Request)
	rawUserAgent := c.Request.UserAgent()

	visitor, err := h.visitors.Resolve(ctx, ipAddress, store.FirstTouch{
		UserAgent:   rawUserAgent,
		Profile:     utils.ClassifyUserAgent(rawUserAgent),
		Referrer:    req.Referrer,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	})
	if err != nil {
		log.Printf("Error resolving visitor for %s: %v", ipAddress, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize visitor"})
		return
	}

	sessionID := uuid.New().String()
	pageView := &models.PageView{
		VisitorID:      visitor.ID,
		Referrer:       req.Referrer,
		UTMSource:      req.UTMSource,
		UTMMedium:      req.UTMMedium,
		UTMCampaign:    req.UTMCampaign,
		UTMContent:     req.UTMContent,
		ScreenWidth:    req.ScreenWidth,
		ScreenHeight:   req.ScreenHeight,
		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,
		SessionID:      &sessionID,
	}
	if err := h.pageViews.Create(ctx, pageView); err != nil {
		log.Printf("Error creating page view for visitor %d: %v", visitor.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record page view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"visitor_id":   visitor.ID,
		"page_view_id": pageView.ID,
		"is_returning": visitor.TotalVisits > 1,
		"visit_count":  visitor.TotalVisits,
	})
}

// TrackEventRequest describes one interaction on the page.
type TrackEventRequest struct {
	EventType         string                 `json:"event_type" binding:"required"`
	EventCategory     *string                `json:"event_category"`
	ElementID         *string                `json:"element_id"`
	ElementClass      *string                `json:"element_class"`
	ElementText       *string                `json:"element_text"`
	Section           *string                `json:"section"`
	Properties        map[string]interface{} `json:"properties"`
	ScrollPosition    *int                   `json:"scroll_position"`
	TimeSincePageLoad *int                   `json:"time_since_page_load"`
}

// TrackEvent records an interaction event and bumps the visitor's event
// counter. The page view reference is stored as sent; whether it belongs to
// the visitor is not verified.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	visitorID, err := strconv.Atoi(c.Query("visitor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visitor_id query parameter is required"})
		return
	}

	var pageViewID *int
	if raw := c.Query("page_view_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_view_id query parameter"})
			return
		}
		pageViewID = &parsed
	}

	var req TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	event := &models.Event{
		EventID:           uuid.New().String(),
		VisitorID:         visitorID,
		PageViewID:        pageViewID,
		CreatedAt:         time.Now().UTC(),
		EventType:         req.EventType,
		EventCategory:     req.EventCategory,
		ElementID:         req.ElementID,
		ElementClass:      req.ElementClass,
		ElementText:       req.ElementText,
		Section:           req.Section,
		Properties:        req.Properties,
		ScrollPosition:    req.ScrollPosition,
		TimeSincePageLoad: req.TimeSincePageLoad,
	}
	if err := h.events.Insert(ctx, event); err != nil {
		log.Printf("Error inserting event for visitor %d: %v", visitorID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}

	// Best effort: if the visitor disappeared between init and this call,
	// the event still stands and the counter bump is skipped.
	if err := h.visitors.IncrementEvents(ctx, visitorID); err != nil && !errors.Is(err, store.ErrVisitorNotFound) {
		log.Printf("Error incrementing event count for visitor %d: %v", visitorID, err)
	}

	c.JSON(http.StatusOK, gin.H{"event_id": event.EventID})
}

// UpdatePageViewRequest carries a periodic metrics update; omitted fields
// stay untouched.
type UpdatePageViewRequest struct {
	PageViewID        int   `json:"page_view_id" binding:"required"`
	TimeOnPageSeconds *int  `json:"time_on_page_seconds"`
	MaxScrollDepth    *int  `json:"max_scroll_depth"`
	ReachedForm       *bool `json:"reached_form"`
}

// UpdatePageView applies a partial engagement update. An unknown page view
// id is a silent no-op.
func (h *AnalyticsHandlers) UpdatePageView(c *gin.Context) {
	var req UpdatePageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	_, err := h.pageViews.ApplyPartialUpdate(ctx, req.PageViewID, store.PartialMetrics{
		TimeOnPageSeconds: req.TimeOnPageSeconds,
		MaxScrollDepth:    req.MaxScrollDepth,
		ReachedForm:       req.ReachedForm,
	})
	if err != nil && !errors.Is(err, store.ErrPageViewNotFound) {
		log.Printf("Error updating page view %d: %v", req.PageViewID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update page view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BeaconRequest is the final report sent via navigator.sendBeacon as the
// visitor leaves the page.
type BeaconRequest struct {
	PageViewID        int `json:"page_view_id" binding:"required"`
	TimeOnPageSeconds int `json:"time_on_page_seconds"`
	MaxScrollDepth    int `json:"max_scroll_depth"`
	// Reported by the client but not reconciled against stored events.
	EventsCount int `json:"events_count"`
}

// Beacon finalizes a page view with the authoritative exit metrics. An
// unknown page view id is a silent no-op, since the sender is already gone.
func (h *AnalyticsHandlers) Beacon(c *gin.Context) {
	var req BeaconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	_, err := h.pageViews.Finalize(ctx, req.PageViewID, req.TimeOnPageSeconds, req.MaxScrollDepth)
	if err != nil && !errors.Is(err, store.ErrPageViewNotFound) {
		log.Printf("Error finalizing page view %d: %v", req.PageViewID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize page view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
