// api/handlers/signup_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"validateiq/api/models"
	"validateiq/api/store"
)

// waitlistCapacity is the advertised number of early-access spots.
const waitlistCapacity = 100

type waitlistRegistrar interface {
	Register(ctx context.Context, registration store.Registration) (*models.Signup, error)
	Count(ctx context.Context) (int, error)
}

type visitorEventCounter interface {
	CountByVisitor(ctx context.Context, visitorID int) (uint64, error)
}

type SignupHandlers struct {
	signups waitlistRegistrar
	events  visitorEventCounter
	cache   *store.StatsCache
}

func NewSignupHandlers(signups waitlistRegistrar, events visitorEventCounter, cache *store.StatsCache) *SignupHandlers {
	return &SignupHandlers{
		signups: signups,
		events:  events,
		cache:   cache,
	}
}

type CreateSignupRequest struct {
	VisitorID           int    `json:"visitor_id" binding:"required"`
	Email               string `json:"email" binding:"required,email"`
	MostWantedFeature   string `json:"most_wanted_feature" binding:"required"`
	MarketingConsent    bool   `json:"marketing_consent"`
	SignupSource        string `json:"signup_source"`
	TimeToSignupSeconds *int   `json:"time_to_signup_seconds"`
}

// CreateSignup registers a visitor on the waitlist and reports their
// position. A repeated email gets a friendly rejection rather than a second
// spot.
func (h *SignupHandlers) CreateSignup(c *gin.Context) {
	var req CreateSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.SignupSource == "" {
		req.SignupSource = "main_form"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	// Pre-signup engagement snapshot. If the event store is unavailable the
	// signup still goes through with a zero snapshot.
	eventsBefore := 0
	if count, err := h.events.CountByVisitor(ctx, req.VisitorID); err != nil {
		log.Printf("Error counting pre-signup events for visitor %d: %v", req.VisitorID, err)
	} else {
		eventsBefore = int(count)
	}

	signup, err := h.signups.Register(ctx, store.Registration{
		VisitorID:           req.VisitorID,
		Email:               req.Email,
		MostWantedFeature:   req.MostWantedFeature,
		MarketingConsent:    req.MarketingConsent,
		SignupSource:        req.SignupSource,
		TimeToSignupSeconds: req.TimeToSignupSeconds,
		EventsBeforeSignup:  eventsBefore,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "This email is already on the waitlist!"})
		case errors.Is(err, store.ErrVisitorNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Visitor not found"})
		default:
			log.Printf("Error creating signup for visitor %d: %v", req.VisitorID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create signup"})
		}
		return
	}

	h.cache.InvalidateSignups(ctx)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"position":   signup.WaitlistPosition,
		"spots_left": spotsLeft(signup.WaitlistPosition),
		"message":    "You're in! Check your inbox for confirmation.",
	})
}

// GetSignupCount returns the current waitlist size for the scarcity counter
// on the landing page.
func (h *SignupHandlers) GetSignupCount(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if count, ok := h.cache.GetSignupCount(ctx); ok {
		c.JSON(http.StatusOK, gin.H{"count": count, "spots_left": spotsLeft(count)})
		return
	}

	count, err := h.signups.Count(ctx)
	if err != nil {
		log.Printf("Error counting signups: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve signup count"})
		return
	}
	h.cache.SetSignupCount(ctx, count)

	c.JSON(http.StatusOK, gin.H{"count": count, "spots_left": spotsLeft(count)})
}

func spotsLeft(taken int) int {
	if left := waitlistCapacity - taken; left > 0 {
		return left
	}
	return 0
}
