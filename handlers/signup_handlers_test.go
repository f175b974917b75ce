package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"validateiq/api/models"
	"validateiq/api/store"
)

type fakeRegistrar struct {
	signup       *models.Signup
	registerErr  error
	registration store.Registration
	count        int
	countErr     error
	countCalls   int
}

func (f *fakeRegistrar) Register(_ context.Context, registration store.Registration) (*models.Signup, error) {
	f.registration = registration
	return f.signup, f.registerErr
}

func (f *fakeRegistrar) Count(_ context.Context) (int, error) {
	f.countCalls++
	return f.count, f.countErr
}

type fakeEventCounter struct {
	count    uint64
	countErr error
}

func (f *fakeEventCounter) CountByVisitor(_ context.Context, _ int) (uint64, error) {
	return f.count, f.countErr
}

func newSignupRouter(h *SignupHandlers) *gin.Engine {
	r := gin.New()
	r.POST("/api/signups/", h.CreateSignup)
	r.GET("/api/signups/count", h.GetSignupCount)
	return r
}

func nilCache() *store.StatsCache {
	return store.NewStatsCache(nil, time.Minute)
}

func TestCreateSignup(t *testing.T) {
	registrar := &fakeRegistrar{
		signup: &models.Signup{ID: 5, VisitorID: 1, WaitlistPosition: 5},
	}
	h := NewSignupHandlers(registrar, &fakeEventCounter{count: 12}, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         1,
		Email:             "founder@example.com",
		MostWantedFeature: "ai_validation",
		MarketingConsent:  true,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success   bool   `json:"success"`
		Position  int    `json:"position"`
		SpotsLeft int    `json:"spots_left"`
		Message   string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 5, resp.Position)
	assert.Equal(t, 95, resp.SpotsLeft)
	assert.Equal(t, "You're in! Check your inbox for confirmation.", resp.Message)

	assert.Equal(t, "main_form", registrar.registration.SignupSource)
	assert.Equal(t, 12, registrar.registration.EventsBeforeSignup)
}

func TestCreateSignupSpotsLeftNeverNegative(t *testing.T) {
	registrar := &fakeRegistrar{
		signup: &models.Signup{WaitlistPosition: 150},
	}
	h := NewSignupHandlers(registrar, &fakeEventCounter{}, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         1,
		Email:             "late@example.com",
		MostWantedFeature: "survey_tools",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["spots_left"])
}

func TestCreateSignupDuplicateEmail(t *testing.T) {
	registrar := &fakeRegistrar{registerErr: store.ErrDuplicateEmail}
	h := NewSignupHandlers(registrar, &fakeEventCounter{}, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         1,
		Email:             "taken@example.com",
		MostWantedFeature: "ai_validation",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "This email is already on the waitlist!"}`, w.Body.String())
}

func TestCreateSignupUnknownVisitor(t *testing.T) {
	registrar := &fakeRegistrar{registerErr: store.ErrVisitorNotFound}
	h := NewSignupHandlers(registrar, &fakeEventCounter{}, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         999,
		Email:             "new@example.com",
		MostWantedFeature: "ai_validation",
	}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSignupInvalidEmail(t *testing.T) {
	h := NewSignupHandlers(&fakeRegistrar{}, &fakeEventCounter{}, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         1,
		Email:             "not-an-email",
		MostWantedFeature: "ai_validation",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSignupEventStoreDownDegradesToZero(t *testing.T) {
	registrar := &fakeRegistrar{
		signup: &models.Signup{WaitlistPosition: 1},
	}
	counter := &fakeEventCounter{countErr: errors.New("clickhouse unavailable")}
	h := NewSignupHandlers(registrar, counter, nilCache())

	w := postJSON(t, newSignupRouter(h), "/api/signups/", CreateSignupRequest{
		VisitorID:         1,
		Email:             "founder@example.com",
		MostWantedFeature: "ai_validation",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, registrar.registration.EventsBeforeSignup)
}

func TestGetSignupCount(t *testing.T) {
	registrar := &fakeRegistrar{count: 42}
	h := NewSignupHandlers(registrar, &fakeEventCounter{}, nilCache())
	r := newSignupRouter(h)

	req := httptest.NewRequest("GET", "/api/signups/count", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 42, "spots_left": 58}`, w.Body.String())
}

func TestGetSignupCountServedFromCache(t *testing.T) {
	registrar := &fakeRegistrar{count: 42}
	h := NewSignupHandlers(registrar, &fakeEventCounter{}, newMiniredisCache(t))
	r := newSignupRouter(h)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/signups/count", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"count": 42, "spots_left": 58}`, w.Body.String())
	}

	// Only the first request reaches the database.
	assert.Equal(t, 1, registrar.countCalls)
}
