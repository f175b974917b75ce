package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analytics/init", nil)
	req.RemoteAddr = "203.0.113.7:54321"

	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analytics/init", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestClientIPTrimsForwardedFor(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analytics/init", nil)
	req.Header.Set("X-Forwarded-For", "  203.0.113.7 , 10.0.0.1")

	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestClientIPNoPort(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/analytics/init", nil)
	req.RemoteAddr = "203.0.113.7"

	assert.Equal(t, "203.0.113.7", ClientIP(req))
}
