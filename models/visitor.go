// api/models/visitor.go
package models

import "time"

// Visitor is a deduplicated identity keyed by client IP address. One row per
// IP; repeat page loads bump the counters instead of creating new rows.
// Browser/OS/device fields and the original referrer/UTM context are
// first-touch: they are written once at creation and never refreshed.
type Visitor struct {
	ID          int     `json:"id"`
	IPAddress   string  `json:"ip_address"`
	Fingerprint *string `json:"fingerprint,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Parsed from the User-Agent header at first contact.
	UserAgent      *string `json:"user_agent,omitempty"`
	Browser        *string `json:"browser,omitempty"`
	BrowserVersion *string `json:"browser_version,omitempty"`
	OS             *string `json:"os,omitempty"`
	OSVersion      *string `json:"os_version,omitempty"`
	DeviceType     *string `json:"device_type,omitempty"` // mobile, tablet, desktop, bot, unknown
	DeviceBrand    *string `json:"device_brand,omitempty"`
	DeviceModel    *string `json:"device_model,omitempty"`
	IsBot          bool    `json:"is_bot"`

	// Where they came from the first time.
	OriginalReferrer *string `json:"original_referrer,omitempty"`
	UTMSource        *string `json:"utm_source,omitempty"`
	UTMMedium        *string `json:"utm_medium,omitempty"`
	UTMCampaign      *string `json:"utm_campaign,omitempty"`

	// Lifetime counters.
	TotalVisits      int `json:"total_visits"`
	TotalEvents      int `json:"total_events"`
	TotalTimeSeconds int `json:"total_time_seconds"`

	Converted   bool       `json:"converted"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
}
