// api/models/page_view.go
package models

import "time"

// PageView is one page-load session for a visitor. TimeOnPageSeconds and
// MaxScrollDepth start unset and are filled in by periodic updates and the
// exit beacon.
type PageView struct {
	ID        int       `json:"id"`
	VisitorID int       `json:"visitor_id"`
	CreatedAt time.Time `json:"created_at"`

	// Per-visit acquisition context, as opposed to the visitor's first-touch one.
	Referrer    *string `json:"referrer,omitempty"`
	UTMSource   *string `json:"utm_source,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	UTMContent  *string `json:"utm_content,omitempty"`

	ScreenWidth    *int `json:"screen_width,omitempty"`
	ScreenHeight   *int `json:"screen_height,omitempty"`
	ViewportWidth  *int `json:"viewport_width,omitempty"`
	ViewportHeight *int `json:"viewport_height,omitempty"`

	TimeOnPageSeconds *int `json:"time_on_page_seconds,omitempty"`

	// 0-100. Partial updates only ever raise it; the beacon overwrites it.
	MaxScrollDepth *int `json:"max_scroll_depth,omitempty"`

	ReachedForm bool `json:"reached_form"`

	SessionID *string `json:"session_id,omitempty"`
}
