// api/models/stats.go
package models

// DashboardStats is the full point-in-time snapshot served to the internal
// dashboard. The sub-queries behind it are independent reads, so individual
// fields may reflect slightly different moments.
type DashboardStats struct {
	Overview          Overview          `json:"overview"`
	FeatureVotes      map[string]int    `json:"feature_votes"`
	DeviceBreakdown   map[string]int    `json:"device_breakdown"`
	ReferrerBreakdown map[string]int    `json:"referrer_breakdown"`
	EventsBreakdown   map[string]uint64 `json:"events_breakdown"`
	SectionEngagement map[string]uint64 `json:"section_engagement"`
	FormFunnel        FormFunnel        `json:"form_funnel"`
}

type Overview struct {
	TotalVisitors  int `json:"total_visitors"`
	TotalPageViews int `json:"total_page_views"`
	TotalSignups   int `json:"total_signups"`

	// total_signups / total_visitors * 100, rounded to 2 decimals. 0 when
	// there are no visitors.
	ConversionRate float64 `json:"conversion_rate"`

	AvgTimeOnPageSeconds float64 `json:"avg_time_on_page_seconds"`
	AvgScrollDepth       float64 `json:"avg_scroll_depth"`
}

// FormFunnel holds four independent distinct-visitor counts, not a verified
// sequential funnel: each stage filters on its own event type.
type FormFunnel struct {
	Visitors        int    `json:"visitors"`
	ReachedForm     uint64 `json:"reached_form"`
	FilledEmail     uint64 `json:"filled_email"`
	CompletedSignup int    `json:"completed_signup"`
}
