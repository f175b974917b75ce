// api/models/signup.go
package models

import "time"

// Signup is a completed waitlist conversion. A visitor has at most one, and
// emails are unique across the whole waitlist.
type Signup struct {
	ID        int    `json:"id"`
	VisitorID int    `json:"visitor_id"`
	Email     string `json:"email"`

	MostWantedFeature string `json:"most_wanted_feature"`
	MarketingConsent  bool   `json:"marketing_consent"`

	CreatedAt time.Time `json:"created_at"`

	// 1-based, assigned sequentially at signup time.
	WaitlistPosition int `json:"waitlist_position"`

	SignupSource        *string `json:"signup_source,omitempty"` // "main_form", "hero_cta", ...
	TimeToSignupSeconds *int    `json:"time_to_signup_seconds,omitempty"`

	// Engagement accumulated by the visitor before converting.
	PageViewsBeforeSignup int `json:"page_views_before_signup"`
	EventsBeforeSignup    int `json:"events_before_signup"`
}
