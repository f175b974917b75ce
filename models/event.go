// api/models/event.go
package models

import "time"

// Event is a single immutable interaction fact: a click, a scroll, a section
// coming into view. It always belongs to a visitor and usually to the page
// view it happened on.
type Event struct {
	EventID    string `json:"event_id"`
	VisitorID  int    `json:"visitor_id"`
	PageViewID *int   `json:"page_view_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Free-form tag, e.g. "scroll", "section_view", "form_focus", "cta_click".
	EventType string `json:"event_type"`

	// Coarser grouping, e.g. "scroll", "form", "navigation", "engagement".
	EventCategory *string `json:"event_category,omitempty"`

	// Which DOM element was touched. Purely descriptive.
	ElementID    *string `json:"element_id,omitempty"`
	ElementClass *string `json:"element_class,omitempty"`
	ElementText  *string `json:"element_text,omitempty"`

	// Page section, e.g. "hero", "features", "waitlist_form", "footer".
	Section *string `json:"section,omitempty"`

	// Flexible property bag, e.g. {"depth": 75, "direction": "down"}.
	Properties map[string]interface{} `json:"properties,omitempty"`

	ScrollPosition *int `json:"scroll_position,omitempty"`

	// Milliseconds since the page loaded.
	TimeSincePageLoad *int `json:"time_since_page_load,omitempty"`
}
