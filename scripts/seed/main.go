// scripts/seed/main.go
//
// Seeds the databases with plausible landing-page traffic so the dashboard
// has something to show during development. Wipes existing data first.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"validateiq/api/database"
)

var deviceTypes = []string{"desktop", "desktop", "mobile", "mobile", "mobile", "tablet"}

var referrers = []struct {
	url    string
	source string
}{
	{"https://twitter.com/", "twitter"},
	{"https://www.google.com/", "google"},
	{"https://news.ycombinator.com/", "hackernews"},
	{"https://www.linkedin.com/", "linkedin"},
	{"", ""},
	{"", ""},
}

var features = []string{
	"ai_validation", "competitor_analysis", "market_sizing",
	"landing_page_builder", "survey_tools",
}

var eventTypes = []string{
	"click", "scroll_depth", "section_view", "cta_click", "form_focus", "form_field_blur",
}

var sections = []string{"hero", "features", "pricing", "testimonials", "faq", "signup_form"}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbClient.Close()

	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	if err := dbClient.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure PostgreSQL schema: %v", err)
	}
	if err := chClient.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure ClickHouse schema: %v", err)
	}

	if _, err := dbClient.DB.ExecContext(ctx, `TRUNCATE visitors, page_views, signups RESTART IDENTITY CASCADE`); err != nil {
		log.Fatalf("Failed to truncate PostgreSQL tables: %v", err)
	}
	if err := chClient.Conn.Exec(ctx, `TRUNCATE TABLE events`); err != nil {
		log.Fatalf("Failed to truncate events table: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	batch, err := chClient.Conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, visitor_id, page_view_id, created_at, event_type,
			event_category, element_id, element_class, element_text, section,
			properties, scroll_position, time_since_page_load
		)`)
	if err != nil {
		log.Fatalf("Failed to prepare events batch: %v", err)
	}

	totalEvents := 0
	for i := 0; i < 50; i++ {
		ip := fmt.Sprintf("192.0.2.%d", i+1)
		deviceType := deviceTypes[rng.Intn(len(deviceTypes))]
		ref := referrers[rng.Intn(len(referrers))]
		visits := 1 + rng.Intn(3)
		firstSeen := time.Now().UTC().Add(-time.Duration(rng.Intn(14*24)) * time.Hour)

		var refURL, refSource interface{}
		if ref.url != "" {
			refURL, refSource = ref.url, ref.source
		}

		var visitorID int
		err := dbClient.DB.QueryRowContext(ctx, `
			INSERT INTO visitors (
				ip_address, user_agent, device_type, is_bot, original_referrer,
				utm_source, total_visits, first_seen, last_seen
			) VALUES ($1, $2, $3, FALSE, $4, $5, $6, $7, $7)
			RETURNING id`,
			ip, "Mozilla/5.0 (seed)", deviceType, refURL, refSource, visits, firstSeen,
		).Scan(&visitorID)
		if err != nil {
			log.Fatalf("Failed to insert visitor %s: %v", ip, err)
		}

		var pageViewID int
		timeOnPage := 20 + rng.Intn(280)
		scrollDepth := 10 + rng.Intn(90)
		err = dbClient.DB.QueryRowContext(ctx, `
			INSERT INTO page_views (
				visitor_id, referrer, time_on_page_seconds, max_scroll_depth,
				reached_form, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			visitorID, refURL, timeOnPage, scrollDepth, scrollDepth > 70, firstSeen,
		).Scan(&pageViewID)
		if err != nil {
			log.Fatalf("Failed to insert page view for visitor %d: %v", visitorID, err)
		}

		eventCount := 3 + rng.Intn(12)
		for j := 0; j < eventCount; j++ {
			eventType := eventTypes[rng.Intn(len(eventTypes))]
			section := sections[rng.Intn(len(sections))]
			scrollPos := int32(rng.Intn(100))
			sincePageLoad := int64(rng.Intn(timeOnPage * 1000))
			if err := batch.Append(
				uuid.New().String(),
				int64(visitorID),
				ptrInt64(int64(pageViewID)),
				firstSeen.Add(time.Duration(sincePageLoad)*time.Millisecond),
				eventType,
				ptrString("interaction"),
				nil, nil, nil,
				ptrString(section),
				"{}",
				&scrollPos,
				&sincePageLoad,
			); err != nil {
				log.Fatalf("Failed to append event: %v", err)
			}
			totalEvents++
		}

		if _, err := dbClient.DB.ExecContext(ctx,
			`UPDATE visitors SET total_events = $2 WHERE id = $1`,
			visitorID, eventCount,
		); err != nil {
			log.Fatalf("Failed to update event count for visitor %d: %v", visitorID, err)
		}

		// Every fifth visitor converts.
		if i%5 == 0 {
			position := i/5 + 1
			email := fmt.Sprintf("founder%d@example.com", position)
			feature := features[rng.Intn(len(features))]
			if _, err := dbClient.DB.ExecContext(ctx, `
				INSERT INTO signups (
					visitor_id, email, most_wanted_feature, marketing_consent,
					waitlist_position, signup_source, time_to_signup_seconds,
					page_views_before_signup, events_before_signup
				) VALUES ($1, $2, $3, TRUE, $4, 'main_form', $5, 1, $6)`,
				visitorID, email, feature, position, timeOnPage, eventCount,
			); err != nil {
				log.Fatalf("Failed to insert signup for visitor %d: %v", visitorID, err)
			}
			if _, err := dbClient.DB.ExecContext(ctx,
				`UPDATE visitors SET converted = TRUE, converted_at = now() WHERE id = $1`,
				visitorID,
			); err != nil {
				log.Fatalf("Failed to mark visitor %d converted: %v", visitorID, err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		log.Fatalf("Failed to send events batch: %v", err)
	}

	log.Printf("Seeded 50 visitors, 50 page views, %d events, 10 signups", totalEvents)
}

func ptrInt64(v int64) *int64 { return &v }

func ptrString(s string) *string { return &s }
