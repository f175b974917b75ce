// api/store/event_store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"validateiq/api/database"
	"validateiq/api/models"
)

// EventStore writes interaction events to ClickHouse and answers the
// aggregate queries the dashboard needs. Events are immutable once created.
type EventStore struct {
	DB *database.ClickHouseClient
}

func NewEventStore(chClient *database.ClickHouseClient) *EventStore {
	return &EventStore{
		DB: chClient,
	}
}

// Insert appends one event. Column names and order must exactly match the
// events table schema.
func (s *EventStore) Insert(ctx context.Context, event *models.Event) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, visitor_id, page_view_id, created_at, event_type,
			event_category, element_id, element_class, element_text, section,
			properties, scroll_position, time_since_page_load
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	properties := ""
	if event.Properties != nil {
		encoded, err := json.Marshal(event.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode event properties: %w", err)
		}
		properties = string(encoded)
	}

	var pageViewID *int64
	if event.PageViewID != nil {
		v := int64(*event.PageViewID)
		pageViewID = &v
	}
	var scrollPosition *int32
	if event.ScrollPosition != nil {
		v := int32(*event.ScrollPosition)
		scrollPosition = &v
	}
	var timeSincePageLoad *int64
	if event.TimeSincePageLoad != nil {
		v := int64(*event.TimeSincePageLoad)
		timeSincePageLoad = &v
	}

	err = batch.Append(
		event.EventID,
		int64(event.VisitorID),
		pageViewID,
		event.CreatedAt,
		event.EventType,
		event.EventCategory,
		event.ElementID,
		event.ElementClass,
		event.ElementText,
		event.Section,
		properties,
		scrollPosition,
		timeSincePageLoad,
	)
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.EventID, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}

	return nil
}

// CountByVisitor returns how many events a visitor has produced so far.
func (s *EventStore) CountByVisitor(ctx context.Context, visitorID int) (uint64, error) {
	var count uint64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT count() FROM events WHERE visitor_id = ?
	`, int64(visitorID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events for visitor %d: %w", visitorID, err)
	}
	return count, nil
}

// TypeBreakdown groups events by type. Empty types are dropped.
func (s *EventStore) TypeBreakdown(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT event_type, count() FROM events GROUP BY event_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]uint64)
	for rows.Next() {
		var eventType string
		var count uint64
		if err := rows.Scan(&eventType, &count); err != nil {
			log.Printf("Error scanning events breakdown row: %v", err)
			continue
		}
		if eventType == "" {
			continue
		}
		breakdown[eventType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during events breakdown query: %w", err)
	}

	return breakdown, nil
}

// SectionEngagement counts distinct visitors per page section, over
// section_view events only. Events without a section land under "unknown".
func (s *EventStore) SectionEngagement(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT section, uniqExact(visitor_id)
		FROM events
		WHERE event_type = 'section_view'
		GROUP BY section
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query section engagement: %w", err)
	}
	defer rows.Close()

	engagement := make(map[string]uint64)
	for rows.Next() {
		var section *string
		var visitors uint64
		if err := rows.Scan(&section, &visitors); err != nil {
			log.Printf("Error scanning section engagement row: %v", err)
			continue
		}

		label := "unknown"
		if section != nil && *section != "" {
			label = *section
		}
		engagement[label] = visitors
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during section engagement query: %w", err)
	}

	return engagement, nil
}

// DistinctVisitors counts how many different visitors produced at least one
// event of the given type. The funnel stages are built from these counts.
func (s *EventStore) DistinctVisitors(ctx context.Context, eventType string) (uint64, error) {
	var visitors uint64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT uniqExact(visitor_id) FROM events WHERE event_type = ?
	`, eventType).Scan(&visitors)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct visitors for %q: %w", eventType, err)
	}
	return visitors, nil
}
