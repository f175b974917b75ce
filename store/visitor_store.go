package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"validateiq/api/models"
	"validateiq/api/utils"
)

// VisitorStore owns the visitors table. Other stores read visitor rows, but
// only this store (and the page-view finalizer) mutate the counters.
type VisitorStore struct {
	db *sql.DB
}

func NewVisitorStore(db *sql.DB) *VisitorStore {
	return &VisitorStore{db: db}
}

// FirstTouch carries the acquisition context captured the first time an IP
// is seen. It is persisted on creation and never refreshed: a later visit
// with a different user agent or referrer keeps the original attribution.
type FirstTouch struct {
	UserAgent   string
	Profile     utils.DeviceProfile
	Referrer    *string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
}

// Resolve maps a client IP to its visitor row, creating one on first contact
// and bumping total_visits on repeat contact. The whole lookup-or-create is
// a single upsert, so two simultaneous first contacts from one IP cannot
// produce two rows: the loser lands on the conflict path and counts as a
// repeat visit.
func (s *VisitorStore) Resolve(ctx context.Context, ipAddress string, firstTouch FirstTouch) (*models.Visitor, error) {
	query := `
		INSERT INTO visitors (
			ip_address, user_agent, browser, browser_version, os, os_version,
			device_type, device_brand, device_model, is_bot,
			original_referrer, utm_source, utm_medium, utm_campaign
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (ip_address) DO UPDATE
			SET total_visits = visitors.total_visits + 1,
			    last_seen = now()
		RETURNING id, ip_address, first_seen, last_seen,
			browser, os, device_type, original_referrer,
			total_visits, total_events, total_time_seconds,
			converted, converted_at;
	`

	profile := firstTouch.Profile
	visitor := &models.Visitor{}
	err := s.db.QueryRowContext(ctx, query,
		ipAddress,
		nullString(firstTouch.UserAgent),
		nullString(profile.Browser),
		nullString(profile.BrowserVersion),
		nullString(profile.OS),
		nullString(profile.OSVersion),
		nullString(profile.DeviceType),
		nullString(profile.DeviceBrand),
		nullString(profile.DeviceModel),
		profile.IsBot,
		firstTouch.Referrer,
		firstTouch.UTMSource,
		firstTouch.UTMMedium,
		firstTouch.UTMCampaign,
	).Scan(
		&visitor.ID,
		&visitor.IPAddress,
		&visitor.FirstSeen,
		&visitor.LastSeen,
		&visitor.Browser,
		&visitor.OS,
		&visitor.DeviceType,
		&visitor.OriginalReferrer,
		&visitor.TotalVisits,
		&visitor.TotalEvents,
		&visitor.TotalTimeSeconds,
		&visitor.Converted,
		&visitor.ConvertedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visitor for %s: %w", ipAddress, err)
	}

	return visitor, nil
}

// IncrementEvents bumps total_events by one, atomically in the database.
// A missing visitor is reported as ErrVisitorNotFound so the caller can
// treat it as a no-op.
func (s *VisitorStore) IncrementEvents(ctx context.Context, visitorID int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE visitors
		SET total_events = total_events + 1, last_seen = now()
		WHERE id = $1;
	`, visitorID)
	if err != nil {
		return fmt.Errorf("failed to increment visitor event count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrVisitorNotFound
	}

	return nil
}

func (s *VisitorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM visitors;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return count, nil
}

// DeviceBreakdown groups visitors by device type. Visitors whose user agent
// never classified are reported under "unknown".
func (s *VisitorStore) DeviceBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_type, COUNT(id)
		FROM visitors
		GROUP BY device_type;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query device breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]int)
	for rows.Next() {
		var deviceType sql.NullString
		var count int
		if err := rows.Scan(&deviceType, &count); err != nil {
			log.Printf("Error scanning device breakdown row: %v", err)
			continue
		}

		label := "unknown"
		if deviceType.Valid {
			label = deviceType.String
		}
		breakdown[label] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during device breakdown query: %w", err)
	}

	return breakdown, nil
}

// ReferrerBreakdown groups visitors by their first-touch referrer, direct
// traffic under "direct". The first ten groups in storage order are kept;
// there is deliberately no ORDER BY, matching the dashboard's behavior.
func (s *VisitorStore) ReferrerBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT original_referrer, COUNT(id)
		FROM visitors
		GROUP BY original_referrer
		LIMIT 10;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrer breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]int)
	for rows.Next() {
		var referrer sql.NullString
		var count int
		if err := rows.Scan(&referrer, &count); err != nil {
			log.Printf("Error scanning referrer breakdown row: %v", err)
			continue
		}

		label := "direct"
		if referrer.Valid {
			label = referrer.String
		}
		breakdown[label] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during referrer breakdown query: %w", err)
	}

	return breakdown, nil
}

// nullString turns the classifier's empty strings into SQL NULLs.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
