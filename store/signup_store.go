package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"validateiq/api/models"
)

// waitlistLockKey is the advisory-lock key serializing waitlist position
// assignment. Every registration takes it before counting, so no two
// signups can observe the same count.
const waitlistLockKey = 420017

// SignupStore owns the signups table and the waitlist position sequence.
type SignupStore struct {
	db *sql.DB
}

func NewSignupStore(db *sql.DB) *SignupStore {
	return &SignupStore{db: db}
}

// Registration is the input to Register. EventsBeforeSignup is counted from
// the event store by the caller, since events live in ClickHouse.
type Registration struct {
	VisitorID           int
	Email               string
	MostWantedFeature   string
	MarketingConsent    bool
	SignupSource        string
	TimeToSignupSeconds *int
	EventsBeforeSignup  int
}

// Register converts a visitor into a waitlist signup. Validation (duplicate
// email, unknown visitor) happens before any mutation; the position
// assignment, the insert, and the visitor's conversion flag commit as one
// transaction under the waitlist advisory lock. Positions come out 1, 2, 3,
// ... with no gaps or repeats.
func (s *SignupStore) Register(ctx context.Context, reg Registration) (*models.Signup, error) {
	var emailTaken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM signups WHERE email = $1);
	`, reg.Email).Scan(&emailTaken)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing email: %w", err)
	}
	if emailTaken {
		return nil, ErrDuplicateEmail
	}

	var visitorID int
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM visitors WHERE id = $1;
	`, reg.VisitorID).Scan(&visitorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVisitorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up visitor %d: %w", reg.VisitorID, err)
	}

	var pageViewsBefore int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(id) FROM page_views WHERE visitor_id = $1;
	`, reg.VisitorID).Scan(&pageViewsBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to count pre-signup page views: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin signup transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1);`, waitlistLockKey); err != nil {
		return nil, fmt.Errorf("failed to take waitlist lock: %w", err)
	}

	var currentCount int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(id) FROM signups;`).Scan(&currentCount); err != nil {
		return nil, fmt.Errorf("failed to count signups: %w", err)
	}

	signup := &models.Signup{
		VisitorID:             reg.VisitorID,
		Email:                 reg.Email,
		MostWantedFeature:     reg.MostWantedFeature,
		MarketingConsent:      reg.MarketingConsent,
		WaitlistPosition:      currentCount + 1,
		TimeToSignupSeconds:   reg.TimeToSignupSeconds,
		PageViewsBeforeSignup: pageViewsBefore,
		EventsBeforeSignup:    reg.EventsBeforeSignup,
	}
	if reg.SignupSource != "" {
		signup.SignupSource = &reg.SignupSource
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO signups (
			visitor_id, email, most_wanted_feature, marketing_consent,
			waitlist_position, signup_source, time_to_signup_seconds,
			page_views_before_signup, events_before_signup
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at;
	`,
		signup.VisitorID,
		signup.Email,
		signup.MostWantedFeature,
		signup.MarketingConsent,
		signup.WaitlistPosition,
		signup.SignupSource,
		signup.TimeToSignupSeconds,
		signup.PageViewsBeforeSignup,
		signup.EventsBeforeSignup,
	).Scan(&signup.ID, &signup.CreatedAt)
	if err != nil {
		// The unique index backstops the up-front check when two
		// registrations race on the same email.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert signup: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE visitors
		SET converted = TRUE, converted_at = now(), last_seen = now()
		WHERE id = $1;
	`, reg.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark visitor %d converted: %w", reg.VisitorID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit signup transaction: %w", err)
	}

	return signup, nil
}

func (s *SignupStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM signups;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count signups: %w", err)
	}
	return count, nil
}

// FeatureVotes groups signups by their most-wanted feature. Empty keys are
// dropped.
func (s *SignupStore) FeatureVotes(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT most_wanted_feature, COUNT(id)
		FROM signups
		GROUP BY most_wanted_feature;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature votes: %w", err)
	}
	defer rows.Close()

	votes := make(map[string]int)
	for rows.Next() {
		var feature sql.NullString
		var count int
		if err := rows.Scan(&feature, &count); err != nil {
			log.Printf("Error scanning feature votes row: %v", err)
			continue
		}
		if !feature.Valid || feature.String == "" {
			continue
		}
		votes[feature.String] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during feature votes query: %w", err)
	}

	return votes, nil
}
