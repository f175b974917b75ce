package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"validateiq/api/models"
)

// PageViewStore owns the page_views table and the per-view engagement
// metrics accumulated on it.
type PageViewStore struct {
	db *sql.DB
}

func NewPageViewStore(db *sql.DB) *PageViewStore {
	return &PageViewStore{db: db}
}

// Create inserts a page view with the per-visit context supplied by the
// client. Engagement metrics start unset; ID and CreatedAt are filled in
// from the insert.
func (s *PageViewStore) Create(ctx context.Context, pageView *models.PageView) error {
	query := `
		INSERT INTO page_views (
			visitor_id, referrer, utm_source, utm_medium, utm_campaign, utm_content,
			screen_width, screen_height, viewport_width, viewport_height, session_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at;
	`

	err := s.db.QueryRowContext(ctx, query,
		pageView.VisitorID,
		pageView.Referrer,
		pageView.UTMSource,
		pageView.UTMMedium,
		pageView.UTMCampaign,
		pageView.UTMContent,
		pageView.ScreenWidth,
		pageView.ScreenHeight,
		pageView.ViewportWidth,
		pageView.ViewportHeight,
		pageView.SessionID,
	).Scan(&pageView.ID, &pageView.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create page view: %w", err)
	}

	return nil
}

// PartialMetrics carries the optional fields of a periodic engagement
// update. A nil field leaves the stored value alone.
type PartialMetrics struct {
	TimeOnPageSeconds *int
	MaxScrollDepth    *int
	ReachedForm       *bool
}

// ApplyPartialUpdate overwrites the supplied metrics, except scroll depth,
// which only ratchets upward: a smaller reported depth never replaces a
// larger stored one. The comparison and the write are one statement, so
// interleaved updates cannot bury the maximum.
func (s *PageViewStore) ApplyPartialUpdate(ctx context.Context, pageViewID int, metrics PartialMetrics) (*models.PageView, error) {
	query := `
		UPDATE page_views
		SET time_on_page_seconds = COALESCE($2::int, time_on_page_seconds),
		    max_scroll_depth = CASE
		        WHEN $3::int IS NULL THEN max_scroll_depth
		        ELSE GREATEST(COALESCE(max_scroll_depth, 0), $3::int)
		    END,
		    reached_form = COALESCE($4::boolean, reached_form)
		WHERE id = $1
		RETURNING id, visitor_id, created_at, time_on_page_seconds, max_scroll_depth, reached_form;
	`

	pageView := &models.PageView{}
	err := s.db.QueryRowContext(ctx, query,
		pageViewID,
		metrics.TimeOnPageSeconds,
		metrics.MaxScrollDepth,
		metrics.ReachedForm,
	).Scan(
		&pageView.ID,
		&pageView.VisitorID,
		&pageView.CreatedAt,
		&pageView.TimeOnPageSeconds,
		&pageView.MaxScrollDepth,
		&pageView.ReachedForm,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageViewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update page view %d: %w", pageViewID, err)
	}

	return pageView, nil
}

// Finalize applies the exit beacon's metrics. Unlike partial updates the
// scroll depth is overwritten, not ratcheted: the final beacon value is
// trusted as authoritative. The reported time is also added to the owning
// visitor's lifetime total, in the same transaction. A duplicate beacon adds
// its time again; that accounting is observable, so there is no guard here.
func (s *PageViewStore) Finalize(ctx context.Context, pageViewID, timeOnPageSeconds, maxScrollDepth int) (*models.PageView, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin finalize transaction: %w", err)
	}
	defer tx.Rollback()

	pageView := &models.PageView{}
	err = tx.QueryRowContext(ctx, `
		UPDATE page_views
		SET time_on_page_seconds = $2, max_scroll_depth = $3
		WHERE id = $1
		RETURNING id, visitor_id, created_at, time_on_page_seconds, max_scroll_depth, reached_form;
	`, pageViewID, timeOnPageSeconds, maxScrollDepth).Scan(
		&pageView.ID,
		&pageView.VisitorID,
		&pageView.CreatedAt,
		&pageView.TimeOnPageSeconds,
		&pageView.MaxScrollDepth,
		&pageView.ReachedForm,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPageViewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize page view %d: %w", pageViewID, err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE visitors
		SET total_time_seconds = total_time_seconds + $2, last_seen = now()
		WHERE id = $1;
	`, pageView.VisitorID, timeOnPageSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to add time to visitor %d: %w", pageView.VisitorID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit finalize transaction: %w", err)
	}

	return pageView, nil
}

func (s *PageViewStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM page_views;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count page views: %w", err)
	}
	return count, nil
}

// AvgTimeOnPage averages over page views that reported a time; 0 when none
// have.
func (s *PageViewStore) AvgTimeOnPage(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(time_on_page_seconds), 0) FROM page_views;
	`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average time on page: %w", err)
	}
	return avg, nil
}

// AvgScrollDepth averages over page views that reported a depth; 0 when none
// have.
func (s *PageViewStore) AvgScrollDepth(ctx context.Context) (float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(max_scroll_depth), 0) FROM page_views;
	`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to average scroll depth: %w", err)
	}
	return avg, nil
}
