package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"validateiq/api/utils"
)

func visitorRows(id int, totalVisits int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "ip_address", "first_seen", "last_seen",
		"browser", "os", "device_type", "original_referrer",
		"total_visits", "total_events", "total_time_seconds",
		"converted", "converted_at",
	}).AddRow(id, "203.0.113.7", now, now, "Chrome", "Windows", "desktop", nil, totalVisits, 0, 0, false, nil)
}

func TestResolveFirstContact(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO visitors").
		WillReturnRows(visitorRows(1, 1))

	store := NewVisitorStore(db)
	visitor, err := store.Resolve(context.Background(), "203.0.113.7", FirstTouch{
		UserAgent: "Mozilla/5.0",
		Profile:   utils.DeviceProfile{Known: true, Browser: "Chrome", OS: "Windows", DeviceType: "desktop"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, visitor.ID)
	assert.Equal(t, "203.0.113.7", visitor.IPAddress)
	assert.Equal(t, 1, visitor.TotalVisits)
	require.NotNil(t, visitor.Browser)
	assert.Equal(t, "Chrome", *visitor.Browser)
	assert.Nil(t, visitor.OriginalReferrer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRepeatContact(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// On conflict the upsert bumps total_visits and returns the stored
	// first-touch row; the fresh profile in the request is discarded.
	mock.ExpectQuery("INSERT INTO visitors").
		WillReturnRows(visitorRows(1, 3))

	store := NewVisitorStore(db)
	visitor, err := store.Resolve(context.Background(), "203.0.113.7", FirstTouch{
		UserAgent: "curl/8.0",
		Profile:   utils.DeviceProfile{},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, visitor.TotalVisits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE visitors").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewVisitorStore(db)
	require.NoError(t, store.IncrementEvents(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementEventsUnknownVisitor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE visitors").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewVisitorStore(db)
	err = store.IncrementEvents(context.Background(), 42)
	assert.ErrorIs(t, err, ErrVisitorNotFound)
}

func TestDeviceBreakdownLabelsNullAsUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT device_type, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"device_type", "count"}).
			AddRow("desktop", 10).
			AddRow("mobile", 7).
			AddRow(nil, 3))

	store := NewVisitorStore(db)
	breakdown, err := store.DeviceBreakdown(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"desktop": 10, "mobile": 7, "unknown": 3}, breakdown)
}

func TestReferrerBreakdownLabelsNullAsDirect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT original_referrer, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"original_referrer", "count"}).
			AddRow("https://twitter.com/", 5).
			AddRow(nil, 12))

	store := NewVisitorStore(db)
	breakdown, err := store.ReferrerBreakdown(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"https://twitter.com/": 5, "direct": 12}, breakdown)
}
