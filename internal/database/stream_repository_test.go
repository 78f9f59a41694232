package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &DB{DB: mockDB}, mock
}

func streamRows(streams ...domain.EventStream) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "event_id", "platform", "internal_id", "channel", "title", "url", "created_at", "updated_at"})
	for _, s := range streams {
		rows.AddRow(s.ID, s.EventID, s.Platform, s.InternalID, s.Channel, s.Title, s.URL, s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func TestStreamRepo_Upsert_ReturnsStoredRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	eventID := uuid.New()
	now := time.Now().UTC()
	stored := domain.EventStream{
		ID:         uuid.New(),
		EventID:    eventID,
		Platform:   domain.PlatformYoutube,
		InternalID: "yt-broadcast-1",
		Channel:    "UCchannel",
		Title:      "Kettering District #1",
		URL:        "https://youtube.com/watch?v=yt-broadcast-1",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectQuery(`INSERT INTO event_streams .* ON CONFLICT \(event_id, platform, channel\) DO UPDATE`).
		WithArgs(eventID, domain.PlatformYoutube, "yt-broadcast-1", "UCchannel", "Kettering District #1", stored.URL).
		WillReturnRows(streamRows(stored))

	got, err := repo.Upsert(context.Background(), domain.StreamUpsert{
		EventID:    eventID,
		Platform:   domain.PlatformYoutube,
		InternalID: "yt-broadcast-1",
		Channel:    "UCchannel",
		Title:      "Kettering District #1",
		URL:        stored.URL,
	})

	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "yt-broadcast-1", got.InternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamRepo_ListByEventIDs_FiltersByEvents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	eventID := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM event_streams WHERE event_id = ANY`).
		WillReturnRows(streamRows(domain.EventStream{
			ID: uuid.New(), EventID: eventID, Platform: domain.PlatformTwitch,
			InternalID: "12345", Channel: "firstinmichigan", CreatedAt: now, UpdatedAt: now,
		}))

	streams, err := repo.ListByEventIDs(context.Background(), []uuid.UUID{eventID})

	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, eventID, streams[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamRepo_ListByEventIDs_EmptySetYieldsEmptyList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	// No query may reach the database for an empty id set.
	streams, err := repo.ListByEventIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, streams)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamRepo_GetByKey_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	mock.ExpectQuery(`SELECT .* FROM event_streams`).
		WillReturnRows(streamRows())

	stream, err := repo.GetByKey(context.Background(), uuid.New(), domain.PlatformYoutube, "UCchannel")

	assert.ErrorIs(t, err, domain.ErrStreamNotFound)
	assert.Nil(t, stream)
}

func TestStreamRepo_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	mock.ExpectExec(`DELETE FROM event_streams WHERE id`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrStreamNotFound)
}

func TestStreamRepo_Delete_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStreamRepo(db)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM event_streams WHERE id`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), id)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
