package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
)

func cartRow(t *testing.T, cart domain.AVCart) *sqlmock.Rows {
	t.Helper()
	encoded, err := json.Marshal(cart.Configuration)
	require.NoError(t, err)
	return sqlmock.
		NewRows([]string{"id", "name", "equipment_type", "last_seen", "online", "configuration"}).
		AddRow(cart.ID, cart.Name, cart.EquipmentType, cart.LastSeen, cart.Online, encoded)
}

func TestEquipmentRepo_GetCart_DecodesConfiguration(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEquipmentRepo(db)

	id := uuid.New()
	cart := domain.AVCart{
		ID:            id,
		Name:          "Cart 3",
		EquipmentType: "av-cart",
		Online:        true,
		Configuration: domain.CartConfiguration{
			AssistantVersion: "1.4.2",
			StreamInfo: []domain.StreamItem{
				{Index: 0, CartID: id, Enabled: true, RtmpURL: "rtmp://a.rtmp.youtube.com/live2", RtmpKey: "key-0"},
				{Index: 1, CartID: id, Enabled: false, RtmpURL: "rtmp://live.twitch.tv/app", RtmpKey: "key-1"},
			},
		},
	}

	mock.ExpectQuery(`SELECT .* FROM equipment WHERE id = \$1 AND equipment_type = 'av-cart'`).
		WithArgs(id).
		WillReturnRows(cartRow(t, cart))

	got, err := repo.GetCart(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, got.Online)
	assert.Nil(t, got.LastSeen)
	require.Len(t, got.Configuration.StreamInfo, 2)
	assert.Equal(t, "key-1", got.Configuration.StreamInfo[1].RtmpKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepo_GetCart_OfflineKeepsLastSeen(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEquipmentRepo(db)

	id := uuid.New()
	seen := time.Now().UTC().Add(-10 * time.Minute)
	mock.ExpectQuery(`SELECT .* FROM equipment`).
		WillReturnRows(cartRow(t, domain.AVCart{
			ID: id, Name: "Cart 1", EquipmentType: "av-cart", LastSeen: &seen,
		}))

	got, err := repo.GetCart(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, got.Online)
	require.NotNil(t, got.LastSeen)
	assert.WithinDuration(t, seen, *got.LastSeen, time.Second)
}

func TestEquipmentRepo_GetCart_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEquipmentRepo(db)

	mock.ExpectQuery(`SELECT .* FROM equipment`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "equipment_type", "last_seen", "online", "configuration"}))

	cart, err := repo.GetCart(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestEquipmentRepo_UpdateStreamInfo_ReturnsPreviousState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEquipmentRepo(db)

	id := uuid.New()
	previous := domain.AVCart{
		ID: id, Name: "Cart 2", EquipmentType: "av-cart",
		Configuration: domain.CartConfiguration{
			StreamInfo: []domain.StreamItem{{Index: 0, CartID: id, Enabled: true, RtmpKey: "old-key"}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM equipment .* FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(cartRow(t, previous))
	mock.ExpectExec(`UPDATE equipment\s+SET configuration = jsonb_set`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.UpdateStreamInfo(context.Background(), id, []domain.StreamItem{
		{Index: 0, CartID: id, Enabled: true, RtmpKey: "new-key"},
	})

	require.NoError(t, err)
	require.Len(t, got.Configuration.StreamInfo, 1)
	assert.Equal(t, "old-key", got.Configuration.StreamInfo[0].RtmpKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepo_RecordHeartbeat_UnknownCart(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEquipmentRepo(db)

	mock.ExpectExec(`UPDATE equipment`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordHeartbeat(context.Background(), uuid.New(), domain.CartConfiguration{}, true)

	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}
