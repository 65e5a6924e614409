package dedup

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

const consumer = "booking-service-go.booking.accepted.v1"

func TestGetLastSequence(t *testing.T) {
	ctx := context.Background()

	t.Run("existing checkpoint", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT last_sequence\s+FROM event_dedup_checkpoint`).
			WithArgs(consumer, "user-1").
			WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(7)))

		last, ok, err := NewRepository(mock).GetLastSequence(ctx, consumer, "user-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(7), last)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no checkpoint", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT last_sequence\s+FROM event_dedup_checkpoint`).
			WithArgs(consumer, "user-2").
			WillReturnError(pgx.ErrNoRows)

		_, ok, err := NewRepository(mock).GetLastSequence(ctx, consumer, "user-2")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestUpsertLastSequence(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO event_dedup_checkpoint`).
		WithArgs(consumer, "user-1", int64(8)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewRepository(mock).UpsertLastSequence(context.Background(), consumer, "user-1", 8))
	require.NoError(t, mock.ExpectationsWereMet())
}
