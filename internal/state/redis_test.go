package state

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/tradeaudit/internal/health"
)

func TestRedisStore_MissingKeyYieldsEmptyState(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("tradeaudit:state").RedisNil()

	st, err := NewRedisStore(client, "tradeaudit:state").Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, st.LastRunDate)
	assert.NotNil(t, st.FlaggedGaps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_LoadParsesStoredState(t *testing.T) {
	stored := &health.RunState{
		LastRunDate: "2026-08-29",
		FlaggedGaps: map[string]string{"vix level": "2026-08-29"},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectGet("tradeaudit:state").SetVal(string(data))

	st, err := NewRedisStore(client, "tradeaudit:state").Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "2026-08-29", st.LastRunDate)
	assert.Equal(t, map[string]string{"vix level": "2026-08-29"}, st.FlaggedGaps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_MalformedValueResets(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("tradeaudit:state").SetVal("{not json")

	st, err := NewRedisStore(client, "tradeaudit:state").Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, st.LastRunDate)
}

func TestRedisStore_SaveWritesOneKey(t *testing.T) {
	st := &health.RunState{
		LastRunDate: "2026-08-29",
		FlaggedGaps: map[string]string{"earnings date": "2026-08-29"},
	}
	data, err := json.Marshal(st)
	require.NoError(t, err)

	client, mock := redismock.NewClientMock()
	mock.ExpectSet("tradeaudit:state", data, 0).SetVal("OK")

	require.NoError(t, NewRedisStore(client, "tradeaudit:state").Save(context.Background(), st))
	assert.NoError(t, mock.ExpectationsWereMet())
}
