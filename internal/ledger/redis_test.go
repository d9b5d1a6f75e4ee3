package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_AbsentKeyStartsAtZero(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet(DefaultKey).RedisNil()
	mock.ExpectSet(DefaultKey, 10, 0).SetVal("OK")

	l, err := New(context.Background(), NewRedisStorage(db), DefaultKey)
	require.NoError(t, err)
	assert.Zero(t, l.Read())

	total, err := l.Add(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_LoadsStoredValue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet("score").SetVal("240")

	l, err := New(context.Background(), NewRedisStorage(db), "score")
	require.NoError(t, err)
	assert.Equal(t, 240, l.Read())
	assert.Equal(t, RankExplorer, RankFor(l.Read()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectGet(DefaultKey).SetErr(errors.New("connection refused"))
	_, err := New(context.Background(), NewRedisStorage(db), DefaultKey)
	assert.ErrorContains(t, err, "connection refused")

	mock.ExpectGet(DefaultKey).SetVal("not-a-number")
	_, _, err = NewRedisStorage(db).Load(context.Background(), DefaultKey)
	assert.Error(t, err)

	mock.ExpectSet(DefaultKey, 5, 0).SetErr(errors.New("readonly replica"))
	err = NewRedisStorage(db).Save(context.Background(), DefaultKey, 5)
	assert.ErrorContains(t, err, "readonly replica")
	assert.NoError(t, mock.ExpectationsWereMet())
}
