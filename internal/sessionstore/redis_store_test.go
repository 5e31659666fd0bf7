package sessionstore_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/chrisdamba/excursiondesk/internal/sessionstore"
	"github.com/chrisdamba/excursiondesk/pkg/session"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = sessionstore.DefaultKeyPrefix + "desk1"

func TestRedisStore_Save(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	store := sessionstore.NewRedisStore(db, "desk1", time.Hour)

	mockRedis.ExpectSet(key, `[{"name":"sessionid","value":"abc","path":"/","http_only":true},{"name":"csrftoken","value":"tok"}]`, time.Hour).SetVal("OK")

	err := store.Save(context.Background(), []*http.Cookie{
		{Name: "sessionid", Value: "abc", Path: "/", HttpOnly: true},
		{Name: "csrftoken", Value: "tok"},
	})

	require.NoError(t, err)
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestRedisStore_Load(t *testing.T) {
	t.Run("decodes cookies", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		store := sessionstore.NewRedisStore(db, "desk1", time.Hour)

		mockRedis.ExpectGet(key).SetVal(`[{"name":"sessionid","value":"abc","path":"/","expires":1767225600}]`)

		cookies, err := store.Load(context.Background())

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, "abc", cookies[0].Value)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), cookies[0].Expires)
	})

	t.Run("nothing saved", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		store := sessionstore.NewRedisStore(db, "desk1", time.Hour)

		mockRedis.ExpectGet(key).RedisNil()

		cookies, err := store.Load(context.Background())

		assert.NoError(t, err)
		assert.Nil(t, cookies)
	})

	t.Run("redis failure", func(t *testing.T) {
		db, mockRedis := redismock.NewClientMock()
		store := sessionstore.NewRedisStore(db, "desk1", time.Hour)

		mockRedis.ExpectGet(key).SetErr(errors.New("connection reset"))

		_, err := store.Load(context.Background())

		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestRedisStore_Clear(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	store := sessionstore.NewRedisStore(db, "desk1", time.Hour)

	mockRedis.ExpectDel(key).SetVal(1)

	assert.NoError(t, store.Clear(context.Background()))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestRedisStore_RestoresSession(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	store := sessionstore.NewRedisStore(db, "desk1", time.Hour)
	mockRedis.ExpectGet(key).SetVal(`[{"name":"csrftoken","value":"tok","path":"/"}]`)

	sess, err := session.New("https://desk.example.com")
	require.NoError(t, err)

	require.NoError(t, sess.Restore(context.Background(), store))
	assert.Equal(t, "tok", sess.CSRFToken())
}
