package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/chrisdamba/excursiondesk/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCookie(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "single cookie", header: "csrftoken=abc", cookie: "csrftoken", want: "abc"},
		{name: "among others", header: "sessionid=s1; csrftoken=abc; lang=ru", cookie: "csrftoken", want: "abc"},
		{name: "spaces around separator", header: "a=1;  csrftoken = abc", cookie: "csrftoken", want: "abc"},
		{name: "url encoded", header: "next=%2Fbookings%2F5%2F", cookie: "next", want: "/bookings/5/"},
		{name: "absent", header: "sessionid=s1", cookie: "csrftoken", want: ""},
		{name: "prefix is not a match", header: "xcsrftoken=nope", cookie: "csrftoken", want: ""},
		{name: "empty value skipped", header: "csrftoken=; csrftoken=second", cookie: "csrftoken", want: "second"},
		{name: "empty header", header: "", cookie: "csrftoken", want: ""},
		{name: "bad escape returned raw", header: "v=%zz", cookie: "v", want: "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, session.ReadCookie(tt.header, tt.cookie))
		})
	}
}

func TestTokenCache(t *testing.T) {
	cookie := "from-cookie"
	cache := session.NewTokenCache(func() string { return cookie })

	assert.Equal(t, "from-cookie", cache.Get())
	assert.Equal(t, "", cache.Cached())

	cache.Set("cached")
	assert.Equal(t, "cached", cache.Get())

	cache.Clear()
	cookie = ""
	assert.Equal(t, "", cache.Get())
}

func TestNew_RejectsRelativeOrigin(t *testing.T) {
	_, err := session.New("/api/sales")
	assert.ErrorIs(t, err, session.ErrInvalidOrigin)
}

func TestSession_CookieAndToken(t *testing.T) {
	sess, err := session.New("http://127.0.0.1:8000/api/sales")
	require.NoError(t, err)

	assert.Equal(t, "", sess.CSRFToken())

	sess.SetCookies([]*http.Cookie{
		{Name: "sessionid", Value: "s1"},
		{Name: session.CSRFCookieName, Value: "tok"},
	})
	assert.Equal(t, "tok", sess.Cookie(session.CSRFCookieName))
	assert.Equal(t, "tok", sess.CSRFToken())
	assert.Contains(t, sess.CookieHeader(), "sessionid=s1")

	sess.Tokens().Set("body-token")
	assert.Equal(t, "body-token", sess.CSRFToken())
}

type memoryStore struct {
	cookies []*http.Cookie
	err     error
}

func (m *memoryStore) Load(ctx context.Context) ([]*http.Cookie, error) {
	return m.cookies, m.err
}

func (m *memoryStore) Save(ctx context.Context, cookies []*http.Cookie) error {
	if m.err != nil {
		return m.err
	}
	m.cookies = cookies
	return nil
}

func TestSession_PersistAndRestore(t *testing.T) {
	store := &memoryStore{}

	first, err := session.New("http://127.0.0.1:8000/api/sales")
	require.NoError(t, err)
	first.SetCookies([]*http.Cookie{{Name: "sessionid", Value: "s1"}})
	require.NoError(t, first.Persist(context.Background(), store))

	second, err := session.New("http://127.0.0.1:8000/api/sales")
	require.NoError(t, err)
	require.NoError(t, second.Restore(context.Background(), store))
	assert.Equal(t, "s1", second.Cookie("sessionid"))
}

func TestSession_RestoreError(t *testing.T) {
	sess, err := session.New("http://127.0.0.1:8000/api/sales")
	require.NoError(t, err)

	err = sess.Restore(context.Background(), &memoryStore{err: errors.New("redis down")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restoring session: redis down")
}
