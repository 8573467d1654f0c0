package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "backoffice_session", "secret", time.Hour, false), mr
}

func TestIssueAndLoadSession(t *testing.T) {
	ctx := context.Background()
	sm, _ := newTestManager(t)

	rr := httptest.NewRecorder()
	issued, err := sm.issue(ctx, rr, "42")
	require.NoError(t, err)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, sess.ID)
	assert.Equal(t, "42", sess.User())
}

func TestLoadRejectsForgedOrExpiredCookies(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)

	rr := httptest.NewRecorder()
	issued, err := sm.issue(ctx, rr, "7")
	require.NoError(t, err)

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: issued.ID + ".bogus"})
	sess, err := sm.Load(ctx, forged)
	require.NoError(t, err)
	assert.Empty(t, sess.User())

	mr.FastForward(2 * time.Hour)
	expired := httptest.NewRequest(http.MethodGet, "/", nil)
	expired.AddCookie(rr.Result().Cookies()[0])
	sess, err = sm.Load(ctx, expired)
	require.NoError(t, err)
	assert.Empty(t, sess.User())

	anon, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Empty(t, anon.User())
}

func TestCommitSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	sm, mr := newTestManager(t)
	issued, err := sm.issue(ctx, httptest.NewRecorder(), "3")
	require.NoError(t, err)

	mr.FastForward(50 * time.Minute)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, issued))
	assert.Equal(t, time.Hour, mr.TTL("session:"+issued.ID))
	assert.Len(t, rr.Result().Cookies(), 1)

	anon := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, anon, &Session{}))
	assert.Empty(t, anon.Result().Cookies())
}

func TestSessionContext(t *testing.T) {
	sess := &Session{}
	sess.SetUser("9")
	ctx := ContextWithSession(context.Background(), sess)
	assert.Equal(t, "9", SessionFromContext(ctx).User())
	assert.Nil(t, SessionFromContext(context.Background()))
}
