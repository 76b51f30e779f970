package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/civictide/civicweb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryKV is an in-process stand-in for the Redis storage.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testStore(kv KV) *Store {
	return NewStore(kv, time.Hour, zap.NewNop().Sugar())
}

func TestSetAuthThenLoad(t *testing.T) {
	ctx := context.Background()
	store := testStore(newMemoryKV())

	user := models.User{ID: 3, FullName: "Kofi Boateng", IsAdmin: true}
	require.NoError(t, store.SetAuth(ctx, "sid-1", user, "opaque-token"))

	sess := store.Load(ctx, "sid-1")
	assert.True(t, sess.Authenticated())
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, "opaque-token", sess.Token)
	require.NotNil(t, sess.User)
	assert.Equal(t, "Kofi Boateng", sess.User.FullName)
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := testStore(kv)

	require.NoError(t, store.SetAuth(ctx, "sid-1", models.User{ID: 1}, "tok"))
	require.NoError(t, store.Logout(ctx, "sid-1"))

	sess := store.Load(ctx, "sid-1")
	assert.False(t, sess.Authenticated())
	assert.False(t, sess.IsAdmin())
	assert.Empty(t, kv.data)
}

func TestLoadWithoutRecordIsUnauthenticated(t *testing.T) {
	store := testStore(newMemoryKV())
	assert.False(t, store.Load(context.Background(), "never-seen").Authenticated())
	assert.False(t, store.Load(context.Background(), "").Authenticated())
}

func TestLoadDiscardsUnreadableRecord(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	require.NoError(t, kv.Set(ctx, "civicweb:session:sid-1", "not json", 0))

	store := testStore(kv)
	assert.False(t, store.Load(ctx, "sid-1").Authenticated())
	assert.Empty(t, kv.data, "broken record is removed")
}

// unsignedJWT builds a structurally valid token with the given exp, good
// enough for the unverified claim inspection.
func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	enc := func(v any) string {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]any{"sub": "3", "exp": exp.Unix()})
	return fmt.Sprintf("%s.%s.%s", header, claims, base64.RawURLEncoding.EncodeToString([]byte("sig")))
}

func TestLoadDiscardsVisiblyExpiredToken(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := testStore(kv)

	require.NoError(t, store.SetAuth(ctx, "sid-1", models.User{ID: 3}, unsignedJWT(t, time.Now().Add(-time.Minute))))
	assert.False(t, store.Load(ctx, "sid-1").Authenticated())
	assert.Empty(t, kv.data)
}

func TestLoadKeepsLiveAndOpaqueTokens(t *testing.T) {
	ctx := context.Background()
	store := testStore(newMemoryKV())

	require.NoError(t, store.SetAuth(ctx, "live", models.User{ID: 3}, unsignedJWT(t, time.Now().Add(time.Hour))))
	assert.True(t, store.Load(ctx, "live").Authenticated())

	// Non-JWT tokens carry no readable expiry and are kept until the
	// backend rejects them.
	require.NoError(t, store.SetAuth(ctx, "opaque", models.User{ID: 3}, "f00ba7"))
	assert.True(t, store.Load(ctx, "opaque").Authenticated())
}

func TestCookieRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	sid := Issue(rec, false)
	require.NotEmpty(t, sid)

	resp := rec.Result()
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, sid, ID(req))

	assert.Empty(t, ID(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestClearExpiresCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	Clear(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}
