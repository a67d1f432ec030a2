package backend_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/scale-monitor-api/internal/domain"
	"github.com/jhoicas/scale-monitor-api/internal/domain/entity"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/backend"
	"github.com/jhoicas/scale-monitor-api/internal/infrastructure/memory"
)

func newTokenSource(t *testing.T, expiresIn time.Duration) (*backend.TokenSource, *fakeUpstream, *memory.SessionStore) {
	t.Helper()
	up := newFakeUpstream(t)
	store := memory.NewSessionStore()
	require.NoError(t, store.Save(context.Background(), &entity.Session{
		ID:           "sess-1",
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(expiresIn),
	}, 0))
	return backend.NewTokenSource(store, up.srv.URL+"/api", time.Hour, nil), up, store
}

func TestTokenSource_TokenVigenteNoRefresca(t *testing.T) {
	ts, up, _ := newTokenSource(t, time.Hour)

	tok, err := ts.Token(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(0), up.refreshCalls.Load())
}

func TestTokenSource_RefrescaDentroDelMargen(t *testing.T) {
	ts, up, store := newTokenSource(t, 2*time.Minute)

	tok, err := ts.Token(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok, "vence en menos de 5 minutos: se refresca antes de usarlo")
	assert.Equal(t, int32(1), up.refreshCalls.Load())

	sess, _ := store.Get(context.Background(), "sess-1")
	require.NotNil(t, sess)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestTokenSource_RefrescosConcurrentesSeAgrupan(t *testing.T) {
	ts, up, _ := newTokenSource(t, -time.Minute)
	up.set(func(f *fakeUpstream) { f.refreshDelay = 100 * time.Millisecond })

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = ts.Token(context.Background(), "sess-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-2", tokens[i])
	}
	assert.Equal(t, int32(1), up.refreshCalls.Load(), "un solo refresh en vuelo")
}

func TestTokenSource_FalloAnticipadoUsaTokenActual(t *testing.T) {
	ts, up, _ := newTokenSource(t, 2*time.Minute)
	up.set(func(f *fakeUpstream) { f.refreshOK = false })

	tok, err := ts.Token(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok, "el token aún no venció")
}

func TestTokenSource_VencidoYRefreshFallido(t *testing.T) {
	ts, up, _ := newTokenSource(t, -time.Minute)
	up.set(func(f *fakeUpstream) { f.refreshOK = false })

	_, err := ts.Token(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestTokenSource_SesionInexistente(t *testing.T) {
	ts, _, _ := newTokenSource(t, time.Hour)
	_, err := ts.Token(context.Background(), "otra")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestNewSession_PrefiereIDToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := backend.NewSession("s", entity.Identity{Subject: "u", Email: "e@x.io"}, entity.RoleVendor,
		entity.TokenSet{AccessToken: "acc", IDToken: "id", RefreshToken: "ref", ExpiresIn: 600}, now)

	assert.Equal(t, "id", s.AccessToken)
	assert.Equal(t, "ref", s.RefreshToken)
	assert.Equal(t, now.Add(10*time.Minute), s.ExpiresAt)
	assert.Equal(t, entity.RoleVendor, s.Role)
}
