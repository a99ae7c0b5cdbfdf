package filter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) FilterOptions(context.Context) (Options, error) {
	return Options{}, errors.New("unavailable")
}

func newTestStore() *Store {
	return NewStore(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), nil)
}

func TestNewStore_Defaults(t *testing.T) {
	st := newTestStore().State()

	assert.Equal(t, 2026, st.Year)
	assert.Equal(t, []int{2026, 2025, 2024}, st.AvailableYears)
	assert.Equal(t, All, st.Environment)
	assert.Equal(t, All, st.NarrowEnvironment)
	assert.Equal(t, []string{All}, st.AvailableEnvironments)
	assert.Equal(t, []string{All}, st.AvailableNarrowEnvironments)
	assert.False(t, st.Loading)
}

func TestRefresh(t *testing.T) {
	s := newTestStore()
	src := StaticSource{Environment: []string{"prod", "dev", "prod"}, NarrowEnvironment: []string{"eu-prod"}}

	require.NoError(t, s.Refresh(context.Background(), src))
	st := s.State()
	assert.Equal(t, []string{All, "prod", "dev"}, st.AvailableEnvironments)
	assert.Equal(t, []string{All, "eu-prod"}, st.AvailableNarrowEnvironments)

	require.NoError(t, s.SetEnvironment("dev"))
	require.NoError(t, s.SetNarrowEnvironment("eu-prod"))

	require.NoError(t, s.Refresh(context.Background(), StaticSource{Environment: []string{"prod"}}))
	sel := s.Selected()
	assert.Equal(t, All, sel.Environment, "dropped option falls back to All")
	assert.Equal(t, All, sel.NarrowEnvironment)
}

func TestRefresh_FailureKeepsAll(t *testing.T) {
	s := newTestStore()
	require.Error(t, s.Refresh(context.Background(), failingSource{}))

	st := s.State()
	assert.Equal(t, []string{All}, st.AvailableEnvironments)
	assert.False(t, st.Loading)
}

func TestSetters_RejectValuesNotOffered(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SetYear(2024))
	assert.ErrorIs(t, s.SetYear(2023), ErrNotOffered)
	assert.ErrorIs(t, s.SetEnvironment("prod"), ErrNotOffered)
	assert.ErrorIs(t, s.SetNarrowEnvironment(""), ErrNotOffered)

	err := s.Update(func(sel *Selection) {
		sel.Year = 2025
		sel.Environment = "nope"
	})
	assert.ErrorIs(t, err, ErrNotOffered)
	assert.Equal(t, 2024, s.Selected().Year, "rejected update is not partially applied")
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets-filter-options", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Environment":["prod","staging"],"NarrowEnvironment":["prod-eu"]}`))
	}))
	defer srv.Close()

	s := newTestStore()
	require.NoError(t, s.Refresh(context.Background(), NewHTTPSource(srv.URL+"/api/tickets-filter-options")))
	assert.Equal(t, []string{All, "prod", "staging"}, s.State().AvailableEnvironments)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	assert.Error(t, s.Refresh(context.Background(), NewHTTPSource(bad.URL)))
	assert.Equal(t, []string{All, "prod", "staging"}, s.State().AvailableEnvironments)
}
