package regions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitquest/traitquest/internal/apiclient"
	"github.com/traitquest/traitquest/internal/domain"
	"github.com/traitquest/traitquest/internal/testutil"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func setup(t *testing.T) (*Store, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	backend.SetRegions([]domain.Region{
		{ID: "mbti", Name: "MBTI Sanctum", Status: domain.RegionConquered},
		{ID: "big_five", Name: "Big Five Field", Status: domain.RegionAvailable},
		{ID: "gallup", Name: "Gallup Summit", Status: domain.RegionLocked, UnlockHint: "Reach Lv.5"},
	})
	client := apiclient.New(backend.URL(), staticToken(backend.MintToken("u1", time.Hour)))
	return NewStore(client, nil), backend
}

func TestFetchRegions_MergesVisuals(t *testing.T) {
	store, _ := setup(t)

	require.NoError(t, store.FetchRegions(context.Background(), false))

	regions := store.Regions()
	require.Len(t, regions, 3)
	assert.Equal(t, "#11D452", regions[0].Color)
	assert.Equal(t, "#00F0FF", regions[1].Color, "big_five alias gets bigfive visuals")
	assert.NotEmpty(t, regions[2].Glyph)
	assert.Equal(t, "Reach Lv.5", regions[2].UnlockHint)
	assert.NoError(t, store.Err())
}

func TestFetchRegions_SkipsWhenLoaded(t *testing.T) {
	store, backend := setup(t)
	ctx := context.Background()

	require.NoError(t, store.FetchRegions(ctx, false))
	require.NoError(t, store.FetchRegions(ctx, false))
	assert.Equal(t, int32(1), backend.RegionCalls.Load())

	require.NoError(t, store.FetchRegions(ctx, true))
	assert.Equal(t, int32(2), backend.RegionCalls.Load())
}

func TestFetchRegions_ConcurrentCallsShareRequest(t *testing.T) {
	store, backend := setup(t)
	backend.SetRegionsDelay(100 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.FetchRegions(context.Background(), false))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.RegionCalls.Load())
	assert.Len(t, store.Regions(), 3)
}

func TestFetchRegions_RecordsError(t *testing.T) {
	backend := testutil.NewBackend(t)
	store := NewStore(apiclient.New(backend.URL(), staticToken("bogus")), nil)

	err := store.FetchRegions(context.Background(), false)

	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.ErrorIs(t, store.Err(), apiclient.ErrUnauthorized)
	assert.False(t, store.Loaded())
}

func TestCheckAccess(t *testing.T) {
	store, backend := setup(t)
	backend.SetAccess("mbti", domain.AccessResult{CanEnter: true, Message: "Enter", Status: domain.RegionAvailable})

	ok := store.CheckAccess(context.Background(), "mbti")
	assert.True(t, ok.CanEnter)

	missing := store.CheckAccess(context.Background(), "atlantis")
	assert.False(t, missing.CanEnter)
	assert.Equal(t, domain.RegionLocked, missing.Status)
	assert.NotEmpty(t, missing.Message)
}

func TestRegion_Lookup(t *testing.T) {
	store, _ := setup(t)
	require.NoError(t, store.FetchRegions(context.Background(), false))

	r, ok := store.Region("gallup")
	require.True(t, ok)
	assert.False(t, r.Enterable())

	_, ok = store.Region("nowhere")
	assert.False(t, ok)
}
