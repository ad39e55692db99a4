package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/learner-ns/lns/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mocks "github.com/learner-ns/lns/mocks/registry"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000B0")
)

func TestCache_Refresh(t *testing.T) {
	ctx := context.Background()
	reader := mocks.NewMockReader(t)
	reader.On("GetAllNames", mock.Anything).Return([]string{"alice", "bob"}, nil).Once()
	reader.On("GetRecord", mock.Anything, "alice").Return("gm", nil).Once()
	reader.On("GetOwner", mock.Anything, "alice").Return(alice, nil).Once()
	reader.On("GetRecord", mock.Anything, "bob").Return("", nil).Once()
	reader.On("GetOwner", mock.Anything, "bob").Return(bob, nil).Once()

	cache := NewCache(reader, 4, 0, zap.NewNop())
	assert.Empty(t, cache.Snapshot())
	assert.True(t, cache.FetchedAt().IsZero())

	entries, err := cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{ID: 0, Name: "alice", Record: "gm", Owner: alice},
		{ID: 1, Name: "bob", Record: "", Owner: bob},
	}, entries)
	assert.Equal(t, entries, cache.Snapshot())
	assert.False(t, cache.FetchedAt().IsZero())
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RegistryNames))

	e, ok := cache.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, 1, e.ID)
	_, ok = cache.Lookup("carol")
	assert.False(t, ok)
}

func TestCache_Duplicates(t *testing.T) {
	reader := mocks.NewMockReader(t)
	reader.On("GetAllNames", mock.Anything).Return([]string{"alice", "bob", "alice"}, nil).Once()
	reader.On("GetRecord", mock.Anything, "alice").Return("first", nil).Once()
	reader.On("GetOwner", mock.Anything, "alice").Return(alice, nil).Once()
	reader.On("GetRecord", mock.Anything, "bob").Return("", nil).Once()
	reader.On("GetOwner", mock.Anything, "bob").Return(bob, nil).Once()

	cache := NewCache(reader, 2, 0, zap.NewNop())
	entries, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	e, ok := cache.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, 0, e.ID)
	assert.Equal(t, 1, entries[1].ID)
}

func TestCache_ReadFailureKeepsSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("names", func(t *testing.T) {
		reader := mocks.NewMockReader(t)
		reader.On("GetAllNames", mock.Anything).Return([]string{"alice"}, nil).Once()
		reader.On("GetRecord", mock.Anything, "alice").Return("gm", nil).Once()
		reader.On("GetOwner", mock.Anything, "alice").Return(alice, nil).Once()
		reader.On("GetAllNames", mock.Anything).Return(nil, errors.New("rpc down")).Once()

		cache := NewCache(reader, 1, 0, zap.NewNop())
		before, err := cache.Refresh(ctx)
		require.NoError(t, err)
		fetchedAt := cache.FetchedAt()

		failuresBefore := testutil.ToFloat64(metrics.RegistryRefreshFailures)
		stale, err := cache.Refresh(ctx)
		assert.ErrorIs(t, err, ErrReadFailure)
		assert.ErrorContains(t, err, "rpc down")
		assert.Equal(t, before, stale)
		assert.Equal(t, before, cache.Snapshot())
		assert.Equal(t, fetchedAt, cache.FetchedAt())
		assert.Equal(t, failuresBefore+1, testutil.ToFloat64(metrics.RegistryRefreshFailures))
	})

	t.Run("one record", func(t *testing.T) {
		reader := mocks.NewMockReader(t)
		reader.On("GetAllNames", mock.Anything).Return([]string{"alice", "bob"}, nil).Once()
		reader.On("GetRecord", mock.Anything, "alice").Return("gm", nil).Maybe()
		reader.On("GetOwner", mock.Anything, "alice").Return(alice, nil).Maybe()
		reader.On("GetRecord", mock.Anything, "bob").Return("", errors.New("timeout")).Once()

		cache := NewCache(reader, 2, 0, zap.NewNop())
		_, err := cache.Refresh(ctx)
		assert.ErrorIs(t, err, ErrReadFailure)
		assert.Empty(t, cache.Snapshot())
	})
}

func TestCache_SnapshotIsCopy(t *testing.T) {
	reader := mocks.NewMockReader(t)
	reader.On("GetAllNames", mock.Anything).Return([]string{"alice"}, nil).Once()
	reader.On("GetRecord", mock.Anything, "alice").Return("gm", nil).Once()
	reader.On("GetOwner", mock.Anything, "alice").Return(alice, nil).Once()

	cache := NewCache(reader, 1, 0, zap.NewNop())
	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	snap := cache.Snapshot()
	snap[0].Record = "changed"
	assert.Equal(t, "gm", cache.Snapshot()[0].Record)
}

// limitReader records the peak number of concurrent record reads.
type limitReader struct {
	names    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (r *limitReader) GetAllNames(context.Context) ([]string, error) {
	r.calls.Add(1)
	return r.names, nil
}

func (r *limitReader) GetRecord(context.Context, string) (string, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return "", nil
}

func (r *limitReader) GetOwner(context.Context, string) (common.Address, error) {
	return common.Address{}, nil
}

func TestCache_ConcurrencyLimit(t *testing.T) {
	reader := &limitReader{names: []string{"a", "b", "c", "d", "e", "f", "g", "h"}}
	cache := NewCache(reader, 3, 0, zap.NewNop())

	entries, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 8)
	assert.LessOrEqual(t, reader.peak.Load(), int32(3))
	for i, e := range entries {
		assert.Equal(t, i, e.ID)
	}
}

func TestCache_Run(t *testing.T) {
	t.Run("zero interval returns", func(t *testing.T) {
		reader := &limitReader{}
		cache := NewCache(reader, 1, 0, zap.NewNop())
		cache.Run(context.Background())
		assert.Zero(t, reader.calls.Load())
	})

	t.Run("polls until cancelled", func(t *testing.T) {
		reader := &limitReader{names: []string{"a"}}
		cache := NewCache(reader, 1, 10*time.Millisecond, zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Run(ctx)
		}()

		assert.Eventually(t, func() bool { return reader.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()
		wg.Wait()
		assert.Len(t, cache.Snapshot(), 1)
	})
}

func TestEntry_OwnedBy(t *testing.T) {
	e := Entry{Name: "alice", Owner: alice}
	assert.True(t, e.OwnedBy(alice.Hex()))
	assert.True(t, e.OwnedBy(strings.ToLower(alice.Hex())))
	assert.True(t, e.OwnedBy("0x00000000000000000000000000000000000000a1"))
	assert.False(t, e.OwnedBy(bob.Hex()))
	assert.False(t, e.OwnedBy(""))
}
