package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/platform"
	"github.com/tgienger/yuflow/internal/storage"
)

// mockAdapter mocks the lifecycle methods; the embedded interface is never called
type mockAdapter struct {
	storage.Adapter
	mock.Mock
}

func (m *mockAdapter) Initialize(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAdapter) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func desktop() platform.Platform { return platform.Desktop }

func TestService_MemoizesAdapter(t *testing.T) {
	a := &mockAdapter{}
	a.On("Initialize", mock.Anything).Return(nil).Once()
	a.On("Close", mock.Anything).Return(nil).Once()

	var built int32
	s := NewService(desktop, func(p platform.Platform) (storage.Adapter, error) {
		atomic.AddInt32(&built, 1)
		assert.Equal(t, platform.Desktop, p)
		return a, nil
	}, zap.NewNop())
	ctx := context.Background()

	assert.Empty(t, s.Platform())
	first, err := s.Adapter(ctx)
	require.NoError(t, err)
	second, err := s.Adapter(ctx)
	require.NoError(t, err)

	assert.Same(t, a, first)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))
	assert.Equal(t, platform.Desktop, s.Platform())

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	a.AssertExpectations(t)
}

func TestService_ConcurrentCallersShareInitialization(t *testing.T) {
	release := make(chan struct{})
	a := &mockAdapter{}
	a.On("Initialize", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil).Once()

	var built int32
	s := NewService(desktop, func(platform.Platform) (storage.Adapter, error) {
		atomic.AddInt32(&built, 1)
		return a, nil
	}, nil)

	const callers = 16
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		results = make([]storage.Adapter, callers)
		errs    = make([]error, callers)
	)
	started.Add(callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			results[i], errs[i] = s.Adapter(context.Background())
		}()
	}
	started.Wait()
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, a, results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))
	a.AssertNumberOfCalls(t, "Initialize", 1)
}

func TestService_FailedInitializationIsRetried(t *testing.T) {
	broken := &mockAdapter{}
	broken.On("Initialize", mock.Anything).Return(errors.New("disk full")).Once()
	broken.On("Close", mock.Anything).Return(nil).Once()
	healthy := &mockAdapter{}
	healthy.On("Initialize", mock.Anything).Return(nil).Once()

	adapters := []*mockAdapter{broken, healthy}
	s := NewService(func() platform.Platform { return platform.Web }, func(platform.Platform) (storage.Adapter, error) {
		next := adapters[0]
		adapters = adapters[1:]
		return next, nil
	}, nil)
	ctx := context.Background()

	_, err := s.Adapter(ctx)
	var initErr *storage.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "web", initErr.Backend)
	assert.Empty(t, s.Platform())

	got, err := s.Adapter(ctx)
	require.NoError(t, err)
	assert.Same(t, healthy, got)

	broken.AssertExpectations(t)
	healthy.AssertExpectations(t)
}

func TestService_FactoryError(t *testing.T) {
	s := NewService(desktop, func(platform.Platform) (storage.Adapter, error) {
		return nil, errors.New("no driver")
	}, nil)

	_, err := s.Adapter(context.Background())

	var initErr *storage.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.EqualError(t, initErr.Err, "no driver")
}

func TestService_CanceledCallerDoesNotCancelInitialization(t *testing.T) {
	a := &mockAdapter{}
	a.On("Initialize", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).Return(nil).Once()

	s := NewService(desktop, func(platform.Platform) (storage.Adapter, error) { return a, nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := s.Adapter(ctx)
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestService_CloseThenReinitialize(t *testing.T) {
	first := &mockAdapter{}
	first.On("Initialize", mock.Anything).Return(nil).Once()
	first.On("Close", mock.Anything).Return(nil).Once()
	second := &mockAdapter{}
	second.On("Initialize", mock.Anything).Return(nil).Once()

	adapters := []*mockAdapter{first, second}
	s := NewService(desktop, func(platform.Platform) (storage.Adapter, error) {
		next := adapters[0]
		adapters = adapters[1:]
		return next, nil
	}, nil)
	ctx := context.Background()

	got, err := s.Adapter(ctx)
	require.NoError(t, err)
	assert.Same(t, first, got)
	require.NoError(t, s.Close(ctx))

	got, err = s.Adapter(ctx)
	require.NoError(t, err)
	assert.Same(t, second, got)
	first.AssertExpectations(t)
}
