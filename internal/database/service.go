// Package database owns the process's storage adapter: it picks the backend once,
// initializes it exactly once no matter how many callers race for it, and closes it.
package database

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tgienger/yuflow/internal/platform"
	"github.com/tgienger/yuflow/internal/storage"
)

// Factory builds an uninitialized adapter for p
type Factory func(p platform.Platform) (storage.Adapter, error)

// Service hands out the memoized adapter. Create one per process and pass it
// to whatever needs storage.
type Service struct {
	detect  func() platform.Platform
	factory Factory
	logger  *zap.Logger

	group     singleflight.Group
	lifecycle sync.Mutex // serializes initialize and close

	mu       sync.RWMutex
	adapter  storage.Adapter
	platform platform.Platform
}

// NewService creates a service. detect is called on each initialization.
func NewService(detect func() platform.Platform, factory Factory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{detect: detect, factory: factory, logger: logger}
}

func (s *Service) current() storage.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapter
}

// Adapter returns the initialized adapter, creating it on first use. Concurrent
// first callers share one initialization. A failed initialization is not
// remembered; the next call starts over with a new adapter.
func (s *Service) Adapter(ctx context.Context) (storage.Adapter, error) {
	if a := s.current(); a != nil {
		return a, nil
	}

	v, err, shared := s.group.Do("adapter", func() (any, error) {
		return s.initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("joined in-flight storage initialization")
	}
	return v.(storage.Adapter), nil
}

func (s *Service) initialize(ctx context.Context) (storage.Adapter, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if a := s.current(); a != nil {
		return a, nil
	}

	p := s.detect()
	s.logger.Info("initializing storage", zap.String("platform", string(p)))

	a, err := s.factory(p)
	if err != nil {
		return nil, &storage.InitializationError{Backend: string(p), Err: err}
	}
	if err := a.Initialize(ctx); err != nil {
		if closeErr := a.Close(ctx); closeErr != nil {
			s.logger.Warn("closing failed adapter", zap.Error(closeErr))
		}
		var initErr *storage.InitializationError
		if !errors.As(err, &initErr) {
			err = &storage.InitializationError{Backend: string(p), Err: err}
		}
		s.logger.Error("storage initialization failed", zap.String("platform", string(p)), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.adapter = a
	s.platform = p
	s.mu.Unlock()
	return a, nil
}

// Platform returns the backend of the current adapter, empty before initialization
func (s *Service) Platform() platform.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.platform
}

// Close closes and forgets the current adapter. The next Adapter call creates a new one.
func (s *Service) Close(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	a := s.adapter
	s.adapter = nil
	s.platform = ""
	s.mu.Unlock()

	if a == nil {
		return nil
	}
	s.logger.Info("closing storage")
	return a.Close(ctx)
}
