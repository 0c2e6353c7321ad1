package desktop

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/db"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/native"
	"github.com/tgienger/yuflow/internal/storage"
	"github.com/tgienger/yuflow/internal/storage/storagetest"
)

func newAdapter(t *testing.T, clock func() time.Time) *Adapter {
	path := filepath.Join(t.TempDir(), "yuflow.db")
	h := native.NewHandler(func(ctx context.Context) (*db.DB, error) {
		conn, err := db.Open(ctx, db.DriverPure, path)
		if err != nil {
			return nil, err
		}
		conn.Clock = clock
		return conn, nil
	})
	return New(native.NewLocalInvoker(h, zap.NewNop()))
}

func TestAdapterConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock func() time.Time) storage.Adapter {
		return newAdapter(t, clock)
	})
}

type failingInvoker struct {
	err error
}

func (f failingInvoker) Invoke(context.Context, string, any, any) error {
	return f.err
}

func TestAdapter_InitializeFailure(t *testing.T) {
	cause := &native.CommandError{Command: native.CmdInitDatabase, Kind: native.KindInternal, Message: "no disk"}
	a := New(failingInvoker{err: cause})

	err := a.Initialize(context.Background())

	var initErr *storage.InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "desktop", initErr.Backend)
	assert.ErrorIs(t, err, cause)
}

func TestAdapter_MapsErrorKinds(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		kind native.Kind
		want error
	}{
		{native.KindNotFound, storage.ErrNotFound},
		{native.KindValidation, storage.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a := New(failingInvoker{err: &native.CommandError{Command: "x", Kind: tt.kind, Message: "m"}})
			_, err := a.UpdateTask(ctx, models.UpdateTaskInput{ID: 1})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	transport := errors.New("pipe closed")
	a := New(failingInvoker{err: transport})
	_, err := a.GetTasks(ctx, nil)
	assert.ErrorIs(t, err, transport)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestAdapter_CloseWithoutCloser(t *testing.T) {
	a := New(failingInvoker{})
	assert.NoError(t, a.Close(context.Background()))
}
