package native

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Invoker sends a named command with args and decodes the result into out.
// out may be nil for commands that return nothing.
type Invoker interface {
	Invoke(ctx context.Context, command string, args, out any) error
}

// LocalInvoker runs commands on an in-process Handler
type LocalInvoker struct {
	handler *Handler
	logger  *zap.Logger
}

// NewLocalInvoker creates an invoker for h
func NewLocalInvoker(h *Handler, logger *zap.Logger) *LocalInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalInvoker{handler: h, logger: logger}
}

// Invoke implements Invoker
func (i *LocalInvoker) Invoke(ctx context.Context, command string, args, out any) error {
	callID := uuid.NewString()
	start := time.Now()

	var payload json.RawMessage
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return &CommandError{Command: command, Kind: KindInternal, Message: "encode payload: " + err.Error()}
		}
		payload = raw
	}

	result, err := i.handler.Dispatch(ctx, command, payload)
	if err != nil {
		i.logger.Warn("command failed",
			zap.String("command", command),
			zap.String("call_id", callID),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	i.logger.Debug("command",
		zap.String("command", command),
		zap.String("call_id", callID),
		zap.Duration("took", time.Since(start)),
	)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return &CommandError{Command: command, Kind: KindInternal, Message: "decode result: " + err.Error()}
	}
	return nil
}

// Close closes the handler's database
func (i *LocalInvoker) Close() error {
	return i.handler.Close()
}
