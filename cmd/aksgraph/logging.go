package main

import (
	"context"
	"time"

	"github.com/kompox/aksgraph/internal/logging"
)

// withCmdRunLogger implements the Span pattern for CLI command logging.
// It emits a start log line and returns a context with logger attributes attached,
// plus a cleanup function to emit the success or failure log line.
//
// Usage:
//
//	ctx, cleanup := withCmdRunLogger(ctx, "stack.up", stackName)
//	defer func() { cleanup(err) }()
//
// Log message format:
// - Start:   CMD:<operation>/S (with stack in logger attributes)
// - Success: CMD:<operation>/EOK (with err, elapsed in logger attributes)
// - Failure: CMD:<operation>/EFAIL (with err, elapsed in logger attributes)
//
// All logs use INFO level (mechanical recording).
// The runId is inherited from the context logger (set in PersistentPreRunE).
func withCmdRunLogger(ctx context.Context, operation, stack string) (context.Context, func(err error)) {
	startAt := time.Now()

	logger := logging.FromContext(ctx).With("stack", stack)
	ctx = logging.WithLogger(ctx, logger)

	logger.Info(ctx, "CMD:"+operation+"/S")

	cleanup := func(err error) {
		elapsed := time.Since(startAt).Seconds()
		msg := "CMD:" + operation + "/EOK"
		errStr := ""
		if err != nil {
			msg = "CMD:" + operation + "/EFAIL"
			errStr = err.Error()
			if len(errStr) > 32 {
				errStr = errStr[:32] + "..."
			}
		}
		logger.Info(ctx, msg, "err", errStr, "elapsed", elapsed)
	}

	return ctx, cleanup
}
