package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/platinummonkey/laman/pkg/observability"
)

// SafeGo executes fn in a goroutine with panic recovery, a timeout and
// error logging. The task context is detached from parentCtx cancellation
// so work started by a request outlives the response, but it keeps the
// request's values (request ID, user ID) for logging.
//
// The returned channel receives the task's result and is then closed;
// callers that don't care can ignore it.
//
//	async.SafeGo(r.Context(), logger, 30*time.Second, "page export", func(ctx context.Context) error {
//	    return exporter.Export(ctx, page)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	if logger == nil {
		logger = observability.FromContext(parentCtx)
	}

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", taskName, r)
				logger.WithField("task", taskName).
					WithField("stack", string(debug.Stack())).
					Errorf("PANIC recovered: %v", r)
			}
			done <- err
		}()

		if err = fn(ctx); err != nil {
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()

	return done
}
