package async

import (
	"fmt"
	"runtime/debug"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
)

// Go runs fn on its own goroutine with panic recovery and error logging.
// The task is detached: it is not cancelled when the caller returns, and its
// failure is never propagated back to the caller's control flow.
//
// Example:
//
//	async.Go(logger, "webhook delivery", func() error {
//	    return engine.deliver(endpoint, event)
//	})
func Go(logger *observability.Logger, taskName string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("panic in supervised task")
			}
		}()

		if err := fn(); err != nil {
			logger.WithError(err).WithField("task", taskName).Error("supervised task failed")
		}
	}()
}
