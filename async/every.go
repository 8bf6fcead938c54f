// Package async includes helpers for scheduling periodic work in the background.
package async

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "async")

// RunEvery calls f once per period in a new goroutine until ctx is done.
// Calls never overlap: a slow f delays the next tick.
func RunEvery(ctx context.Context, period time.Duration, f func()) {
	funcName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.WithField("function", funcName).Trace("Running periodic function")
				f()
			case <-ctx.Done():
				log.WithField("function", funcName).Debug("Context is closed, exiting")
				return
			}
		}
	}()
}
