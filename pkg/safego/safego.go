package safego

import (
	"go.uber.org/zap"
)

// Go launches fn on its own goroutine. A panic inside fn is logged with
// its stack and swallowed so a single request cannot take the server down.
//
//	safego.Go(logger, "http-listener", func() {
//	    _ = srv.ListenAndServe()
//	})
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}

// Recover is meant to be deferred at the top of a goroutine or handler.
func Recover(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("Goroutine panicked",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}
