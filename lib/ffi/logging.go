package ffi

import (
	"os"
	"sync"

	"github.com/go-pkgz/lgr"
)

var logOnce sync.Once

// setupLog configures std logger once per process, SMSGUARD_DEBUG=1 enables debug output
func setupLog() {
	logOnce.Do(func() {
		logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
		if os.Getenv("SMSGUARD_DEBUG") == "1" {
			logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
		}
		lgr.SetupStdLogger(logOpts...)
		lgr.Setup(logOpts...)
	})
}
