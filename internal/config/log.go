package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// SetupHookLogging points the standard logger at ~/.hookwatch/logs/hookwatch.log.
// Hook processes must keep stdout clean for their JSON response and the
// external tool surfaces stderr, so diagnostics go to the file. If it cannot
// be opened, logging is discarded. The returned closer is never nil.
func SetupHookLogging() io.Closer {
	log.SetPrefix("[hook] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if err := EnsureGlobalLogsDir(); err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}
	dir, err := GlobalLogsDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}

	f, err := os.OpenFile(filepath.Join(dir, HookLogFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil)
	}
	log.SetOutput(f)
	return f
}
