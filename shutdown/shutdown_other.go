//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// Signals end a dreamy session on this platform.
var Signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
