//go:build windows

package shutdown

import "os"

// Signals end a dreamy session on this platform.
var Signals = []os.Signal{os.Interrupt}
