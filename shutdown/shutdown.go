package shutdown

import (
	"os"
	"os/signal"
)

// Notify relays the session-ending signals to ch.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, Signals...)
}

// Stop undoes Notify for ch.
func Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}
