package shutdown

import (
	"os"
	"testing"
)

func TestSignalsIncludeInterrupt(t *testing.T) {
	for _, s := range Signals {
		if s == os.Interrupt {
			return
		}
	}
	t.Errorf("Signals = %v, missing os.Interrupt", Signals)
}

func TestNotifyStop(t *testing.T) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	Stop(ch)
}
