package main

import (
	"strings"
	"testing"

	"dreamy/audio"
)

func TestLoadingCycle(t *testing.T) {
	v := newLoadingView("id", "dream", []string{"one", "two", "three", "four"})

	var seen []string
	seen = append(seen, v.text())
	for v.advance() {
		seen = append(seen, v.text())
	}
	if got := strings.Join(seen, ","); got != "one,two,three,four" {
		t.Errorf("cycle = %s", got)
	}
	if v.advance() {
		t.Error("cycle continued after exhaustion")
	}
	if v.text() != msgAlmostThere {
		t.Errorf("text = %q, want %q", v.text(), msgAlmostThere)
	}
}

func TestLoadingReadyWins(t *testing.T) {
	tests := []struct {
		name    string
		advance int
	}{
		{"first message", 0},
		{"middle", 2},
		{"exhausted", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newLoadingView("id", "dream", []string{"a", "b", "c", "d"})
			for range tt.advance {
				v.advance()
			}
			v.result = &result{text: "x", audio: &audio.Buffer{}}
			if v.text() != msgReceived {
				t.Errorf("text = %q, want %q", v.text(), msgReceived)
			}
			if v.advance() {
				t.Error("cycling continued after ready")
			}
		})
	}
}

func TestLoadingNoMessages(t *testing.T) {
	v := newLoadingView("id", "dream", nil)
	if v.text() != msgAlmostThere {
		t.Errorf("text = %q", v.text())
	}
	if v.advance() {
		t.Error("advance with no messages should stop")
	}
}

func TestLoadingRender(t *testing.T) {
	v := newLoadingView("id", "dream", []string{"Reading the stars..."})
	if out := v.render(60); !strings.Contains(out, "Reading the stars...") {
		t.Errorf("render missing message:\n%s", out)
	}
}
