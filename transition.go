package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	msgAlmostThere = "Hang tight... Almost there..."
	msgReceived    = "Interpretation Received..."
)

var starFrames = []string{"·  ✦  ·", "✧  ·  ✧", "·  ✧  ·", "✦  ·  ✦"}

// loadingView holds one attempt while the model and narrator work. Filler
// messages advance on the cycle tick; a result overrides whatever is showing.
type loadingView struct {
	attempt   string
	dream     string
	messages  []string
	index     int
	exhausted bool
	result    *result
	frame     int
}

func newLoadingView(attempt, dream string, messages []string) *loadingView {
	return &loadingView{attempt: attempt, dream: dream, messages: messages}
}

func (v *loadingView) kind() viewKind { return viewLoading }

func (v *loadingView) ready() bool { return v.result != nil }

// advance moves to the next filler message and reports whether another
// cycle tick is needed.
func (v *loadingView) advance() bool {
	if v.ready() || v.exhausted {
		return false
	}
	if v.index >= len(v.messages)-1 {
		v.exhausted = true
		return false
	}
	v.index++
	return true
}

func (v *loadingView) text() string {
	switch {
	case v.ready():
		return msgReceived
	case v.exhausted || len(v.messages) == 0:
		return msgAlmostThere
	}
	return v.messages[v.index]
}

func (v *loadingView) render(width int) string {
	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}
	stars := starStyle.Render(starFrames[v.frame%len(starFrames)])
	lines := wrapText(v.text(), wrap)
	for i, line := range lines {
		lines[i] = fillerStyle.Render(line)
	}
	body := lipgloss.JoinVertical(lipgloss.Center, stars, "", strings.Join(lines, "\n"), "", stars)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, body)
}
