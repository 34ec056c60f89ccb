package main

import (
	"strings"

	"dreamy/audio"
)

type viewKind int

const (
	viewInput viewKind = iota
	viewLoading
	viewInterpretation
)

func (k viewKind) String() string {
	switch k {
	case viewInput:
		return "input"
	case viewLoading:
		return "loading"
	case viewInterpretation:
		return "interpretation"
	}
	return "unknown"
}

// view is exactly one of *inputView, *loadingView or *interpretationView.
// The functions below are the only ways to move between them, and each one
// accepts only the state it may leave from.
type view interface {
	kind() viewKind
}

const loadingMessageCount = 4

const (
	msgEmptyDream    = "Please describe your dream before interpreting."
	msgJourneyFailed = "An error occurred on the journey into your dream. Please try again."
)

// result is everything a successful attempt hands to the interpretation view.
type result struct {
	attempt string
	text    string
	audio   *audio.Buffer
}

// beginLoading leaves input for loading. ok is false when the dream is blank,
// in which case from carries the validation error and nothing changes.
func beginLoading(from *inputView, attempt string, pick func(int) []string) (next *loadingView, ok bool) {
	dream := strings.TrimSpace(from.dream())
	if dream == "" {
		from.err = msgEmptyDream
		return nil, false
	}
	from.err = ""
	return newLoadingView(attempt, dream, pick(loadingMessageCount)), true
}

// failLoading returns to input after any failure in the chain. The dream
// survives so the user can try again; nothing from the attempt is kept.
func failLoading(from *loadingView, d *deps, width int) *inputView {
	in := newInputView(d, width)
	in.area.SetValue(from.dream)
	in.err = msgJourneyFailed
	return in
}

// finishLoading enters the interpretation view. It refuses until the
// attempt has produced a complete result.
func finishLoading(from *loadingView, d *deps) (*interpretationView, bool) {
	if from.result == nil {
		return nil, false
	}
	return newInterpretationView(*from.result, d), true
}

// resetInterpretation tears the interpretation view down and starts over
// with an empty form.
func resetInterpretation(from *interpretationView, d *deps, width int) *inputView {
	from.unmount()
	return newInputView(d, width)
}
