package main

// typewriter reveals text one rune per step.
type typewriter struct {
	runes []rune
	shown int
}

func newTypewriter(text string) typewriter {
	return typewriter{runes: []rune(text)}
}

// step reveals one more rune and reports whether any remain hidden.
func (t *typewriter) step() bool {
	if t.shown < len(t.runes) {
		t.shown++
	}
	return t.shown < len(t.runes)
}

func (t *typewriter) done() bool { return t.shown >= len(t.runes) }

func (t *typewriter) visible() string { return string(t.runes[:t.shown]) }

func (t *typewriter) len() int { return len(t.runes) }
