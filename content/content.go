// Package content holds the filler lines shown while an interpretation is
// being prepared.
package content

import "math/rand/v2"

var statusMessages = []string{
	"Entering the dream world...",
	"Translating subconscious symbols...",
	"Navigating the astral plane...",
	"Consulting the collective unconscious...",
	"Visualizing the narrative...",
	"Decoding hidden meanings...",
	"Harmonizing with dream frequencies...",
}

var dreamQuotes = []string{
	`"The future belongs to those who believe in the beauty of their dreams." - Eleanor Roosevelt`,
	`"A dream you dream alone is only a dream. A dream you dream together is reality." - Yoko Ono`,
	`"All that we see or seem is but a dream within a dream." - Edgar Allan Poe`,
	`"Dreams are illustrations from the book your soul is writing about you." - Marsha Norman`,
	`"The interpretation of dreams is the royal road to a knowledge of the unconscious activities of the mind." - Sigmund Freud`,
}

var dreamFacts = []string{
	"Fact: You can't read text or tell time accurately in most dreams.",
	"Fact: On average, you have about 4 to 7 dreams each night.",
	"Fact: Not everyone dreams in color. Some people dream exclusively in black and white.",
	"Fact: Blind people often have more vivid dreams involving sound, smell, and touch.",
	"Fact: Animals, including mammals and birds, also experience REM sleep and are believed to dream.",
}

// All returns a copy of the whole pool.
func All() []string {
	all := make([]string, 0, len(statusMessages)+len(dreamQuotes)+len(dreamFacts))
	all = append(all, statusMessages...)
	all = append(all, dreamQuotes...)
	return append(all, dreamFacts...)
}

// Picker draws random subsets of the pool.
type Picker struct {
	rng *rand.Rand
}

// NewPicker returns a Picker using r, or the global source when r is nil.
func NewPicker(r *rand.Rand) *Picker {
	return &Picker{rng: r}
}

func (p *Picker) intN(n int) int {
	if p.rng == nil {
		return rand.IntN(n)
	}
	return p.rng.IntN(n)
}

// Pick returns count distinct strings from the pool in random order. A count
// larger than the pool yields the whole pool; a count below one yields none.
func (p *Picker) Pick(count int) []string {
	if count <= 0 {
		return []string{}
	}
	pool := All()
	for i := len(pool) - 1; i > 0; i-- {
		j := p.intN(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:min(count, len(pool))]
}

var defaultPicker = NewPicker(nil)

// Random is Pick on the global source.
func Random(count int) []string {
	return defaultPicker.Pick(count)
}
