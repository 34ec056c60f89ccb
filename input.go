package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"

	"dreamy/dictation"
)

const (
	placeholderListening = "Listening... speak your dream."
	placeholderDictate   = "Describe your dream, or press ctrl+r to dictate..."
	placeholderDefault   = "Describe your dream here... the more detail, the better the interpretation."

	dreamCharLimit = 4000
)

type inputView struct {
	area       textarea.Model
	err        string
	canDictate bool
	listening  bool
	// listenID tags each listening stretch so a late start can be told apart.
	listenID int
	// session is the live dictation session. It is nil while not listening
	// and while a session is still starting.
	session dictation.Session
}

func newInputView(d *deps, width int) *inputView {
	area := textarea.New()
	area.ShowLineNumbers = false
	area.CharLimit = dreamCharLimit
	area.SetHeight(8)
	area.Focus()

	v := &inputView{area: area, canDictate: d.dictation.Supported()}
	v.resize(width)
	v.refreshPlaceholder()
	return v
}

func (v *inputView) kind() viewKind { return viewInput }

func (v *inputView) dream() string { return v.area.Value() }

func (v *inputView) resize(width int) {
	w := width - 4
	if w > 100 {
		w = 100
	}
	if w < 20 {
		w = 20
	}
	v.area.SetWidth(w)
}

func (v *inputView) refreshPlaceholder() {
	switch {
	case v.listening:
		v.area.Placeholder = placeholderListening
	case v.canDictate:
		v.area.Placeholder = placeholderDictate
	default:
		v.area.Placeholder = placeholderDefault
	}
}

// listen enters the listening state and clears the dream; transcripts
// replace it from here on. The session is attached once it has started.
func (v *inputView) listen() int {
	v.listenID++
	v.session = nil
	v.listening = true
	v.area.Reset()
	v.refreshPlaceholder()
	return v.listenID
}

// attach binds a started session. It reports false when listening was
// cancelled in the meantime and the session should be stopped.
func (v *inputView) attach(id int, s dictation.Session) bool {
	if !v.listening || v.session != nil || id != v.listenID {
		return false
	}
	v.session = s
	return true
}

func (v *inputView) transcript(s dictation.Session, text string) {
	if !v.listening || v.session != s {
		return
	}
	v.area.SetValue(text)
}

// quiet ends the listening state and hands back the session so the caller
// can stop it.
func (v *inputView) quiet() dictation.Session {
	s := v.session
	v.session = nil
	v.listening = false
	v.refreshPlaceholder()
	return s
}

func (v *inputView) render(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dreamy"))
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render("Unveil the secrets hidden in your slumber."))
	b.WriteString("\n\n")
	b.WriteString(v.area.View())
	b.WriteString("\n")

	if v.err != "" {
		b.WriteString(errorStyle.Render(v.err))
	}
	b.WriteString("\n")

	hints := []string{keyHint("ctrl+s", "interpret")}
	if v.canDictate {
		label := "dictate"
		if v.listening {
			label = "stop dictation"
		}
		hints = append(hints, keyHint("ctrl+r", label))
	}
	hints = append(hints, keyHint("ctrl+c", "quit"))
	if v.listening {
		hints = append([]string{listeningStyle.Render("● listening")}, hints...)
	}
	b.WriteString(strings.Join(hints, hintSep))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("Powered by AI. Interpretations are for entertainment purposes only."))

	return lipgloss.NewStyle().Width(width).Padding(1, 2).Render(b.String())
}
