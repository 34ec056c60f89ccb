package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dreamy/audio"
	"dreamy/log"
)

// interpretationView shows one interpretation and owns its narration.
// The player exists only when there is somewhere to play to; its playback
// context is created on listen and released on stop, reset and quit.
type interpretationView struct {
	attempt string
	text    string
	writer  typewriter
	player  *audio.Player
	prompt  bool
	notice  string
}

func newInterpretationView(r result, d *deps) *interpretationView {
	v := &interpretationView{
		attempt: r.attempt,
		text:    r.text,
		writer:  newTypewriter(r.text),
	}
	if !d.muted && d.host != nil && r.audio != nil {
		v.player = audio.NewPlayer(d.host, r.audio, d.device)
		v.prompt = true
	}
	return v
}

func (v *interpretationView) kind() viewKind { return viewInterpretation }

func (v *interpretationView) playback() audio.PlaybackState {
	if v.player == nil {
		return audio.StateIdle
	}
	return v.player.State()
}

// listen dismisses the prompt and starts the narration from the beginning,
// or resumes it when paused.
func (v *interpretationView) listen() (<-chan struct{}, error) {
	v.prompt = false
	if v.player == nil {
		return nil, audio.ErrNoOutput
	}
	done, err := v.player.Play()
	if err == nil {
		log.Playback(v.player.State().String())
	}
	return done, err
}

func (v *interpretationView) readOnly() {
	v.prompt = false
}

func (v *interpretationView) togglePause() {
	if v.player == nil {
		return
	}
	if err := v.player.TogglePause(); err != nil {
		log.Warnf("toggle pause: %v", err)
		return
	}
	log.Playback(v.player.State().String())
}

func (v *interpretationView) stop() {
	if v.player == nil {
		return
	}
	if err := v.player.Stop(); err != nil {
		log.Warnf("stop playback: %v", err)
	}
}

// unmount releases everything the view holds. The player is unusable after.
func (v *interpretationView) unmount() {
	if v.player == nil {
		return
	}
	if err := v.player.Close(); err != nil {
		log.Warnf("close playback: %v", err)
	}
}

func (m model) updateInterpretation(v *interpretationView, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if v.prompt {
		switch key {
		case "l", "enter":
			cmd := m.startNarration(v)
			return m, cmd
		case "r", "esc":
			v.readOnly()
			return m, nil
		}
	}

	switch key {
	case "l":
		if st := v.playback(); st == audio.StateIdle || st == audio.StateStopped {
			cmd := m.startNarration(v)
			return m, cmd
		}
	case " ", "space", "p":
		v.togglePause()
	case "s":
		v.stop()
	case "y":
		v.notice = ""
		return m, copyCmd(m.deps.copy, v.text)
	case "d":
		return m.reset(v)
	case "q":
		return m.quit()
	}
	return m, nil
}

func (m model) startNarration(v *interpretationView) tea.Cmd {
	done, err := v.listen()
	if err != nil {
		log.Warnf("start playback: %v", err)
		return nil
	}
	return waitPlayback(m.epoch, done)
}

func (v *interpretationView) render(width int) string {
	wrap := width - 6
	if wrap > 96 {
		wrap = 96
	}
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	b.WriteString(reflectionStyle.Render("Your Dream's Reflection"))
	b.WriteString("\n\n")
	for _, para := range strings.Split(v.writer.visible(), "\n") {
		for _, line := range wrapText(para, wrap) {
			b.WriteString(bodyStyle.Render(line))
			b.WriteString("\n")
		}
	}
	if !v.writer.done() {
		b.WriteString(cursorStyle.Render("▌"))
	}
	b.WriteString("\n")
	b.WriteString(v.controls())
	if v.notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(v.notice))
	}
	return lipgloss.NewStyle().Width(width).Padding(1, 2).Render(b.String())
}

func (v *interpretationView) controls() string {
	if v.prompt {
		return promptStyle.Render("Let the narrator guide you.") + "\n" +
			taglineStyle.Render("Would you like to listen to the interpretation?") + "\n" +
			strings.Join([]string{keyHint("l", "listen"), keyHint("r", "read only")}, hintSep)
	}

	var hints []string
	switch v.playback() {
	case audio.StatePlaying:
		hints = append(hints, listeningStyle.Render("♪ playing"), keyHint("space", "pause"), keyHint("s", "stop"))
	case audio.StatePaused:
		hints = append(hints, taglineStyle.Render("❚❚ paused"), keyHint("space", "resume"), keyHint("s", "stop"))
	default:
		if v.player != nil {
			hints = append(hints, keyHint("l", "listen"))
		}
	}
	hints = append(hints, keyHint("y", "copy"), keyHint("d", "dream again"), keyHint("q", "quit"))
	return strings.Join(hints, hintSep)
}
