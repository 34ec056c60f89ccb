package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dreamy/ai"
	"dreamy/audio"
	"dreamy/dictation"
	"dreamy/log"
)

type timings struct {
	cycle      time.Duration
	handoff    time.Duration
	typewriter time.Duration
	frame      time.Duration
}

var defaultTimings = timings{
	cycle:      4500 * time.Millisecond,
	handoff:    2500 * time.Millisecond,
	typewriter: 20 * time.Millisecond,
	frame:      180 * time.Millisecond,
}

// deps is everything the views reach outside the process for.
type deps struct {
	client    ai.Client
	host      audio.Host
	device    *audio.DeviceInfo
	dictation dictation.Capability
	muted     bool
	chimes    bool
	timings   timings

	pick  func(n int) []string
	copy  func(text string) error
	newID func() string
	// observe, when set, is told about view changes and playback events.
	observe func(event string)
}

// TUI message types
type interpretDoneMsg struct {
	attempt  string
	result   *result
	err      error
	category string
}
type handoffMsg struct{ epoch int }
type cycleTickMsg struct{ epoch int }
type frameTickMsg struct{ epoch int }
type typeTickMsg struct{ epoch int }
type playbackEndedMsg struct{ epoch int }
type dictationStartedMsg struct {
	id      int
	session dictation.Session
	err     error
}
type dictationUpdateMsg struct {
	session dictation.Session
	text    string
}
type dictationEndedMsg struct{ session dictation.Session }
type copiedMsg struct{ err error }
type quitMsg struct{}

var errNoClipboard = errors.New("no clipboard configured")

type model struct {
	deps     *deps
	view     view
	epoch    int
	width    int
	height   int
	attempts int
	quitting bool
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend delivers msg to the running program, if any.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func newModel(d *deps) model {
	return model{deps: d, view: newInputView(d, 0)}
}

func (m model) Init() tea.Cmd {
	m.notify("view " + m.view.kind().String())
	return textarea.Blink
}

// after schedules msg once d has elapsed.
func after[T any](d time.Duration, msg T) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func (m *model) notify(event string) {
	if m.deps.observe != nil {
		m.deps.observe(event)
	}
}

// mount replaces the current view. Bumping the epoch orphans every tick the
// old view scheduled, so none of them fire against the new one.
func (m *model) mount(next view) tea.Cmd {
	log.ViewChange(m.view.kind().String(), next.kind().String())
	m.view = next
	m.epoch++
	m.notify("view " + next.kind().String())

	t := m.deps.timings
	switch v := next.(type) {
	case *inputView:
		v.resize(m.width)
		return textarea.Blink
	case *loadingView:
		return tea.Batch(
			after(t.cycle, cycleTickMsg{m.epoch}),
			after(t.frame, frameTickMsg{m.epoch}),
			interpretCmd(m.deps.client, v.attempt, v.dream),
		)
	case *interpretationView:
		if v.writer.len() == 0 {
			return nil
		}
		return after(t.typewriter, typeTickMsg{m.epoch})
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if v, ok := m.view.(*inputView); ok {
			v.resize(msg.Width)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
	case quitMsg:
		return m.quit()
	case dictationStartedMsg:
		return m.dictationStarted(msg)
	case dictationUpdateMsg:
		if v, ok := m.view.(*inputView); ok {
			v.transcript(msg.session, msg.text)
		}
		return m, waitDictation(msg.session)
	case dictationEndedMsg:
		if v, ok := m.view.(*inputView); ok && v.session == msg.session {
			v.quiet()
		}
		return m, nil
	}

	switch v := m.view.(type) {
	case *inputView:
		return m.updateInput(v, msg)
	case *loadingView:
		return m.updateLoading(v, msg)
	case *interpretationView:
		return m.updateReflection(v, msg)
	}
	return m, nil
}

func (m model) updateInput(v *inputView, msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+s":
			return m.submit(v)
		case "ctrl+r":
			return m.toggleDictation(v)
		}
	}
	var cmd tea.Cmd
	v.area, cmd = v.area.Update(msg)
	return m, cmd
}

func (m model) submit(v *inputView) (tea.Model, tea.Cmd) {
	attempt := m.deps.newID()
	next, ok := beginLoading(v, attempt, m.deps.pick)
	if !ok {
		return m, nil
	}

	var cmds []tea.Cmd
	if v.listening {
		if s := v.quiet(); s != nil {
			cmds = append(cmds, stopDictation(s))
		}
	}
	m.attempts++
	log.AttemptStart(attempt, m.deps.client.Name(), len(next.dream))
	cmds = append(cmds, m.mount(next))
	return m, tea.Batch(cmds...)
}

func (m model) toggleDictation(v *inputView) (tea.Model, tea.Cmd) {
	rec, ok := m.deps.dictation.Recognizer()
	if !ok {
		return m, nil
	}
	if v.listening {
		if s := v.quiet(); s != nil {
			return m, stopDictation(s)
		}
		return m, nil
	}
	id := v.listen()
	return m, startDictation(rec, id)
}

func (m model) dictationStarted(msg dictationStartedMsg) (tea.Model, tea.Cmd) {
	v, mounted := m.view.(*inputView)
	if msg.err != nil {
		log.DictationError(msg.err)
		if mounted && v.listening && v.session == nil && v.listenID == msg.id {
			v.quiet()
		}
		return m, nil
	}
	if !mounted || !v.attach(msg.id, msg.session) {
		return m, tea.Batch(stopDictation(msg.session), waitDictation(msg.session))
	}
	return m, waitDictation(msg.session)
}

func (m model) updateLoading(v *loadingView, msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cycleTickMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		if v.advance() {
			return m, after(m.deps.timings.cycle, cycleTickMsg{m.epoch})
		}
	case frameTickMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		v.frame++
		return m, after(m.deps.timings.frame, frameTickMsg{m.epoch})
	case interpretDoneMsg:
		if msg.attempt != v.attempt || v.ready() {
			return m, nil
		}
		if msg.err != nil {
			code, status, _ := ai.HTTPStatus(msg.err)
			log.AttemptFailed(msg.attempt, msg.category, code, status, msg.err)
			m.chime(audio.ToneError)
			cmd := m.mount(failLoading(v, m.deps, m.width))
			return m, cmd
		}
		v.result = msg.result
		m.notify("ready")
		m.chime(audio.ToneReady)
		return m, after(m.deps.timings.handoff, handoffMsg{m.epoch})
	case handoffMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		if next, ok := finishLoading(v, m.deps); ok {
			cmd := m.mount(next)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) updateReflection(v *interpretationView, msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateInterpretation(v, msg)
	case typeTickMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		if v.writer.step() {
			return m, after(m.deps.timings.typewriter, typeTickMsg{m.epoch})
		}
		m.notify("typed")
	case playbackEndedMsg:
		if msg.epoch != m.epoch {
			return m, nil
		}
		state := v.playback()
		if state == audio.StateStopped {
			log.Playback(state.String())
		}
		m.notify("playback " + state.String())
	case copiedMsg:
		if msg.err != nil {
			log.Warnf("copy interpretation: %v", msg.err)
			v.notice = "Could not copy to the clipboard."
		} else {
			v.notice = "Copied to clipboard."
		}
	}
	return m, nil
}

func (m model) reset(v *interpretationView) (tea.Model, tea.Cmd) {
	next := resetInterpretation(v, m.deps, m.width)
	cmd := m.mount(next)
	return m, cmd
}

// quit releases whatever the mounted view holds before the program exits.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	switch v := m.view.(type) {
	case *interpretationView:
		v.unmount()
	case *inputView:
		if s := v.quiet(); s != nil {
			s.Stop()
		}
	}
	m.quitting = true
	log.SessionEnd(m.attempts)
	m.notify("quit")
	return m, tea.Quit
}

func (m model) chime(kind audio.ToneKind) {
	if !m.deps.chimes || m.deps.muted || m.deps.host == nil {
		return
	}
	if err := audio.PlayTone(m.deps.host, m.deps.device, kind); err != nil {
		log.Warnf("play tone: %v", err)
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	switch v := m.view.(type) {
	case *inputView:
		return v.render(m.width)
	case *loadingView:
		return lipgloss.PlaceVertical(m.height, lipgloss.Center, v.render(m.width))
	case *interpretationView:
		return v.render(m.width)
	}
	return ""
}

// interpretCmd runs interpret, synthesize and decode strictly in order. The
// first failure ends the attempt and nothing partial is returned.
func interpretCmd(client ai.Client, attempt, dream string) tea.Cmd {
	return func() tea.Msg {
		return runAttempt(context.Background(), client, attempt, dream)
	}
}

func runAttempt(ctx context.Context, client ai.Client, attempt, dream string) interpretDoneMsg {
	fail := func(category string, err error) interpretDoneMsg {
		return interpretDoneMsg{attempt: attempt, err: err, category: category}
	}
	metrics := log.Metrics{AttemptID: attempt, Provider: client.Name(), Chars: len(dream)}
	start := time.Now()

	text, err := client.Interpret(ctx, dream)
	if err != nil {
		return fail("interpretation", err)
	}
	metrics.InterpretMs = msSince(start)

	synthStart := time.Now()
	speech, err := client.Synthesize(ctx, text)
	if err != nil {
		return fail("speech", err)
	}
	metrics.SynthMs = msSince(synthStart)

	decodeStart := time.Now()
	rate := audio.RateFromMIME(speech.MIMEType, audio.SpeechSampleRate)
	buf, err := audio.Decode(speech.Data, rate, audio.SpeechChannels)
	if err != nil {
		return fail("decode", err)
	}
	metrics.DecodeMs = msSince(decodeStart)
	metrics.TotalMs = msSince(start)
	metrics.AudioS = buf.Duration().Seconds()
	metrics.AudioKB = float64(len(speech.Data)) / 1024
	log.InterpretationMetrics(metrics)
	log.Dream(attempt, dream, text)

	return interpretDoneMsg{attempt: attempt, result: &result{attempt: attempt, text: text, audio: buf}}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func msSince(t time.Time) float64 { return ms(time.Since(t)) }

func waitPlayback(epoch int, done <-chan struct{}) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{epoch: epoch}
	}
}

func startDictation(rec dictation.Recognizer, id int) tea.Cmd {
	return func() tea.Msg {
		s, err := rec.Start(context.Background())
		return dictationStartedMsg{id: id, session: s, err: err}
	}
}

// waitDictation reports the next transcript, or the end of the session.
func waitDictation(s dictation.Session) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-s.Updates()
		if !ok {
			<-s.Done()
			return dictationEndedMsg{session: s}
		}
		return dictationUpdateMsg{session: s, text: text}
	}
}

func stopDictation(s dictation.Session) tea.Cmd {
	return func() tea.Msg {
		s.Stop()
		return nil
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		if write == nil {
			return copiedMsg{err: errNoClipboard}
		}
		return copiedMsg{err: write(text)}
	}
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("183"))
	taglineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("146"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	listeningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("211")).Bold(true)
	starStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	fillerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
	reflectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219"))
	bodyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("254"))
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("189")).Bold(true)
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	keyStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	hintSep = hintStyle.Render("  ·  ")
)

func keyHint(key, label string) string {
	return keyStyle.Render(key) + " " + hintStyle.Render(label)
}

func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	runes := []rune(text)
	for len(runes) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
