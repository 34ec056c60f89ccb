package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"dreamy/ai"
	"dreamy/audio"
	"dreamy/content"
	"dreamy/dictation"
	"dreamy/log"
)

const testWaitTimeout = 60 * time.Second

var testTimings = timings{
	cycle:      300 * time.Millisecond,
	handoff:    200 * time.Millisecond,
	typewriter: time.Millisecond,
	frame:      50 * time.Millisecond,
}

// eventLog collects observed events for WAIT.
type eventLog struct {
	mu     sync.Mutex
	events []string
	next   int
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
	fmt.Println(event)
}

// wait consumes events until want shows up.
func (l *eventLog) wait(want string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		for l.next < len(l.events) {
			e := l.events[l.next]
			l.next++
			if e == want {
				l.mu.Unlock()
				return true
			}
		}
		l.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// runTestMode drives the views headless from stdin. Audio goes to an
// in-memory host; DREAMY_FAKE_AI swaps the provider for a scripted one
// ("fail" makes every interpretation fail). Commands:
//
//	TYPE <text> | ENTER | SUBMIT | DICTATE | KEY <key> | WAIT <event> | SLEEP <ms> | QUIT
func runTestMode(provider string) int {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	client, err := testClient(provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	capability := dictation.Unavailable("test mode")
	if t := os.Getenv("DREAMY_FAKE_DICTATION"); t != "" {
		capability = dictation.Available(dictation.NewFake(strings.Split(t, "|")...))
	}

	events := &eventLog{}
	d := &deps{
		client:    client,
		host:      &audio.FakeHost{Speed: 4},
		dictation: capability,
		timings:   defaultTimings,
		pick:      content.Random,
		copy:      func(string) error { return nil },
		newID:     uuid.NewString,
		observe:   events.add,
	}
	if os.Getenv("DREAMY_TEST_FAST") != "" {
		d.timings = testTimings
	}
	log.SessionStart(client.Name(), capability.Supported(), false)

	p := tea.NewProgram(newModel(d), tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer())

	// Stdin driver in background -- sends key events, handles WAIT/SLEEP/QUIT
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
			switch cmd {
			case "TYPE":
				p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(arg)})
			case "ENTER":
				p.Send(tea.KeyMsg{Type: tea.KeyEnter})
			case "SUBMIT":
				p.Send(tea.KeyMsg{Type: tea.KeyCtrlS})
			case "DICTATE":
				p.Send(tea.KeyMsg{Type: tea.KeyCtrlR})
			case "KEY":
				if arg == "space" {
					arg = " "
				}
				p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(arg)})
			case "WAIT":
				if !events.wait(arg, testWaitTimeout) {
					fmt.Printf("TIMEOUT %s\n", arg)
					p.Send(quitMsg{})
					return
				}
			case "SLEEP":
				if ms, err := strconv.Atoi(arg); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			case "QUIT":
				p.Send(quitMsg{})
				return
			}
		}
		p.Send(quitMsg{})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func testClient(provider string) (ai.Client, error) {
	switch os.Getenv("DREAMY_FAKE_AI") {
	case "":
		return ai.New(provider, ai.NewHTTPClient(logHTTP))
	case "fail":
		f := ai.NewFake()
		f.InterpretErr = errors.New("scripted failure")
		return f, nil
	default:
		f := ai.NewFake()
		f.Delay = 100 * time.Millisecond
		return f, nil
	}
}
