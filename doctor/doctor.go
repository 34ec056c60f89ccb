package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"dreamy/ai"
	"dreamy/audio"
	"dreamy/dictation"
	"dreamy/shutdown"
)

const (
	testDream      = "I was flying over a quiet ocean at night, and the stars were singing."
	requestTimeout = 90 * time.Second
	listenFor      = 4 * time.Second
)

// session is the shared state the checks run against.
type session struct {
	reader *bufio.Reader
	host   audio.Host
	// newClient builds the AI client for the round-trip check.
	newClient func() (ai.Client, error)
	// narration is filled in by the round trip and played by the output check.
	narration *audio.Buffer
}

type check struct {
	title string
	run   func(*session) bool
}

var checks = []check{
	{"AI credentials", checkCredentials},
	{"Interpretation round trip", checkInterpretation},
	{"Audio output", checkPlayback},
	{"Dictation", checkDictation},
	{"Clipboard", checkClipboard},
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("dreamy doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	s := &session{
		reader: bufio.NewReader(os.Stdin),
		newClient: func() (ai.Client, error) {
			return ai.New("", ai.NewHTTPClient(nil))
		},
	}
	host, err := audio.NewHost()
	if err != nil {
		fmt.Printf("Warning: cannot connect to audio: %v\n", err)
	} else {
		s.host = host
		defer host.Close()
	}

	allPass := runChecks(s, checks)

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func runChecks(s *session, list []check) bool {
	allPass := true
	for i, c := range list {
		fmt.Println()
		fmt.Printf("[%d/%d] %s\n", i+1, len(list), c.title)
		if !c.run(s) {
			allPass = false
		}
	}
	return allPass
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

// confirm asks a yes/no question. Anything but y/yes is a no.
func confirm(r *bufio.Reader, question string) bool {
	fmt.Printf("%s [y/n]: ", question)
	answer, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func checkCredentials(*session) bool {
	var found []string
	if ai.GeminiKey() != "" {
		found = append(found, "gemini")
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		found = append(found, "openai")
	}
	if len(found) == 0 {
		fmt.Println("  FAIL: set GEMINI_API_KEY or OPENAI_API_KEY environment variable")
		return false
	}
	fmt.Printf("  PASS: provider keys found: %s\n", strings.Join(found, ", "))
	if os.Getenv("DEEPGRAM_API_KEY") == "" {
		fmt.Println("  note: DEEPGRAM_API_KEY not set, dictation will be hidden")
	}
	return true
}

func checkInterpretation(s *session) bool {
	if !confirm(s.reader, "Send a short test dream to the provider?") {
		fmt.Println("  SKIP: round trip not requested")
		return true
	}
	client, err := s.newClient()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	start := time.Now()
	text, err := client.Interpret(ctx, testDream)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  interpretation: %d chars in %s\n", len(text), time.Since(start).Round(time.Millisecond))

	start = time.Now()
	speech, err := client.Synthesize(ctx, text)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	buf, err := audio.Decode(speech.Data, audio.RateFromMIME(speech.MIMEType, audio.SpeechSampleRate), audio.SpeechChannels)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  narration: %.1fs of audio in %s\n", buf.Duration().Seconds(), time.Since(start).Round(time.Millisecond))
	s.narration = buf
	fmt.Printf("  PASS: %s answered\n", client.Name())
	return true
}

func checkPlayback(s *session) bool {
	if s.host == nil {
		fmt.Println("  FAIL: no audio host")
		return false
	}
	buf, what := audio.Tone(audio.ToneReady), "a short chime"
	if s.narration != nil {
		buf, what = s.narration, "the narration"
	}

	p := audio.NewPlayer(s.host, buf, nil)
	defer p.Close()
	done, err := p.Play()
	if err != nil {
		fmt.Printf("  FAIL: cannot play: %v\n", err)
		return false
	}
	fmt.Printf("  Playing %s...\n", what)
	select {
	case <-done:
	case <-time.After(buf.Duration() + 5*time.Second):
		fmt.Println("  FAIL: playback never finished")
		return false
	}
	if p.Active() {
		fmt.Println("  FAIL: playback context still open after end")
		return false
	}

	if !confirm(s.reader, fmt.Sprintf("Did you hear %s?", what)) {
		fmt.Println("  FAIL: playback not confirmed")
		return false
	}
	fmt.Println("  PASS: audio output verified by user")
	return true
}

func checkDictation(s *session) bool {
	capability := dictation.Detect(true, s.host, nil)
	rec, ok := capability.Recognizer()
	if !ok {
		fmt.Printf("  SKIP: %s\n", capability.Reason())
		return true
	}

	fmt.Printf("Press Enter and speak for %d seconds...", int(listenFor.Seconds()))
	s.reader.ReadString('\n')

	sess, err := rec.Start(context.Background())
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	text := collect(sess, listenFor)
	if err := sess.Err(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)
	if !confirm(s.reader, "Is this correct?") {
		fmt.Println("  FAIL: dictation not confirmed")
		return false
	}
	fmt.Println("  PASS: dictation verified by user")
	return true
}

// collect keeps the newest transcript until d elapses or the session ends,
// then stops the session and drains what it flushed.
func collect(sess dictation.Session, d time.Duration) string {
	var text string
	timer := time.NewTimer(d)
	defer timer.Stop()

	fmt.Print("  Listening")
	for {
		select {
		case t, ok := <-sess.Updates():
			if !ok {
				sess.Stop()
				fmt.Println(" done")
				return text
			}
			text = t
			fmt.Print(".")
		case <-timer.C:
			go sess.Stop()
			for t := range sess.Updates() {
				text = t
			}
			<-sess.Done()
			fmt.Println(" done")
			return text
		}
	}
}
