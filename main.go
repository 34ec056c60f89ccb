package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"dreamy/ai"
	"dreamy/audio"
	"dreamy/clipboard"
	"dreamy/content"
	"dreamy/dictation"
	"dreamy/doctor"
	"dreamy/log"
	"dreamy/shutdown"
)

var version = "dev"

var shutdownOnce sync.Once

func main() {
	os.Exit(run())
}

func run() int {
	providerFlag := flag.String("provider", "", "AI provider: gemini or openai (default: whichever key is set, gemini first)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	deviceFlag := flag.String("device", "", "Use named audio output device")
	micFlag := flag.String("mic", "", "Use named microphone for dictation")
	setupFlag := flag.Bool("setup", false, "Select audio output device interactively")
	dictationFlag := flag.Bool("dictation", true, "Offer dictation when DEEPGRAM_API_KEY is set")
	muteFlag := flag.Bool("mute", false, "Never play audio (narration and chimes)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	if *versionFlag {
		fmt.Printf("dreamy %s\n", version)
		return 0
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *doctorFlag {
		return doctor.Run()
	}

	if *testFlag {
		return runTestMode(*providerFlag)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	client, err := ai.New(*providerFlag, ai.NewHTTPClient(logHTTP))
	if err != nil {
		log.Errorf("ai client: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var host audio.Host
	if !*muteFlag || *dictationFlag {
		host, err = audio.NewHost()
		if err != nil {
			log.Warnf("audio host unavailable: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: audio unavailable, narration disabled: %v\n", err)
			host = nil
		}
	}
	if host != nil {
		defer host.Close()
	}

	output := resolveDevice(host, audio.Playback, *deviceFlag, *setupFlag)
	mic := resolveDevice(host, audio.Capture, *micFlag, false)
	capability := dictation.Detect(*dictationFlag, host, mic)
	if !capability.Supported() {
		log.Info("dictation unavailable: " + capability.Reason())
	}

	d := &deps{
		client:    client,
		host:      host,
		device:    output,
		dictation: capability,
		muted:     *muteFlag,
		chimes:    !*muteFlag,
		timings:   defaultTimings,
		pick:      content.Random,
		copy:      clipboard.Copy,
		newID:     uuid.NewString,
	}
	if *muteFlag {
		d.host = nil
	}
	log.SessionStart(client.Name(), capability.Supported(), *muteFlag)

	tuiMu.Lock()
	tuiProgram = tea.NewProgram(newModel(d), tea.WithAltScreen(), tea.WithoutSignalHandler())
	tuiMu.Unlock()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		for range sigChan {
			gracefulShutdown()
		}
	}()

	_, err = tuiProgram.Run()
	shutdown.Stop(sigChan)
	if err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// gracefulShutdown asks the program to tear its views down and exit. A
// second signal while that is in progress exits immediately.
func gracefulShutdown() {
	first := false
	shutdownOnce.Do(func() {
		first = true
		tuiSend(quitMsg{})
	})
	if first {
		return
	}
	log.Close()
	os.Exit(1)
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), log.CrashFile)
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

// resolveDevice maps -device/-mic or the interactive picker to a device.
// nil means the system default.
func resolveDevice(host audio.Host, kind audio.DeviceKind, name string, interactive bool) *audio.DeviceInfo {
	if host == nil {
		return nil
	}
	if name != "" {
		dev, err := audio.FindDevice(host, kind, name)
		if err != nil {
			log.Warnf("device %q: %v", name, err)
			fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
			return nil
		}
		return dev
	}
	if !interactive {
		return nil
	}
	dev, err := audio.SelectDevice(host, kind)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		return nil
	}
	return dev
}

func logHTTP(m *ai.NetworkMetrics) {
	log.HTTP(log.HTTPMetrics{
		Host:       m.Host,
		Path:       m.Path,
		Status:     m.StatusCode,
		DNSMs:      ms(m.DNS),
		TCPMs:      ms(m.TCP),
		TLSMs:      ms(m.TLS),
		TTFBMs:     ms(m.TTFB),
		DownloadMs: ms(m.Download),
		TotalMs:    ms(m.Total),
		ConnReused: m.ConnReused,
		TLSProto:   m.TLSProtocol,
	})
}
