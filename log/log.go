package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	JournalFile     = "dream_log.txt"
	CrashFile       = "crash_log.txt"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	journalFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

// Metrics describes one completed interpretation attempt.
type Metrics struct {
	AttemptID   string
	Provider    string
	InterpretMs float64
	SynthMs     float64
	DecodeMs    float64
	TotalMs     float64
	AudioS      float64
	Chars       int
	AudioKB     float64
}

// HTTPMetrics mirrors the timings the traced transport records per request.
type HTTPMetrics struct {
	Host       string
	Path       string
	Status     int
	DNSMs      float64
	TCPMs      float64
	TLSMs      float64
	TTFBMs     float64
	DownloadMs float64
	TotalMs    float64
	ConnReused bool
	TLSProto   string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: DREAMY_LOG_PATH environment variable
	if envPath := os.Getenv("DREAMY_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, DiagnosticsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	journalFile, err = os.OpenFile(filepath.Join(dir, JournalFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady = false
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if journalFile != nil {
		journalFile.Close()
		journalFile = nil
	}
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(provider string, dictation, muted bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Bool("dictation", dictation).
		Bool("muted", muted).
		Msg("session_start")
}

func SessionEnd(attempts int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("attempts", attempts).
		Msg("session_end")
}

func ViewChange(from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Msg("view")
}

func AttemptStart(id, provider string, chars int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("attempt", id).
		Str("provider", provider).
		Int("dream_chars", chars).
		Msg("interpret_start")
}

// AttemptFailed records why an attempt fell back to the input view. category
// is one of interpretation, speech or decode. status is the upstream HTTP
// code, zero when the failure never reached a response.
func AttemptFailed(id, category string, status int, upstream string, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Error().
		Str("attempt", id).
		Str("category", category)
	if status != 0 {
		ev = ev.Int("status", status).Str("upstream", upstream)
	}
	ev.Err(err).Msg("interpret_failed")
}

func InterpretationMetrics(m Metrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("attempt", m.AttemptID).
		Str("provider", m.Provider).
		Float64("interpret_ms", m.InterpretMs).
		Float64("synth_ms", m.SynthMs).
		Float64("decode_ms", m.DecodeMs).
		Float64("total_ms", m.TotalMs).
		Float64("audio_s", m.AudioS).
		Float64("audio_kb", m.AudioKB).
		Int("chars", m.Chars).
		Msg("interpretation")
}

func HTTP(m HTTPMetrics) {
	if !logReady {
		return
	}
	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	ev := diagLog.Info().
		Str("host", m.Host).
		Str("path", m.Path).
		Int("status", m.Status).
		Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Float64("dns_ms", m.DNSMs).
		Float64("tcp_ms", m.TCPMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("download_ms", m.DownloadMs).
		Float64("total_ms", m.TotalMs).
		Msg("http")
}

func Playback(state string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("state", state).Msg("playback")
}

func DictationStart(provider, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("provider", provider).
		Str("device", device).
		Msg("dictation_start")
}

func DictationStop(results, chars int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("results", results).
		Int("chars", chars).
		Msg("dictation_stop")
}

func DictationError(err error) {
	if !logReady {
		return
	}
	diagLog.Warn().Err(err).Msg("dictation_error")
}

// Dream appends an entry to the journal. Newlines are flattened so each
// entry stays on one line.
func Dream(id, dream, interpretation string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || journalFile == nil {
		return
	}
	flat := strings.NewReplacer("\r\n", " / ", "\n", " / ", "\t", " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, id,
		flat.Replace(dream), flat.Replace(interpretation))
	journalFile.WriteString(line)
}
