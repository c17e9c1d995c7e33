package logutil

import (
    "encoding/json"
    "fmt"
    "io"
    "log"
    "os"
    "strings"
    "sync/atomic"
    "time"
)

// Level orders log severities; messages below the configured level are dropped.
type Level int32

const (
    LevelDebug Level = iota
    LevelInfo
    LevelWarn
    LevelError
)

var (
    jsonMode atomic.Bool
    minLevel atomic.Int32
)

func init() {
    minLevel.Store(int32(LevelError))
    jsonMode.Store(jsonFromEnv(os.Getenv))
}

// jsonFromEnv reports whether VAULT_CHECK_LOG_JSON=1 asks for JSON lines.
// It is the only variable the logger reads.
func jsonFromEnv(getenv func(string) string) bool {
    return getenv("VAULT_CHECK_LOG_JSON") == "1"
}

// ParseLevel maps debug|info|warn|error to a Level.
func ParseLevel(s string) (Level, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "debug":
        return LevelDebug, nil
    case "info":
        return LevelInfo, nil
    case "warn", "warning":
        return LevelWarn, nil
    case "error", "":
        return LevelError, nil
    default:
        return LevelError, fmt.Errorf("unknown log level %q", s)
    }
}

func (l Level) String() string {
    switch l {
    case LevelDebug:
        return "debug"
    case LevelInfo:
        return "info"
    case LevelWarn:
        return "warn"
    default:
        return "error"
    }
}

func SetJSON(enabled bool) { jsonMode.Store(enabled) }
func SetLevel(l Level)     { minLevel.Store(int32(l)) }

// New returns a logger writing to w (stderr when nil). Stdout is reserved
// for the check summary line.
func New(w io.Writer) *log.Logger {
    if w == nil { w = os.Stderr }
    return log.New(w, "", log.LstdFlags)
}

func Debugf(l *log.Logger, f string, args ...any) { logf(l, LevelDebug, f, args...) }
func Infof(l *log.Logger, f string, args ...any)  { logf(l, LevelInfo, f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, LevelWarn, f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, LevelError, f, args...) }

func logf(l *log.Logger, level Level, f string, args ...any) {
    if int32(level) < minLevel.Load() {
        return
    }
    if l == nil { l = New(nil) }
    if jsonMode.Load() {
        evt := map[string]any{
            "ts":    time.Now().UTC().Format(time.RFC3339Nano),
            "level": level.String(),
            "msg":   fmt.Sprintf(f, args...),
        }
        b, _ := json.Marshal(evt)
        log.New(l.Writer(), "", 0).Println(string(b))
        return
    }
    log.New(l.Writer(), strings.ToUpper(level.String())+" ", l.Flags()).Printf(f, args...)
}
