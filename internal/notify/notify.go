// Package notify is the user-facing notification surface. Notifications
// are fire-and-forget: the core never consumes a return value and a
// failing notifier must never affect the repair loop.
package notify

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Notifier delivers user-visible notifications.
type Notifier interface {
	Notify(level Level, title, message string)
}

// Console writes notifications to stdout with severity coloring.
type Console struct {
	mu sync.Mutex
}

// NewConsole creates a console notifier.
func NewConsole() *Console {
	return &Console{}
}

var (
	infoColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
)

// Notify prints one notification line.
func (c *Console) Notify(level Level, title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var paint *color.Color
	switch level {
	case LevelError:
		paint = errorColor
	case LevelWarning:
		paint = warnColor
	default:
		paint = infoColor
	}

	paint.Printf("[%s] %s", level, title)
	fmt.Printf(": %s\n", message)
}

// Recorded is one captured notification.
type Recorded struct {
	Level   Level
	Title   string
	Message string
}

// Recorder captures notifications for tests.
type Recorder struct {
	mu       sync.Mutex
	recorded []Recorded
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records the notification.
func (r *Recorder) Notify(level Level, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, Recorded{Level: level, Title: title, Message: message})
}

// All returns a copy of everything recorded so far.
func (r *Recorder) All() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.recorded))
	copy(out, r.recorded)
	return out
}
