// Package notify delivers user-facing notices.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/invoicer/internal/interfaces"
)

// LogNotifier writes notices through the application logger
type LogNotifier struct {
	logger arbor.ILogger
}

var _ interfaces.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger arbor.ILogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(notice interfaces.Notice) {
	switch notice.Level {
	case interfaces.NoticeError:
		if notice.Err != nil {
			n.logger.Error().Err(notice.Err).Msg(notice.Message)
			return
		}
		n.logger.Error().Msg(notice.Message)
	default:
		n.logger.Info().Str("level", string(notice.Level)).Msg(notice.Message)
	}
}

// WriterNotifier prints notices as single lines, e.g. to the terminal
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(notice interfaces.Notice) {
	prefix := "info"
	switch notice.Level {
	case interfaces.NoticeError:
		prefix = "error"
	case interfaces.NoticeSuccess:
		prefix = "ok"
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", prefix, notice.Message)
}

// Recorder keeps every notice it receives
type Recorder struct {
	mu      sync.Mutex
	notices []interfaces.Notice
}

func (r *Recorder) Notify(notice interfaces.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

// Notices returns a copy of the recorded notices
func (r *Recorder) Notices() []interfaces.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.Notice(nil), r.notices...)
}

// Count returns how many notices of level were recorded
func (r *Recorder) Count(level interfaces.NoticeLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.notices {
		if n.Level == level {
			count++
		}
	}
	return count
}

// Multi fans a notice out to several notifiers
type Multi []interfaces.Notifier

func (m Multi) Notify(notice interfaces.Notice) {
	for _, n := range m {
		if n != nil {
			n.Notify(notice)
		}
	}
}
