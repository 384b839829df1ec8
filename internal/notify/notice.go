package notify

import (
	"strings"
	"sync"
	"time"

	"payadmin/internal/types"
)

type Notice struct {
	Level   types.NoticeLevel `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Source  string            `json:"source,omitempty"`
	At      time.Time         `json:"at"`
	// EdgeTriggered marks a notice its source only emits on a real state
	// change. Such notices are never deduplicated.
	EdgeTriggered bool `json:"-"`
}

// Edge returns a copy of n marked as edge-triggered.
func (n Notice) Edge() Notice {
	n.EdgeTriggered = true
	return n
}

func (n Notice) Text() string {
	title := strings.TrimSpace(n.Title)
	message := strings.TrimSpace(n.Message)
	switch {
	case title == "":
		return message
	case message == "":
		return title
	default:
		return title + ": " + message
	}
}

// Notifier receives user-facing notices from core components. Implementations
// must not block for long and never report delivery failures back.
type Notifier interface {
	Notify(notice Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(notice Notice) {
	if f != nil {
		f(notice)
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

func Nop() Notifier {
	return nopNotifier{}
}

// Recorder keeps every notice it receives. It backs headless commands and tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice{}, r.notices...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

func Info(source, title, message string) Notice {
	return newNotice(types.NoticeInfo, source, title, message)
}

func Success(source, title, message string) Notice {
	return newNotice(types.NoticeSuccess, source, title, message)
}

func Warning(source, title, message string) Notice {
	return newNotice(types.NoticeWarning, source, title, message)
}

func Error(source, title, message string) Notice {
	return newNotice(types.NoticeError, source, title, message)
}

func newNotice(level types.NoticeLevel, source, title, message string) Notice {
	return Notice{
		Level:   level,
		Title:   title,
		Message: message,
		Source:  source,
		At:      time.Now().UTC(),
	}
}
