package editor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

const defaultNoticeLimit = 64

// Notice is a transient user-facing message.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Notifier receives user-facing confirmations and failures.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// Notices is a bounded per-session notice log; the oldest entries fall off.
type Notices struct {
	log   zerolog.Logger
	mu    sync.Mutex
	items []Notice
	limit int
	now   func() time.Time
}

func NewNotices(log zerolog.Logger, limit int) *Notices {
	if limit <= 0 {
		limit = defaultNoticeLimit
	}
	return &Notices{log: log, limit: limit, now: time.Now}
}

func (n *Notices) Info(msg string)    { n.add(NoticeInfo, msg) }
func (n *Notices) Success(msg string) { n.add(NoticeSuccess, msg) }
func (n *Notices) Error(msg string)   { n.add(NoticeError, msg) }

func (n *Notices) add(level NoticeLevel, msg string) {
	n.mu.Lock()
	n.items = append(n.items, Notice{Level: level, Message: msg, At: n.now()})
	if over := len(n.items) - n.limit; over > 0 {
		n.items = append(n.items[:0:0], n.items[over:]...)
	}
	n.mu.Unlock()

	ev := n.log.Info()
	if level == NoticeError {
		ev = n.log.Warn()
	}
	ev.Str("level", string(level)).Str("message", msg).Msg("notice")
}

// Drain returns and clears the pending notices.
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.items
	n.items = nil
	if out == nil {
		return []Notice{}
	}
	return out
}
