package app

import (
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"payadmin/internal/notify"
	"payadmin/internal/types"
)

const (
	toastDuration   = 4 * time.Second
	maxQueuedToasts = 8
)

type queuedToast struct {
	level   types.NoticeLevel
	message string
}

// showNotice queues a notice behind the toast currently on screen.
func (m *Model) showNotice(notice notify.Notice) {
	m.enqueueToast(notice.Level, notice.Text())
}

func (m *Model) showInfoToast(message string) {
	m.showToast(types.NoticeInfo, message)
}

func (m *Model) showErrorToast(message string) {
	m.showToast(types.NoticeError, message)
}

func (m *Model) showToast(level types.NoticeLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	m.toastText = message
	m.toastLevel = level
	m.toastUntil = m.now().Add(toastDuration)
}

func (m *Model) clearToast() {
	m.toastText = ""
	m.toastLevel = types.NoticeInfo
	m.toastUntil = time.Time{}
}

func (m *Model) enqueueToast(level types.NoticeLevel, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if len(m.queuedToasts) >= maxQueuedToasts {
		m.queuedToasts = m.queuedToasts[1:]
	}
	m.queuedToasts = append(m.queuedToasts, queuedToast{level: level, message: message})
	m.maybeShowNextToast(m.now())
}

func (m *Model) maybeShowNextToast(at time.Time) {
	if m.toastActive(at) {
		return
	}
	if len(m.queuedToasts) == 0 {
		if m.toastText != "" {
			m.clearToast()
		}
		return
	}
	next := m.queuedToasts[0]
	m.queuedToasts = m.queuedToasts[1:]
	m.showToast(next.level, next.message)
}

func (m *Model) toastActive(at time.Time) bool {
	if strings.TrimSpace(m.toastText) == "" {
		return false
	}
	if m.toastUntil.IsZero() {
		return true
	}
	if at.IsZero() {
		at = m.now()
	}
	return at.Before(m.toastUntil)
}

func (m *Model) toastLine(width int) string {
	if !m.toastActive(m.now()) || width <= 0 {
		return ""
	}
	maxTextWidth := max(1, width-4)
	text := truncateToWidth(m.toastText, maxTextWidth)
	pill := m.toastStyle().Render(" " + text + " ")
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, pill)
}

func (m *Model) toastStyle() lipgloss.Style {
	switch m.toastLevel {
	case types.NoticeSuccess:
		return toastSuccessStyle
	case types.NoticeWarning:
		return toastWarningStyle
	case types.NoticeError:
		return toastErrorStyle
	default:
		return toastInfoStyle
	}
}
