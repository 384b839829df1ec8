package types

import "strings"

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

func (l NoticeLevel) Rank() int {
	switch l {
	case NoticeInfo:
		return 0
	case NoticeSuccess:
		return 1
	case NoticeWarning:
		return 2
	case NoticeError:
		return 3
	default:
		return -1
	}
}

type NotificationMethod string

const (
	NotificationMethodAuto       NotificationMethod = "auto"
	NotificationMethodToast      NotificationMethod = "toast"
	NotificationMethodLog        NotificationMethod = "log"
	NotificationMethodBell       NotificationMethod = "bell"
	NotificationMethodNotifySend NotificationMethod = "notify-send"
	NotificationMethodTelegram   NotificationMethod = "telegram"
)

type NotificationSettings struct {
	Enabled             bool                 `json:"enabled" toml:"enabled"`
	Methods             []NotificationMethod `json:"methods,omitempty" toml:"methods"`
	MinLevel            NoticeLevel          `json:"min_level,omitempty" toml:"min_level"`
	DedupeWindowSeconds int                  `json:"dedupe_window_seconds,omitempty" toml:"dedupe_window_seconds"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:             true,
		Methods:             []NotificationMethod{NotificationMethodToast, NotificationMethodLog},
		MinLevel:            NoticeInfo,
		DedupeWindowSeconds: 5,
	}
}

func CloneNotificationSettings(in NotificationSettings) NotificationSettings {
	out := in
	if in.Methods != nil {
		out.Methods = append([]NotificationMethod{}, in.Methods...)
	}
	return out
}

func NormalizeNotificationSettings(in NotificationSettings) NotificationSettings {
	out := CloneNotificationSettings(in)
	defaults := DefaultNotificationSettings()
	out.Methods = normalizeNotificationMethods(in.Methods)
	if len(out.Methods) == 0 {
		out.Methods = append([]NotificationMethod{}, defaults.Methods...)
	}
	if level, ok := NormalizeNoticeLevel(string(in.MinLevel)); ok {
		out.MinLevel = level
	} else {
		out.MinLevel = defaults.MinLevel
	}
	if out.DedupeWindowSeconds < 0 {
		out.DedupeWindowSeconds = 0
	}
	return out
}

func normalizeNotificationMethods(values []NotificationMethod) []NotificationMethod {
	if len(values) == 0 {
		return nil
	}
	seen := map[NotificationMethod]struct{}{}
	out := make([]NotificationMethod, 0, len(values))
	for _, value := range values {
		normalized, ok := NormalizeNotificationMethod(string(value))
		if !ok {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func NormalizeNotificationMethod(raw string) (NotificationMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "auto":
		return NotificationMethodAuto, true
	case "toast":
		return NotificationMethodToast, true
	case "log":
		return NotificationMethodLog, true
	case "bell":
		return NotificationMethodBell, true
	case "notify-send", "notify_send", "notifysend":
		return NotificationMethodNotifySend, true
	case "telegram":
		return NotificationMethodTelegram, true
	default:
		return "", false
	}
}

func NormalizeNoticeLevel(raw string) (NoticeLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return NoticeInfo, true
	case "success", "ok":
		return NoticeSuccess, true
	case "warning", "warn":
		return NoticeWarning, true
	case "error", "err":
		return NoticeError, true
	default:
		return "", false
	}
}
