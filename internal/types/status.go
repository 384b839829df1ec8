package types

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusAwaitingCrypto Status = "awaiting_crypto"
	StatusCryptoReceived Status = "crypto_received"
	StatusProcessing     Status = "processing"
	StatusOnHold         Status = "on_hold"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
	StatusExpired        Status = "expired"
)

type StatusGroup int

const (
	GroupUnknown StatusGroup = iota
	GroupPending
	GroupReview
	GroupSuccess
	GroupFailure
)

func (g StatusGroup) String() string {
	switch g {
	case GroupPending:
		return "pending"
	case GroupReview:
		return "in_review"
	case GroupSuccess:
		return "success"
	case GroupFailure:
		return "failure"
	default:
		return "unknown"
	}
}

var knownStatuses = []Status{
	StatusPending,
	StatusAwaitingCrypto,
	StatusCryptoReceived,
	StatusProcessing,
	StatusOnHold,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
	StatusExpired,
}

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// KnownStatuses lists the statuses the console offers for selection.
func KnownStatuses() []Status {
	return append([]Status{}, knownStatuses...)
}

// ParseStatus normalizes raw input. Unknown values are kept verbatim so newer
// backend statuses survive a round trip.
func ParseStatus(raw string) Status {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return Status(normalized)
}

func (s Status) Known() bool {
	for _, known := range knownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) Group() StatusGroup {
	switch s {
	case StatusPending, StatusAwaitingCrypto, StatusCryptoReceived:
		return GroupPending
	case StatusProcessing, StatusOnHold:
		return GroupReview
	case StatusCompleted:
		return GroupSuccess
	case StatusFailed, StatusCancelled, StatusExpired:
		return GroupFailure
	default:
		return GroupUnknown
	}
}

func (s Status) IsPendingEquivalent() bool {
	return s.Group() == GroupPending
}

func (s Status) IsTerminal() bool {
	group := s.Group()
	return group == GroupSuccess || group == GroupFailure
}

func (s Status) Label() string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(string(s), "_", " ")
}

// ValidateTransition is a client-side sanity check before asking the backend
// for a status change. The backend stays the authority; this only catches
// requests that can never succeed.
func ValidateTransition(from, to Status) error {
	if !to.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	if from == "" || !from.Known() || from == to {
		return nil
	}
	switch from.Group() {
	case GroupSuccess:
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, from)
	case GroupFailure:
		if to.Group() != GroupPending {
			return fmt.Errorf("%w: %s can only be reopened as pending", ErrInvalidTransition, from)
		}
	}
	return nil
}
