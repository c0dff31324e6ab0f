package combo

import (
	"time"

	"markestedt/snapkeys/keyset"
)

// Mode is the operation a combo selected.
type Mode int

const (
	ModeNone Mode = iota
	ModeRecord
	ModePlayback
)

func (m Mode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModePlayback:
		return "playback"
	default:
		return "none"
	}
}

// Status is how an activation ended.
type Status int

const (
	// StatusBusy: another activation held the guard; nothing ran.
	StatusBusy Status = iota
	// StatusStaleTrigger: the trigger was already down when armed.
	StatusStaleTrigger
	// StatusReleased: the modifier was released before the trigger.
	StatusReleased
	// StatusTimeout: no eligible letter within the scan window.
	StatusTimeout
	StatusRecorded
	StatusPlayed
	// StatusFailed: the clipboard read or write failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusBusy:
		return "busy"
	case StatusStaleTrigger:
		return "stale-trigger"
	case StatusReleased:
		return "released"
	case StatusTimeout:
		return "timeout"
	case StatusRecorded:
		return "recorded"
	case StatusPlayed:
		return "played"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt describes one engine activation.
type Attempt struct {
	ID     string
	Mode   Mode
	Status Status
	// Key and Size are set once a letter was selected.
	Key  keyset.Key
	Size int
	// Err holds the clipboard error for StatusFailed, or the save error
	// for a StatusRecorded attempt whose bindings could not be written.
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Succeeded reports whether the attempt recorded or played an image.
func (a Attempt) Succeeded() bool {
	return a.Status == StatusRecorded || a.Status == StatusPlayed
}
