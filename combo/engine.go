package combo

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"markestedt/snapkeys/binds"
	"markestedt/snapkeys/keyset"
	"markestedt/snapkeys/logging"
)

var logger = logging.For("combo")

const (
	// PollInterval is the sleep between key polls in every loop.
	PollInterval = 100 * time.Millisecond
	// ScanWindow bounds the record and playback letter scans.
	ScanWindow = 4 * time.Second
)

// KeyState answers instantaneous key polls.
type KeyState interface {
	IsPressed(key keyset.Key) bool
}

// Clipboard exchanges images with the system clipboard.
type Clipboard interface {
	ReadImage() ([]byte, error)
	WriteImage(img []byte) error
}

// Registrar accepts key-down handlers.
type Registrar interface {
	OnKeyDown(key keyset.Key, fn func())
}

// Observer receives every attempt that reached record or playback.
type Observer func(Attempt)

// Engine turns modifier/trigger/letter presses into record and playback
// operations on a binding store. At most one activation runs at a time.
type Engine struct {
	keys  KeyState
	clip  Clipboard
	store *binds.Store

	armed atomic.Bool

	poll      time.Duration
	window    time.Duration
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming overrides the poll interval and scan window.
func WithTiming(poll, window time.Duration) Option {
	return func(e *Engine) {
		e.poll = poll
		e.window = window
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// New creates an engine.
func New(keys KeyState, clip Clipboard, store *binds.Store, opts ...Option) *Engine {
	e := &Engine{
		keys:   keys,
		clip:   clip,
		store:  store,
		poll:   PollInterval,
		window: ScanWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bind registers the engine as the modifier-down handler.
func (e *Engine) Bind(r Registrar) {
	r.OnKeyDown(keyset.Modifier, func() {
		e.HandleModifierDown()
	})
}

// Armed reports whether an activation is in flight.
func (e *Engine) Armed() bool {
	return e.armed.Load()
}

// HandleModifierDown runs one combo attempt. It blocks while the
// modifier is held, plus up to one scan window once the trigger fires.
// A call made while another is in flight returns StatusBusy at once.
func (e *Engine) HandleModifierDown() Attempt {
	if !e.armed.CompareAndSwap(false, true) {
		logger.Debug("Combo already armed, dropping event")
		return Attempt{Status: StatusBusy}
	}

	a := e.activate()
	if a.Mode == ModeNone {
		logger.Debug("Combo ended without trigger", "status", a.Status)
		return a
	}
	for _, o := range e.observers {
		o(a)
	}
	return a
}

// activate holds the guard for its whole duration.
func (e *Engine) activate() Attempt {
	defer e.armed.Store(false)

	a := Attempt{ID: uuid.NewString(), Started: time.Now()}

	if e.keys.IsPressed(keyset.Trigger) {
		a.Status = StatusStaleTrigger
		return a
	}

	// The key source can report the press before the modifier shows as
	// held; give it one poll before treating it as released.
	if !e.keys.IsPressed(keyset.Modifier) {
		time.Sleep(e.poll)
	}

	for {
		if !e.keys.IsPressed(keyset.Modifier) {
			a.Status = StatusReleased
			break
		}
		if e.keys.IsPressed(keyset.Trigger) {
			if e.keys.IsPressed(keyset.Shift) {
				e.record(&a)
			} else {
				e.playback(&a)
			}
			break
		}
		time.Sleep(e.poll)
	}

	a.Duration = time.Since(a.Started)
	return a
}

func (e *Engine) record(a *Attempt) {
	a.Mode = ModeRecord
	log := logger.With("attempt", a.ID)
	log.Debug("Waiting for key to record")

	alphabet := keyset.Alphabet()
	found := e.scan(func() []keyset.Key { return alphabet }, func(key keyset.Key) bool {
		a.Key = key
		img, err := e.clip.ReadImage()
		if err != nil {
			a.Status, a.Err = StatusFailed, err
			log.Error("Failed to get clipboard", "key", key, "error", err)
			return true
		}

		a.Status, a.Size = StatusRecorded, len(img)
		if err := e.store.Record(key, img); err != nil {
			a.Err = err
			log.Error("Couldn't save bindings", "key", key, "error", err)
			return true
		}
		log.Info("Image saved", "key", key, "bytes", len(img))
		return true
	})
	if !found {
		a.Status = StatusTimeout
		log.Debug("No key pressed, record cancelled")
	}
}

func (e *Engine) playback(a *Attempt) {
	a.Mode = ModePlayback
	log := logger.With("attempt", a.ID)
	log.Debug("Waiting for key to play back")

	found := e.scan(e.store.Keys, func(key keyset.Key) bool {
		img, err := e.store.Lookup(key)
		if err != nil {
			log.Warn("Binding vanished during scan", "key", key, "error", err)
			return false
		}

		a.Key, a.Size = key, len(img)
		if err := e.clip.WriteImage(img); err != nil {
			a.Status, a.Err = StatusFailed, err
			log.Error("Couldn't set clipboard", "key", key, "error", err)
			return true
		}
		a.Status = StatusPlayed
		log.Info("Clipboard set", "key", key, "bytes", len(img))
		return true
	})
	if !found {
		a.Status = StatusTimeout
		log.Debug("No bound key pressed, playback cancelled")
	}
}

// scan polls the lowest pressed candidate every poll interval until try
// accepts it or the window elapses. candidates is re-evaluated each tick.
func (e *Engine) scan(candidates func() []keyset.Key, try func(keyset.Key) bool) bool {
	deadline := time.Now().Add(e.window)
	for time.Now().Before(deadline) {
		if key, ok := keyset.FirstPressed(candidates(), e.keys.IsPressed); ok && try(key) {
			return true
		}
		time.Sleep(e.poll)
	}
	return false
}
