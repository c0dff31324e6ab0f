package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"markestedt/snapkeys/audio"
	"markestedt/snapkeys/binds"
	"markestedt/snapkeys/combo"
	"markestedt/snapkeys/config"
	"markestedt/snapkeys/logging"
	"markestedt/snapkeys/platform"
	"markestedt/snapkeys/storage"
	"markestedt/snapkeys/web"
)

var logger = logging.For("agent")

// Agent wires the key source, clipboard and binding store to the combo
// engine, and fans finished combos out to history, dashboard and feedback.
type Agent struct {
	cfgPath string
	cfg     *config.Config

	store    *binds.Store
	location string
	keys     platform.KeySource
	clip     platform.Clipboard
	notifier platform.Notifier
	player   *audio.Player
	db       *storage.DB
	web      *web.Server
	engine   *combo.Engine

	soundOn  atomic.Bool
	notifyOn atomic.Bool

	mu        sync.Mutex
	observers []combo.Observer

	shutdownOnce sync.Once
}

// NewAgent creates a new agent instance
func NewAgent(cfgPath string, cfg *config.Config) (*Agent, error) {
	persister, err := binds.OpenPersister(cfg.Bindings.Backend, cfg.BindingsPath(), false)
	if err != nil {
		// Run without persistence rather than exit; the file is left as is.
		persister = binds.Unavailable(cfg.BindingsPath(), err)
	}

	a := &Agent{
		cfgPath:  cfgPath,
		cfg:      cfg,
		store:    binds.Open(persister),
		location: persister.Location(),
		keys:     platform.NewKeySource(),
		clip:     platform.NewClipboard(),
		notifier: platform.NewNotifier("SnapKeys"),
	}

	if cfg.History.Enabled {
		db, err := storage.Open(cfg.HistoryPath())
		if err != nil {
			logger.Warn("History disabled", "error", err)
		} else {
			a.db = db
		}
	}

	if cfg.Feedback.Sound {
		player, err := audio.NewPlayer()
		if err != nil {
			logger.Warn("Sound cues disabled", "error", err)
		} else {
			a.player = player
		}
	}
	a.soundOn.Store(cfg.Feedback.Sound)
	a.notifyOn.Store(cfg.Feedback.Notify)

	a.engine = combo.New(a.keys, a.clip, a.store, combo.WithObserver(a.observe))

	if cfg.Web.Enabled {
		a.web = web.NewServer(a.store, a.db, a.engine, cfg.Web.Port)
	}

	return a, nil
}

// DashboardURL is empty when the dashboard is disabled.
func (a *Agent) DashboardURL() string {
	if a.web == nil {
		return ""
	}
	return a.web.URL()
}

// Observe registers an extra observer for finished combos.
func (a *Agent) Observe(o combo.Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Run listens for combos until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.engine.Bind(a.keys)

	if a.cfgPath != "" {
		if err := config.Watch(ctx, a.cfgPath, a.applyConfig); err != nil {
			logger.Warn("Config reload disabled", "error", err)
		}
	}

	if a.web != nil {
		go func() {
			if err := a.web.Start(ctx); err != nil {
				logger.Error("Web server error", "error", err)
			}
		}()
	}

	logger.Info("SnapKeys started",
		"bindings", a.store.Len(),
		"location", a.location,
		"data", a.cfg.DataDir(),
		"record", "LCtrl+LShift+J, letter",
		"playback", "LCtrl+J, letter",
	)

	if err := a.keys.Run(ctx); err != nil {
		return fmt.Errorf("key source stopped: %w", err)
	}
	return nil
}

// Shutdown saves the bindings one last time and releases resources. It
// is safe to call more than once.
func (a *Agent) Shutdown() {
	a.shutdownOnce.Do(func() {
		if err := a.store.Close(); err != nil {
			logger.Error("Couldn't save bindings", "error", err)
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				logger.Warn("Failed to close history", "error", err)
			}
		}
		if a.player != nil {
			a.player.Close()
		}
	})
}

// applyConfig picks up settings that can change without a restart.
func (a *Agent) applyConfig(cfg *config.Config) {
	if lvl := logging.ParseLevel(cfg.Log.Level); lvl != logging.Level() {
		logging.SetLevel(lvl)
		logger.Info("Log level changed", "level", lvl)
	}
	a.soundOn.Store(cfg.Feedback.Sound)
	a.notifyOn.Store(cfg.Feedback.Notify)

	if cfg.Bindings != a.cfg.Bindings || cfg.Web != a.cfg.Web || cfg.History != a.cfg.History {
		logger.Info("Config reloaded; restart to apply storage and dashboard changes")
		return
	}
	logger.Info("Config reloaded")
}

// observe runs on the engine goroutine after the guard is released.
func (a *Agent) observe(at combo.Attempt) {
	if a.db != nil {
		if err := a.db.SaveAttempt(historyRecord(at)); err != nil {
			logger.Warn("Failed to save history", "attempt", at.ID, "error", err)
		}
	}

	if a.web != nil {
		a.web.BroadcastAttempt(at)
		a.web.BroadcastStatus("idle")
	}

	a.feedback(at)

	a.mu.Lock()
	observers := append([]combo.Observer(nil), a.observers...)
	a.mu.Unlock()
	for _, o := range observers {
		o(at)
	}
}

func (a *Agent) feedback(at combo.Attempt) {
	if a.player != nil && a.soundOn.Load() {
		if tone, ok := cueFor(at); ok {
			go func() {
				if err := a.player.Play(tone); err != nil {
					logger.Debug("Sound cue failed", "error", err)
				}
			}()
		}
	}

	if a.notifyOn.Load() {
		if title, body, ok := describe(at); ok {
			go func() {
				if err := a.notifier.Notify(title, body); err != nil {
					logger.Debug("Notification failed", "error", err)
				}
			}()
		}
	}
}

func cueFor(at combo.Attempt) (audio.Tone, bool) {
	switch {
	case at.Succeeded() && at.Mode == combo.ModeRecord:
		return audio.ToneRecord, true
	case at.Succeeded():
		return audio.TonePlayback, true
	case at.Status == combo.StatusFailed:
		return audio.ToneFailed, true
	}
	return audio.Tone{}, false
}

// describe returns notification text. Timeouts stay silent.
func describe(at combo.Attempt) (title, body string, ok bool) {
	switch at.Status {
	case combo.StatusRecorded:
		body = fmt.Sprintf("Image saved to %s (%s)", at.Key, humanize.Bytes(uint64(at.Size)))
		if at.Err != nil {
			body += ", but the bindings file could not be written"
		}
		return "Image recorded", body, true
	case combo.StatusPlayed:
		return "Clipboard set", fmt.Sprintf("Clipboard set to %s image", at.Key), true
	case combo.StatusFailed:
		body = "unknown error"
		if at.Err != nil {
			body = at.Err.Error()
		}
		return "SnapKeys " + at.Mode.String() + " failed", body, true
	}
	return "", "", false
}

func historyRecord(at combo.Attempt) *storage.Attempt {
	rec := &storage.Attempt{
		ID:         at.ID,
		Started:    at.Started,
		DurationMs: at.Duration.Milliseconds(),
		Mode:       at.Mode.String(),
		Status:     at.Status.String(),
		BlobSize:   at.Size,
	}
	if at.Key != 0 {
		rec.Key = at.Key.String()
	}
	if at.Err != nil {
		rec.ErrorMessage = at.Err.Error()
	}
	return rec
}
