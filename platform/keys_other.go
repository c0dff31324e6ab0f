//go:build !windows

package platform

import (
	"context"
	"errors"
	"sync"

	hook "github.com/robotn/gohook"

	"markestedt/snapkeys/keyset"
)

// hookCodes maps uiohook key codes to keyset keys.
var hookCodes = func() map[uint16]keyset.Key {
	m := map[uint16]keyset.Key{
		hook.Keycode["ctrl"]:  keyset.LControl,
		hook.Keycode["shift"]: keyset.LShift,
	}
	for k := keyset.KeyA; k <= keyset.KeyZ; k++ {
		name := string(rune('a' + (k - keyset.KeyA)))
		m[hook.Keycode[name]] = k
	}
	return m
}()

// HookKeys implements KeySource on top of the gohook event stream. The
// hook only reports transitions, so pressed state is tracked from them.
type HookKeys struct {
	handlers keyHandlers

	mu   sync.Mutex
	down map[keyset.Key]bool
}

// NewKeySource creates the gohook key source.
func NewKeySource() KeySource {
	return &HookKeys{down: make(map[keyset.Key]bool)}
}

func (k *HookKeys) OnKeyDown(key keyset.Key, fn func()) {
	k.handlers.add(key, fn)
}

func (k *HookKeys) IsPressed(key keyset.Key) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[key]
}

// Run starts the hook and consumes its events until ctx is done.
func (k *HookKeys) Run(ctx context.Context) error {
	events := hook.Start()
	defer hook.End()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("key hook stopped")
			}
			k.handle(ev.Kind, ev.Keycode)
		}
	}
}

// handle applies one event. uiohook reports a physical press as KeyHold
// (repeated while held) and KeyDown is the typed-character event.
func (k *HookKeys) handle(kind uint8, code uint16) {
	key, ok := hookCodes[code]
	if !ok {
		return
	}
	switch kind {
	case hook.KeyHold:
		k.mu.Lock()
		k.down[key] = true
		k.mu.Unlock()
		k.handlers.dispatch(key)
	case hook.KeyUp:
		k.mu.Lock()
		delete(k.down, key)
		k.mu.Unlock()
	}
}
