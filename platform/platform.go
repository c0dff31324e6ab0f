package platform

import (
	"context"
	"errors"
	"sync"

	"markestedt/snapkeys/keyset"
)

// ErrNoImage is returned by ReadImage when the clipboard holds no image.
var ErrNoImage = errors.New("clipboard has no image")

// KeySource provides global key-down events and instantaneous key state.
// Handlers run on their own goroutine so the OS hook keeps pumping
// events while a handler polls IsPressed.
type KeySource interface {
	OnKeyDown(key keyset.Key, fn func())
	IsPressed(key keyset.Key) bool
	// Run installs the hook and dispatches events until ctx is done.
	Run(ctx context.Context) error
}

// Clipboard exchanges images with the system clipboard as opaque bytes.
type Clipboard interface {
	ReadImage() ([]byte, error)
	WriteImage(img []byte) error
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// keyHandlers is the OnKeyDown registry shared by the key sources.
type keyHandlers struct {
	mu sync.Mutex
	fn map[keyset.Key][]func()
}

func (h *keyHandlers) add(key keyset.Key, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fn == nil {
		h.fn = make(map[keyset.Key][]func())
	}
	h.fn[key] = append(h.fn[key], fn)
}

// dispatch starts every handler registered for key and reports how
// many were started.
func (h *keyHandlers) dispatch(key keyset.Key) int {
	h.mu.Lock()
	fns := h.fn[key]
	h.mu.Unlock()

	for _, fn := range fns {
		go fn()
	}
	return len(fns)
}
