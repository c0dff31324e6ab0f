//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"markestedt/snapkeys/keyset"
)

var (
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	peekMessage         = user32.NewProc("PeekMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmSyskeydown = 0x0104
	wmQuit       = 0x0012
	pmNoRemove   = 0x0000
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       struct{ x, y int32 }
	lPrivate uint32
}

// WindowsKeys implements KeySource with a low-level keyboard hook for
// events and GetAsyncKeyState for polling.
type WindowsKeys struct {
	handlers keyHandlers
}

// NewKeySource creates the Windows key source.
func NewKeySource() KeySource {
	return &WindowsKeys{}
}

// OnKeyDown registers fn for down transitions of key, including the
// auto-repeat downs Windows sends while the key is held.
func (k *WindowsKeys) OnKeyDown(key keyset.Key, fn func()) {
	k.handlers.add(key, fn)
}

// IsPressed reports whether key is physically down right now.
func (k *WindowsKeys) IsPressed(key keyset.Key) bool {
	r, _, _ := getAsyncKeyState.Call(uintptr(key))
	return r&0x8000 != 0
}

// Run installs the hook on a locked OS thread and pumps its message
// queue until ctx is done.
func (k *WindowsKeys) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hookProc := func(nCode, wParam, lParam uintptr) uintptr {
		if int32(nCode) >= 0 && (wParam == wmKeydown || wParam == wmSyskeydown) {
			info := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			// GetAsyncKeyState only sees this press after the hook
			// returns, so a handler's first IsPressed may still read up.
			k.handlers.dispatch(keyset.Key(info.vkCode))
		}
		r, _, _ := callNextHookEx.Call(0, nCode, wParam, lParam)
		return r
	}

	hook, _, err := setWindowsHookEx.Call(whKeyboardLL, windows.NewCallback(hookProc), 0, 0)
	if hook == 0 {
		return fmt.Errorf("SetWindowsHookEx failed: %w", err)
	}
	defer unhookWindowsHookEx.Call(hook)

	// Force creation of this thread's message queue so WM_QUIT can be posted.
	var m msg
	peekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)

	threadID := windows.GetCurrentThreadId()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			postThreadMessage.Call(uintptr(threadID), wmQuit, 0, 0)
		case <-done:
		}
	}()

	for {
		r, _, err := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case -1:
			return fmt.Errorf("GetMessage failed: %w", err)
		case 0:
			return nil
		}
	}
}
