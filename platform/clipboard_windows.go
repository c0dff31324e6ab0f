//go:build windows

package platform

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	kernel32         = windows.NewLazySystemDLL("kernel32.dll")
	openClipboard    = user32.NewProc("OpenClipboard")
	closeClipboard   = user32.NewProc("CloseClipboard")
	emptyClipboard   = user32.NewProc("EmptyClipboard")
	getClipboardData = user32.NewProc("GetClipboardData")
	setClipboardData = user32.NewProc("SetClipboardData")
	globalAlloc      = kernel32.NewProc("GlobalAlloc")
	globalFree       = kernel32.NewProc("GlobalFree")
	globalLock       = kernel32.NewProc("GlobalLock")
	globalUnlock     = kernel32.NewProc("GlobalUnlock")
	globalSize       = kernel32.NewProc("GlobalSize")
)

const (
	cfDIB        = 8
	gmemMoveable = 0x0002
)

// WindowsClipboard exchanges images as .bmp bytes over CF_DIB.
type WindowsClipboard struct{}

// NewClipboard creates a new Windows clipboard instance
func NewClipboard() Clipboard {
	return &WindowsClipboard{}
}

// ReadImage returns the clipboard bitmap as a complete .bmp file.
func (c *WindowsClipboard) ReadImage() ([]byte, error) {
	if err := c.open(); err != nil {
		return nil, err
	}
	defer c.close()

	h, _, _ := getClipboardData.Call(cfDIB)
	if h == 0 {
		return nil, ErrNoImage
	}

	size, _, err := globalSize.Call(h)
	if size == 0 {
		return nil, fmt.Errorf("GlobalSize failed: %w", err)
	}
	l, _, err := globalLock.Call(h)
	if l == 0 {
		return nil, fmt.Errorf("GlobalLock failed: %w", err)
	}
	defer globalUnlock.Call(h)

	dib := make([]byte, size)
	copy(dib, unsafe.Slice((*byte)(unsafe.Pointer(l)), size))
	return dibToBMP(dib)
}

// WriteImage places a .bmp file on the clipboard as CF_DIB.
func (c *WindowsClipboard) WriteImage(img []byte) error {
	dib, err := bmpToDIB(img)
	if err != nil {
		return err
	}

	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	emptyClipboard.Call()

	h, _, err := globalAlloc.Call(gmemMoveable, uintptr(len(dib)))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc failed: %w", err)
	}

	l, _, err := globalLock.Call(h)
	if l == 0 {
		globalFree.Call(h)
		return fmt.Errorf("GlobalLock failed: %w", err)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(l)), len(dib)), dib)
	globalUnlock.Call(h)

	// On success the clipboard owns h.
	r, _, err := setClipboardData.Call(cfDIB, h)
	if r == 0 {
		globalFree.Call(h)
		return fmt.Errorf("SetClipboardData failed: %w", err)
	}
	return nil
}

func (c *WindowsClipboard) open() error {
	// Another process may hold the clipboard briefly
	for i := 0; i < 10; i++ {
		r, _, _ := openClipboard.Call(0)
		if r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("failed to open clipboard after retries")
}

func (c *WindowsClipboard) close() {
	closeClipboard.Call()
}
