//go:build !windows

package platform

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// ImageClipboard exchanges PNG images through golang.design/x/clipboard.
type ImageClipboard struct {
	once    sync.Once
	initErr error
}

// NewClipboard creates the clipboard. The native backend is initialised
// on first use.
func NewClipboard() Clipboard {
	return &ImageClipboard{}
}

func (c *ImageClipboard) init() error {
	c.once.Do(func() {
		c.initErr = clipboard.Init()
	})
	if c.initErr != nil {
		return fmt.Errorf("clipboard unavailable: %w", c.initErr)
	}
	return nil
}

func (c *ImageClipboard) ReadImage() ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	img := clipboard.Read(clipboard.FmtImage)
	if len(img) == 0 {
		return nil, ErrNoImage
	}
	return img, nil
}

func (c *ImageClipboard) WriteImage(img []byte) error {
	if err := c.init(); err != nil {
		return err
	}
	clipboard.Write(clipboard.FmtImage, img)
	return nil
}
