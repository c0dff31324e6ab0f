package systray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"runtime"
	"strings"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"windows", "cmd /c start http://localhost:8790"},
		{"darwin", "open http://localhost:8790"},
		{"linux", "xdg-open http://localhost:8790"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := browserCommand(tt.goos, "http://localhost:8790")
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(cmd.Args, " "); got != tt.want {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := browserCommand("plan9", "http://x"); err == nil {
		t.Error("expected an error for an unsupported platform")
	}
}

func TestIcon(t *testing.T) {
	data := Icon()
	if runtime.GOOS == "windows" {
		if binary.LittleEndian.Uint16(data[2:]) != 1 {
			t.Fatal("not an ICO file")
		}
		data = data[22:]
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Errorf("bounds = %v", b)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("corner should be transparent")
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte("\x89PNG....")
	ico := wrapICO(payload, 32)
	if len(ico) != 22+len(payload) {
		t.Fatalf("len = %d", len(ico))
	}
	if got := binary.LittleEndian.Uint32(ico[14:]); got != uint32(len(payload)) {
		t.Errorf("size field = %d", got)
	}
	if got := binary.LittleEndian.Uint32(ico[18:]); got != 22 {
		t.Errorf("offset field = %d", got)
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Error("payload not at offset 22")
	}
}
