package systray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 32

// Icon renders the tray icon: a key cap with a clipboard stripe. Windows
// gets the PNG wrapped in an ICO container.
func Icon() []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	body := color.RGBA{R: 0x2d, G: 0x6c, B: 0xdf, A: 0xff}
	stripe := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	for y := 2; y < iconSize-2; y++ {
		for x := 2; x < iconSize-2; x++ {
			// Clip the corners for a rounded look.
			if (x < 4 || x >= iconSize-4) && (y < 4 || y >= iconSize-4) {
				continue
			}
			img.Set(x, y, body)
		}
	}
	for y := 8; y < 12; y++ {
		for x := 10; x < iconSize-10; x++ {
			img.Set(x, y, stripe)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), iconSize)
	}
	return buf.Bytes()
}

// wrapICO embeds one PNG image in an ICO file.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // reserved
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // type: icon
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // image count

	// ICONDIRENTRY
	buf.WriteByte(byte(size))
	buf.WriteByte(byte(size))
	buf.WriteByte(0) // palette
	buf.WriteByte(0) // reserved
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))

	buf.Write(pngData)
	return buf.Bytes()
}
