package platform

import (
	"encoding/binary"
	"fmt"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	biBitfields    = 3
)

// dibToBMP prepends a BITMAPFILEHEADER to a packed DIB (CF_DIB) so the
// result is a complete .bmp file.
func dibToBMP(dib []byte) ([]byte, error) {
	if len(dib) < infoHeaderSize {
		return nil, fmt.Errorf("DIB too short: %d bytes", len(dib))
	}
	headerSize := binary.LittleEndian.Uint32(dib[0:4])
	if headerSize < infoHeaderSize || int(headerSize) > len(dib) {
		return nil, fmt.Errorf("unsupported DIB header size %d", headerSize)
	}
	bitCount := binary.LittleEndian.Uint16(dib[14:16])
	compression := binary.LittleEndian.Uint32(dib[16:20])
	clrUsed := binary.LittleEndian.Uint32(dib[32:36])

	offset := uint32(fileHeaderSize) + headerSize
	if headerSize == infoHeaderSize && compression == biBitfields {
		offset += 12 // three DWORD colour masks
	}
	switch {
	case clrUsed > 0:
		offset += clrUsed * 4
	case bitCount > 0 && bitCount <= 8:
		offset += (1 << bitCount) * 4
	}

	bmp := make([]byte, fileHeaderSize+len(dib))
	bmp[0], bmp[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(bmp[2:6], uint32(len(bmp)))
	binary.LittleEndian.PutUint32(bmp[10:14], offset)
	copy(bmp[fileHeaderSize:], dib)
	return bmp, nil
}

// bmpToDIB strips the BITMAPFILEHEADER from a .bmp file.
func bmpToDIB(bmp []byte) ([]byte, error) {
	if len(bmp) < fileHeaderSize+infoHeaderSize || bmp[0] != 'B' || bmp[1] != 'M' {
		return nil, fmt.Errorf("not a BMP image (%d bytes)", len(bmp))
	}
	return bmp[fileHeaderSize:], nil
}
