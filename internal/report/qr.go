package report

import (
	"fmt"
	"image/color"

	"github.com/skip2/go-qrcode"
)

// QRCode renders secret as a PNG QR code of size pixels square.
func QRCode(secret string, size int) ([]byte, error) {
	if size <= 0 {
		size = 400
	}
	q, err := qrcode.New(secret, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.ForegroundColor = color.RGBA{R: 0x3B, G: 0x07, B: 0x64, A: 0xFF}
	q.BackgroundColor = color.White
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
