package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"ticketnepal/internal/models"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length of QR images sent to customers.
const DefaultSize = 400

// QRGenerator renders ticket and group codes as PNG images. Codes are
// encoded with high error correction so that a partly damaged print
// still scans.
type QRGenerator struct {
	level qrcode.RecoveryLevel
}

func NewQRGenerator() *QRGenerator {
	return &QRGenerator{level: qrcode.High}
}

// Encode renders payload into a width x height PNG. The symbol is square,
// scaled to the shorter edge and centered on a white background.
func (q *QRGenerator) Encode(payload string, width, height int) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("%w: empty QR payload", models.ErrInvalidInput)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: QR size %dx%d", models.ErrInvalidInput, width, height)
	}

	code, err := qrcode.New(payload, q.level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	side := min(width, height)
	symbol := code.Image(side)

	canvas := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	offset := image.Pt((width-symbol.Bounds().Dx())/2, (height-symbol.Bounds().Dy())/2)
	draw.Draw(canvas, symbol.Bounds().Add(offset), symbol, symbol.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeGroup renders the code shared by every ticket bought together.
func (q *QRGenerator) EncodeGroup(groupID string, width, height int) ([]byte, error) {
	return q.Encode(groupID, width, height)
}
