// Package grid splits one composite generated image into an ordered set of
// equally sized panels.
package grid

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"
)

// Layout names a supported panel arrangement.
type Layout string

const (
	Layout2x2 Layout = "2x2"
	Layout3x3 Layout = "3x3"
)

// ErrDimension marks a composite whose dimensions are unusable: missing,
// zero, or smaller than the grid. This indicates a provider contract
// violation, not transience, so it is never retried.
var ErrDimension = errors.New("grid: unusable image dimensions")

// DimensionError carries the observed dimensions for diagnostics.
type DimensionError struct {
	Width  int
	Height int
	Layout Layout
	Reason string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("grid: %s (%dx%d, layout %s)", e.Reason, e.Width, e.Height, e.Layout)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimension
}

// Panel is one rectangular sub-image of a composite, re-encoded as a
// standalone PNG. Index is row-major: index = row*cols + col.
type Panel struct {
	Index    int
	Row      int
	Col      int
	Width    int
	Height   int
	Data     []byte
	MIMEType string
}

// Dims returns the rows and columns of a layout.
func (l Layout) Dims() (rows, cols int, err error) {
	switch l {
	case Layout2x2:
		return 2, 2, nil
	case Layout3x3:
		return 3, 3, nil
	default:
		return 0, 0, fmt.Errorf("grid: unsupported layout %q", l)
	}
}

// PanelCount returns rows*cols, or 0 for an unsupported layout.
func (l Layout) PanelCount() int {
	rows, cols, err := l.Dims()
	if err != nil {
		return 0
	}
	return rows * cols
}

// ParseLayout validates a wire-format layout string.
func ParseLayout(s string) (Layout, error) {
	l := Layout(s)
	if _, _, err := l.Dims(); err != nil {
		return "", err
	}
	return l, nil
}

// Decompose splits the composite into rows*cols panels of
// floor(W/cols) x floor(H/rows) pixels each, in row-major order. Remainder
// pixels from non-exact division stay with the right and bottom edges and
// are discarded; the loss is at most cols-1 and rows-1 pixels respectively.
func Decompose(data []byte, layout Layout) ([]Panel, error) {
	rows, cols, err := layout.Dims()
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DimensionError{Layout: layout, Reason: "undecodable image: " + err.Error()}
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, &DimensionError{Width: w, Height: h, Layout: layout, Reason: "zero dimension"}
	}

	panelW, panelH := w/cols, h/rows
	if panelW == 0 || panelH == 0 {
		return nil, &DimensionError{Width: w, Height: h, Layout: layout, Reason: "image smaller than grid"}
	}

	panels := make([]Panel, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			dst := image.NewRGBA(image.Rect(0, 0, panelW, panelH))
			origin := image.Pt(bounds.Min.X+col*panelW, bounds.Min.Y+row*panelH)
			draw.Draw(dst, dst.Bounds(), src, origin, draw.Src)

			var buf bytes.Buffer
			if err := png.Encode(&buf, dst); err != nil {
				return nil, fmt.Errorf("grid: encode panel %d: %w", row*cols+col, err)
			}
			panels = append(panels, Panel{
				Index:    row*cols + col,
				Row:      row,
				Col:      col,
				Width:    panelW,
				Height:   panelH,
				Data:     buf.Bytes(),
				MIMEType: "image/png",
			})
		}
	}
	return panels, nil
}
