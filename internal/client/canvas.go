package client

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
)

// dataURLPrefix tags snapshot blobs the way a browser canvas export does.
const dataURLPrefix = "data:image/png;base64,"

// ErrNotDataURL indicates a snapshot blob without the expected encoding.
var ErrNotDataURL = errors.New("client: image data is not a png data url")

// Canvas is the in-memory raster a whiteboard session draws on. Pixels
// default to fully transparent; the eraser restores them to transparent
// (destination-out) rather than painting background color.
type Canvas struct {
	img *image.NRGBA
}

// NewCanvas creates a blank (fully transparent) canvas.
func NewCanvas(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		panic("canvas dimensions must be positive")
	}
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, width, height))}
}

// Clear resets every pixel to transparent.
func (c *Canvas) Clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
}

// Stamp paints (or, with erase, clears) a filled circle of the given
// radius centered on p.
func (c *Canvas) Stamp(p image.Point, radius int, col color.NRGBA, erase bool) {
	if radius < 1 {
		radius = 1
	}
	bounds := c.img.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			x, y := p.X+dx, p.Y+dy
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			if erase {
				c.img.SetNRGBA(x, y, color.NRGBA{})
			} else {
				c.img.SetNRGBA(x, y, col)
			}
		}
	}
}

// Line stamps along the segment from a to b so fast pointer moves leave a
// continuous stroke instead of disconnected dots.
func (c *Canvas) Line(a, b image.Point, radius int, col color.NRGBA, erase bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := absInt(dx)
	if absInt(dy) > steps {
		steps = absInt(dy)
	}
	if steps == 0 {
		c.Stamp(b, radius, col, erase)
		return
	}
	for i := 0; i <= steps; i++ {
		p := image.Point{
			X: a.X + dx*i/steps,
			Y: a.Y + dy*i/steps,
		}
		c.Stamp(p, radius, col, erase)
	}
}

// At returns the pixel at (x, y).
func (c *Canvas) At(x, y int) color.NRGBA {
	return c.img.NRGBAAt(x, y)
}

// Blank reports whether every pixel is fully transparent.
func (c *Canvas) Blank() bool {
	for i := 3; i < len(c.img.Pix); i += 4 {
		if c.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// EncodeDataURL exports the canvas as a base64 PNG data URL, the opaque
// snapshot blob the wire protocol carries.
func (c *Canvas) EncodeDataURL() (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return "", fmt.Errorf("encode canvas png: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL replaces the canvas content with the decoded snapshot,
// scaling is not attempted: the decoded image is drawn at the origin.
func (c *Canvas) DecodeDataURL(data string) error {
	if !strings.HasPrefix(data, dataURLPrefix) {
		return ErrNotDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(data, dataURLPrefix))
	if err != nil {
		return fmt.Errorf("decode snapshot base64: %w", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode snapshot png: %w", err)
	}
	c.Clear()
	draw.Draw(c.img, c.img.Bounds(), decoded, image.Point{}, draw.Src)
	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
