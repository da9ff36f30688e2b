package render

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// ErrGIFFull is returned by GIFWriter.Write once the frame cap is reached.
// Frames collected so far are still encoded on Close.
var ErrGIFFull = errors.New("gif frame cap reached")

// Sink consumes rendered frames in order
type Sink interface {
	Write(frame image.Image) error
	Close() error
}

// Discard drops every frame
type Discard struct{}

// Write implements Sink
func (Discard) Write(image.Image) error { return nil }

// Close implements Sink
func (Discard) Close() error { return nil }

// PNGSequence writes every frame as numbered PNG file into directory.
// The directory is created on the first Write.
type PNGSequence struct {
	dir    string
	prefix string
	count  int
}

// NewPNGSequence creates new instance of PNGSequence
func NewPNGSequence(dir, prefix string) *PNGSequence {
	return &PNGSequence{
		dir:    dir,
		prefix: prefix,
	}
}

// Write implements Sink
func (seq *PNGSequence) Write(frame image.Image) error {
	if seq.count == 0 {
		if err := os.MkdirAll(seq.dir, 0o755); err != nil {
			return errors.Wrapf(err, "can't create directory '%s'", seq.dir)
		}
	}
	path := filepath.Join(seq.dir, fmt.Sprintf("%s%06d.png", seq.prefix, seq.count))
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "can't create '%s'", path)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return errors.Wrapf(err, "can't encode '%s'", path)
	}
	seq.count++
	return f.Close()
}

// Count returns number of written frames
func (seq *PNGSequence) Count() int {
	return seq.count
}

// Close implements Sink
func (seq *PNGSequence) Close() error {
	return nil
}

// GIFWriter collects frames into an animated GIF written on Close.
// Frames are kept in memory until then, so their number is capped by maxFrames (zero means no cap).
// Frames wider than maxWidth are scaled down.
type GIFWriter struct {
	w         io.WriteCloser
	path      string
	delay     int
	maxWidth  int
	maxFrames int
	anim      gif.GIF
}

// NewGIFWriter creates writer with frame delay derived from fps
func NewGIFWriter(w io.WriteCloser, fps, maxWidth, maxFrames int) *GIFWriter {
	if fps < 1 {
		fps = 1
	}
	delay := 100 / fps
	if delay < 2 {
		// Most viewers clamp smaller delays anyway
		delay = 2
	}
	return &GIFWriter{
		w:         w,
		delay:     delay,
		maxWidth:  maxWidth,
		maxFrames: maxFrames,
	}
}

// CreateGIF returns writer into the file at path. The file and its directory are created on the first Write.
func CreateGIF(path string, fps, maxWidth, maxFrames int) *GIFWriter {
	gw := NewGIFWriter(nil, fps, maxWidth, maxFrames)
	gw.path = path
	return gw
}

// Write implements Sink
func (gw *GIFWriter) Write(frame image.Image) error {
	if gw.maxFrames > 0 && len(gw.anim.Image) >= gw.maxFrames {
		return errors.Wrapf(ErrGIFFull, "%d frames", gw.maxFrames)
	}
	if gw.w == nil {
		if err := os.MkdirAll(filepath.Dir(gw.path), 0o755); err != nil {
			return errors.Wrapf(err, "can't create directory for '%s'", gw.path)
		}
		f, err := os.Create(gw.path)
		if err != nil {
			return errors.Wrapf(err, "can't create '%s'", gw.path)
		}
		gw.w = f
	}
	b := frame.Bounds()
	target := image.Rect(0, 0, b.Dx(), b.Dy())
	if gw.maxWidth > 0 && b.Dx() > gw.maxWidth {
		target = image.Rect(0, 0, gw.maxWidth, b.Dy()*gw.maxWidth/b.Dx())
	}
	src := frame
	if target.Dx() != b.Dx() {
		scaled := image.NewRGBA(target)
		draw.ApproxBiLinear.Scale(scaled, target, frame, b, draw.Src, nil)
		src = scaled
	}
	paletted := image.NewPaletted(target, palette.Plan9)
	draw.FloydSteinberg.Draw(paletted, target, src, src.Bounds().Min)
	gw.anim.Image = append(gw.anim.Image, paletted)
	gw.anim.Delay = append(gw.anim.Delay, gw.delay)
	return nil
}

// Len returns number of collected frames
func (gw *GIFWriter) Len() int {
	return len(gw.anim.Image)
}

// Close encodes the animation and closes underlying writer
func (gw *GIFWriter) Close() error {
	if gw.w == nil {
		return nil
	}
	if len(gw.anim.Image) == 0 {
		return gw.w.Close()
	}
	if err := gif.EncodeAll(gw.w, &gw.anim); err != nil {
		gw.w.Close()
		return errors.Wrap(err, "can't encode gif")
	}
	return gw.w.Close()
}
