// Package frames provides ordered frame sources: image directories and video files.
package frames

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/LdDl/fbtrack-go/internal/opencv"
	"github.com/pkg/errors"
)

var (
	// ErrIllegalInput is returned when the input is neither a directory nor a supported video file
	ErrIllegalInput = errors.New("inputs are illegal")
	// ErrUnknownBackend is returned for backend names other than "native" and "opencv"
	ErrUnknownBackend = errors.New("unknown backend")
)

// Source yields frames in order. ok is false once the stream is exhausted.
type Source interface {
	Read(ctx context.Context) (frame image.Image, ok bool, err error)
	Close() error
}

// Open picks the source for path: a directory of images, or a video file (.mp4, .avi)
// which needs the opencv backend compiled in
func Open(path string, backend string) (Source, error) {
	if backend != "native" && backend != "opencv" {
		return nil, errors.Wrapf(ErrUnknownBackend, "'%s'", backend)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".mp4" || ext == ".avi" {
		src, err := opencv.OpenVideo(path)
		if err != nil {
			return nil, errors.Wrapf(err, "can't open video '%s'", path)
		}
		return src, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIllegalInput, "'%s': %s", path, err.Error())
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrIllegalInput, "'%s'", path)
	}
	return NewImageDir(path)
}
