package frames

import (
	"context"
	"image"
	// Registered decoders
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}

// ImageDir reads image files of a directory in lexicographic order of their names
type ImageDir struct {
	dir   string
	files []string
	idx   int
	// Path of the file that failed to decode, if any
	failed string
}

// NewImageDir lists the directory. Files are filtered by extension (case-insensitive).
func NewImageDir(dir string) (*ImageDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "can't list directory '%s'", dir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hasImageExtension(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return &ImageDir{
		dir:   dir,
		files: files,
	}, nil
}

func hasImageExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range imageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Len returns number of listed files
func (src *ImageDir) Len() int {
	return len(src.files)
}

// Failed returns path of the file which ended the stream by failing to decode
func (src *ImageDir) Failed() string {
	return src.failed
}

// Read decodes next file. A file that can not be decoded ends the stream.
func (src *ImageDir) Read(ctx context.Context) (image.Image, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if src.failed != "" || src.idx >= len(src.files) {
		return nil, false, nil
	}
	path := src.files[src.idx]
	src.idx++
	img, err := decodeFile(path)
	if err != nil {
		src.failed = path
		return nil, false, nil
	}
	return img, true, nil
}

// Close implements Source
func (src *ImageDir) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
