package images

import (
	"errors"
	"path/filepath"
	"strings"
)

// MaxBundleFiles is the most files a bundle may be assembled from.
const MaxBundleFiles = 3

var (
	ErrTooManyFiles  = errors.New("too many files: drop exactly 3 files (1 .md + 2 images)")
	ErrTooManyDocs   = errors.New("only 1 markdown file allowed")
	ErrTooManyImages = errors.New("only 2 image files allowed")
)

// SupportedImage reports whether ext (with dot, any case) is an accepted image type.
func SupportedImage(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}

// Bundle is a file list split by type.
type Bundle struct {
	Document string
	Images   []string
	// Ignored holds files of unsupported types.
	Ignored []string
}

// Complete reports whether the bundle has one document and two images.
func (b Bundle) Complete() bool {
	return b.Document != "" && len(b.Images) == 2
}

// Classify splits files into the markdown document and the images.
func Classify(files []string) (Bundle, error) {
	if len(files) > MaxBundleFiles {
		return Bundle{}, ErrTooManyFiles
	}
	var b Bundle
	var docs []string
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f))
		switch {
		case ext == ".md":
			docs = append(docs, f)
		case SupportedImage(ext):
			b.Images = append(b.Images, f)
		default:
			b.Ignored = append(b.Ignored, f)
		}
	}
	if len(docs) > 1 {
		return Bundle{}, ErrTooManyDocs
	}
	if len(b.Images) > 2 {
		return Bundle{}, ErrTooManyImages
	}
	if len(docs) == 1 {
		b.Document = docs[0]
	}
	return b, nil
}
