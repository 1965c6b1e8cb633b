// Package images checks bundle images and works out which one is the hero.
package images

import (
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/errgroup"
)

// MinWidth is the default minimum pixel width for bundle images.
const MinWidth = 1024

// Validate checks a single image. A missing or empty file yields exactly one
// problem and skips decoding; an undecodable file is reported as such rather
// than as too small.
func Validate(path string, minWidth int) []string {
	name := filepath.Base(path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{fmt.Sprintf("Image file not found: %s", path)}
		}
		return []string{fmt.Sprintf("Cannot read image %s: %v", name, err)}
	}
	if info.IsDir() {
		return []string{fmt.Sprintf("Cannot read image %s: is a directory", name)}
	}
	if info.Size() == 0 {
		return []string{fmt.Sprintf("Image file is empty (0 bytes): %s", name)}
	}

	width, _, err := Dimensions(path)
	if err != nil {
		return []string{fmt.Sprintf("Cannot read image %s: %v", name, err)}
	}
	if width < minWidth {
		return []string{fmt.Sprintf("Image width %dpx is below minimum %dpx: %s", width, minWidth, name)}
	}
	return nil
}

// Dimensions decodes only the image header and returns its size.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied bundle path
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// ValidatePair validates the hero and inline images concurrently and returns
// their problems hero first.
func ValidatePair(hero, inline string, minWidth int) []string {
	var heroProblems, inlineProblems []string
	var g errgroup.Group
	g.Go(func() error {
		heroProblems = Validate(hero, minWidth)
		return nil
	})
	g.Go(func() error {
		inlineProblems = Validate(inline, minWidth)
		return nil
	})
	_ = g.Wait()
	return append(heroProblems, inlineProblems...)
}
