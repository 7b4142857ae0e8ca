// write.go — Atomic image file writer.
package generator

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// writeFile encodes img next to output and renames it into place, so a
// failed encode never leaves a truncated file behind.
func writeFile(output string, img image.Image, format imaging.Format) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", output, err)
	}
	tmp, err := os.CreateTemp(dir, ".covercard-*"+filepath.Ext(output))
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := imaging.Encode(tmp, img, format, imaging.JPEGQuality(JPEGQuality)); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", output, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", output, err)
	}
	if err := os.Rename(tmpName, output); err != nil {
		return fmt.Errorf("rename %s: %w", output, err)
	}
	return nil
}
