package message

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Image is an encoded image payload with its identified format. The bytes
// are relayed untouched; re-encoding happens only on the receiving side when
// PNG output is requested.
type Image struct {
	Format Format `cbor:"1,keyasint"`
	Bytes  []byte `cbor:"2,keyasint"`
}

// ImageFromPath reads the file at path and identifies its image format,
// first by sniffing the leading bytes against known signatures and then by
// the filename extension. Formats with an available decoder are decoded once
// to check validity; an identification or decode failure rejects the image.
func ImageFromPath(path string) (*Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFile, err)
	}
	format, ok := SniffFormat(b)
	if !ok {
		if format, ok = FormatFromExt(filepath.Ext(path)); !ok {
			return nil, fmt.Errorf("%w: unrecognized image format for %q", ErrDecodeImg, path)
		}
	}
	if format.Decodable() {
		if _, err := format.decode(b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeImg, err)
		}
	}
	return &Image{Format: format, Bytes: b}, nil
}

// Save writes the original encoded bytes to a timestamped file in dir,
// creating dir as needed, and returns the written path.
func (img *Image) Save(dir string) (string, error) {
	path := timestampedPath(dir, img.Format.Ext())
	if err := writeImageFile(dir, path, img.Bytes); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAsPNG writes the image to a timestamped .png file in dir, re-encoding
// when the source format is not already PNG.
func (img *Image) SaveAsPNG(dir string) (string, error) {
	if img.Format == Png {
		return img.Save(dir)
	}
	decoded, err := img.Format.decode(img.Bytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeImg, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConvertImg, err)
	}
	path := timestampedPath(dir, Png.Ext())
	if err := writeImageFile(dir, path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func writeImageFile(dir, path string, b []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFile, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFile, err)
	}
	return nil
}

// timestampedPath names received images by arrival time, UTC RFC-3339 at
// seconds precision. Collisions within one second overwrite.
func timestampedPath(dir, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s", time.Now().UTC().Format(time.RFC3339), ext))
}
