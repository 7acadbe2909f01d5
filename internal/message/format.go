package message

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Format identifies an image codec. The set is closed; it mirrors the
// formats the wire protocol can name.
type Format uint8

const (
	Png Format = iota + 1
	Jpeg
	Gif
	WebP
	Pnm
	Tiff
	Tga
	Dds
	Bmp
	Ico
	Hdr
	OpenExr
	Farbfeld
	Avif
	Qoi
)

var formatNames = map[Format]string{
	Png: "png", Jpeg: "jpeg", Gif: "gif", WebP: "webp", Pnm: "pnm",
	Tiff: "tiff", Tga: "tga", Dds: "dds", Bmp: "bmp", Ico: "ico",
	Hdr: "hdr", OpenExr: "openexr", Farbfeld: "farbfeld", Avif: "avif", Qoi: "qoi",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether f is a member of the closed format set.
func (f Format) Valid() bool { return f >= Png && f <= Qoi }

// Ext returns the primary filename extension for the format.
func (f Format) Ext() string {
	switch f {
	case Jpeg:
		return "jpeg"
	case Tiff:
		return "tif"
	case OpenExr:
		return "exr"
	case Farbfeld:
		return "ff"
	default:
		return f.String()
	}
}

// extFormats maps known filename extensions (without the dot) to formats.
var extFormats = map[string]Format{
	"png": Png, "jpg": Jpeg, "jpeg": Jpeg, "gif": Gif, "webp": WebP,
	"pnm": Pnm, "pbm": Pnm, "pgm": Pnm, "ppm": Pnm, "pam": Pnm,
	"tif": Tiff, "tiff": Tiff, "tga": Tga, "dds": Dds, "bmp": Bmp,
	"ico": Ico, "hdr": Hdr, "exr": OpenExr, "ff": Farbfeld,
	"avif": Avif, "qoi": Qoi,
}

// FormatFromExt resolves a filename extension (with or without the leading
// dot, any case) to a format.
func FormatFromExt(ext string) (Format, bool) {
	f, ok := extFormats[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// magic pairs a byte signature at a fixed offset with a format.
type magic struct {
	offset int
	sig    string
	format Format
}

var magics = []magic{
	{0, "\x89PNG\r\n\x1a\n", Png},
	{0, "\xff\xd8\xff", Jpeg},
	{0, "GIF87a", Gif},
	{0, "GIF89a", Gif},
	{0, "II*\x00", Tiff},
	{0, "MM\x00*", Tiff},
	{0, "DDS ", Dds},
	{0, "BM", Bmp},
	{0, "\x00\x00\x01\x00", Ico},
	{0, "#?RADIANCE", Hdr},
	{0, "#?RGBE", Hdr},
	{0, "\x76\x2f\x31\x01", OpenExr},
	{0, "farbfeld", Farbfeld},
	{0, "qoif", Qoi},
	{4, "ftypavif", Avif},
}

// SniffFormat identifies a format from the leading bytes of an encoded
// image. TGA carries no signature and is only resolvable by extension.
func SniffFormat(b []byte) (Format, bool) {
	for _, m := range magics {
		end := m.offset + len(m.sig)
		if len(b) >= end && string(b[m.offset:end]) == m.sig {
			return m.format, true
		}
	}
	// RIFF container holding a WEBP chunk.
	if len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP" {
		return WebP, true
	}
	// Netpbm: "P1".."P7" followed by whitespace.
	if len(b) >= 3 && b[0] == 'P' && b[1] >= '1' && b[1] <= '7' &&
		(b[2] == ' ' || b[2] == '\t' || b[2] == '\n' || b[2] == '\r') {
		return Pnm, true
	}
	return 0, false
}

// decoders holds the decode entry points available in this build. Formats
// without an entry are identified but never pixel-decoded; SaveAsPNG fails
// for them with ErrDecodeImg.
var decoders = map[Format]func(io.Reader) (image.Image, error){
	Png:  png.Decode,
	Jpeg: jpeg.Decode,
	Gif:  gif.Decode,
	WebP: webp.Decode,
	Tiff: tiff.Decode,
	Bmp:  bmp.Decode,
}

// Decodable reports whether a pixel decoder exists for the format.
func (f Format) Decodable() bool {
	_, ok := decoders[f]
	return ok
}

// decode decodes b under format f.
func (f Format) decode(b []byte) (image.Image, error) {
	dec, ok := decoders[f]
	if !ok {
		return nil, image.ErrFormat
	}
	return dec(bytes.NewReader(b))
}
