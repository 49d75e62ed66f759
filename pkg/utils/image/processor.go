package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

const jpegQuality = 85

// Processed is a re-encoded image ready for storage.
type Processed struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Process decodes an uploaded image and re-encodes it. JPEG, PNG and WebP
// keep their format; GIF is flattened to PNG.
func Process(src io.Reader) (*Processed, error) {
	img, format, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	out := &Processed{}

	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality})
		out.ContentType, out.Ext = "image/jpeg", ".jpg"
	case "png", "gif":
		err = png.Encode(buf, img)
		out.ContentType, out.Ext = "image/png", ".png"
	case "webp":
		err = webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: jpegQuality})
		out.ContentType, out.Ext = "image/webp", ".webp"
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}

	out.Data = buf.Bytes()
	return out, nil
}
