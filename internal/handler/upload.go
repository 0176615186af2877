package handler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Upload is an image received in the "image" form field.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Shape describes the image header when the format is one we can read.
type Shape struct {
	Width  int
	Height int
	Mode   string
	Known  bool
}

func newUpload(filename string, data []byte) Upload {
	return Upload{
		Filename:    filename,
		ContentType: sniffContentType(data),
		Data:        data,
	}
}

func sniffContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func (u Upload) Validate(maxBytes int64, allowed []string) error {
	types := make([]interface{}, len(allowed))
	for i, t := range allowed {
		types[i] = t
	}

	return validation.ValidateStruct(&u,
		validation.Field(&u.Filename, validation.Required),
		validation.Field(&u.Data,
			validation.Required.Error("image is empty"),
			validation.By(func(value interface{}) error {
				if int64(len(u.Data)) > maxBytes {
					return validation.NewError("validation_image_too_large", "image exceeds the upload limit")
				}
				return nil
			}),
		),
		validation.Field(&u.ContentType,
			validation.In(types...).Error("unsupported image type"),
		),
	)
}

// Shape reads the image header. Formats without a registered decoder are
// reported as unknown rather than as an error.
func (u Upload) Shape() (Shape, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if errors.Is(err, image.ErrFormat) {
		return Shape{}, nil
	}
	if err != nil {
		return Shape{}, err
	}

	return Shape{
		Width:  cfg.Width,
		Height: cfg.Height,
		Mode:   colorMode(cfg.ColorModel),
		Known:  true,
	}, nil
}

// colorMode names the color model the way image tooling usually does
// ("RGB", "L", "P").
func colorMode(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}

	switch m {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	case color.YCbCrModel:
		return "RGB"
	case color.CMYKModel:
		return "CMYK"
	default:
		return "unknown"
	}
}
