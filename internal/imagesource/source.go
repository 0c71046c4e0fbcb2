package imagesource

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"strings"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // register WebP decoder
)

var (
	// ErrInvalidInputKind is returned for nil, empty or non-image inputs
	ErrInvalidInputKind = errors.New("invalid image input")
	// ErrUnsupportedHandle is returned for host UI handles that carry no pixel data
	ErrUnsupportedHandle = errors.New("unsupported image handle")
	// ErrDecode is returned when a transport payload cannot be decoded
	ErrDecode = errors.New("failed to decode image payload")
)

// Source is one of the supported image input shapes.
// The set is closed: FileBytes, Decoded, Encoded and Handle.
type Source interface {
	isSource()
}

// FileBytes is the raw content of an uploaded image file
type FileBytes []byte

// Decoded is an in-memory image
type Decoded struct {
	Image image.Image
}

// Encoded is a base64 payload, optionally prefixed with a data URL header
type Encoded string

// Handle is a UI placeholder that refers to an image but carries no pixels.
// It exists so callers can pass widget values through without inspecting
// them; Encode always rejects it.
type Handle struct {
	ID string
}

func (FileBytes) isSource() {}
func (Decoded) isSource()   {}
func (Encoded) isSource()   {}
func (Handle) isSource()    {}

// Origin records which intake gesture produced an image
type Origin string

const (
	OriginFileUpload Origin = "file"
	OriginPaste      Origin = "paste"
	OriginDrop       Origin = "drop"
)

// CapturedImage is the canonical encoded form held by a session slot
type CapturedImage struct {
	Encoded string `json:"encoded"`
	MIME    string `json:"mime"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Origin  Origin `json:"origin"`
}

// Bytes returns the decoded image file bytes
func (c *CapturedImage) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(c.Encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// DataURL returns the image as a data URL suitable for chat-style model requests
func (c *CapturedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", c.MIME, c.Encoded)
}

// Encode converts a source into canonical base64.
// Already-encoded payloads are returned as normalized input without
// recompression; decoded images are re-encoded as PNG.
func Encode(src Source) (string, error) {
	encoded, _, _, err := encode(src)
	return encoded, err
}

// Capture encodes a source and records the image metadata carried by the encoding
func Capture(src Source, origin Origin) (*CapturedImage, error) {
	encoded, decoded, format, err := encode(src)
	if err != nil {
		return nil, err
	}

	bounds := decoded.Bounds()
	img := &CapturedImage{
		Encoded: encoded,
		MIME:    mimeForFormat(format),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Origin:  origin,
	}

	log.Debug().
		Str("origin", string(origin)).
		Str("mime", img.MIME).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("Captured image")

	return img, nil
}

// encode returns the canonical base64 together with the fully decoded
// pixels, so a payload whose header parses but whose body is truncated
// never reaches a slot.
func encode(src Source) (string, image.Image, string, error) {
	switch s := src.(type) {
	case nil:
		return "", nil, "", fmt.Errorf("%w: no image provided", ErrInvalidInputKind)

	case Handle:
		return "", nil, "", fmt.Errorf("%w: %q is a widget handle, not image data", ErrUnsupportedHandle, s.ID)

	case FileBytes:
		if len(s) == 0 {
			return "", nil, "", fmt.Errorf("%w: empty file", ErrInvalidInputKind)
		}
		decoded, format, err := image.Decode(bytes.NewReader(s))
		if err != nil {
			return "", nil, "", fmt.Errorf("%w: file is not a supported image: %v", ErrInvalidInputKind, err)
		}
		return base64.StdEncoding.EncodeToString(s), decoded, format, nil

	case Decoded:
		data, err := encodePNG(s.Image)
		if err != nil {
			return "", nil, "", err
		}
		return base64.StdEncoding.EncodeToString(data), s.Image, "png", nil

	case Encoded:
		normalized := normalizeBase64(string(s))
		if normalized == "" {
			return "", nil, "", fmt.Errorf("%w: empty payload", ErrInvalidInputKind)
		}
		raw, err := base64.StdEncoding.DecodeString(normalized)
		if err != nil {
			return "", nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		decoded, format, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return "", nil, "", fmt.Errorf("%w: payload is not an image: %v", ErrDecode, err)
		}
		return normalized, decoded, format, nil

	default:
		return "", nil, "", fmt.Errorf("%w: %T", ErrInvalidInputKind, src)
	}
}

// encodePNG re-encodes an in-memory image. A typed nil or zero-sized
// image is rejected as an invalid input rather than crashing the encoder.
func encodePNG(img image.Image) (data []byte, err error) {
	if img == nil {
		return nil, fmt.Errorf("%w: decoded image is nil", ErrInvalidInputKind)
	}
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: decoded image is unusable: %v", ErrInvalidInputKind, r)
		}
	}()
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: decoded image has no pixels", ErrInvalidInputKind)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// normalizeBase64 strips a data URL header and any whitespace
func normalizeBase64(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

func mimeForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
