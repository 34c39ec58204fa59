package assistant

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/vidya/internal/llm"
)

// mime types accepted for attached problem images.
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

const maxImageBytes = 8 << 20 // 8 MiB

// EncodeImageFile reads an image from disk and returns it as a data URL,
// the form attachments are stored in on the message itself.
func EncodeImageFile(path string) (string, error) {
	mime, ok := imageMimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image too large (%d bytes, limit %d)", len(data), maxImageBytes)
	}

	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}

// ParseDataURL decodes a base64 data URL back into raw image bytes for the
// provider request.
func ParseDataURL(dataURL string) (*llm.ImageData, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	meta, b64, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	mime, _, _ := strings.Cut(meta, ";")
	if mime == "" {
		return nil, fmt.Errorf("data URL missing mime type")
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return &llm.ImageData{Data: data, MimeType: mime}, nil
}
