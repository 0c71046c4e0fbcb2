package imagesource

import (
	"fmt"
	"os"
)

// LoadFile reads an image file from disk into canonical form
func LoadFile(path string) (*CapturedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	img, err := Capture(FileBytes(data), OriginFileUpload)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return img, nil
}
