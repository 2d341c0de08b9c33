package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize caps a single photo or testimonial image.
const MaxImageSize = 5 << 20

// sniffLen covers the signatures mimetype needs for the formats below.
const sniffLen = 3072

var (
	ErrImageTooLarge    = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedImage = errors.New("only JPEG, PNG and WebP images are allowed")
)

var imageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
}

// CheckImage accepts JPEG, PNG and WebP uploads whose content and file
// extension agree. The client's Content-Type is ignored; the returned
// Upload carries the detected type and replays the sniffed bytes.
func CheckImage(up Upload) (Upload, error) {
	if up.Size > MaxImageSize {
		return up, ErrImageTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return up, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	contentType := strings.SplitN(detected.String(), ";", 2)[0]
	exts, ok := imageTypes[contentType]
	if !ok || !slices.Contains(exts, strings.ToLower(path.Ext(up.FileName))) {
		return up, ErrUnsupportedImage
	}

	up.ContentType = contentType
	up.Body = io.MultiReader(bytes.NewReader(head), up.Body)
	return up, nil
}
