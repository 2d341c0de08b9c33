package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pngHeader  = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"
	jpegHeader = "\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00"
	webpHeader = "RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00"
)

func image(name, contentType, body string) Upload {
	return Upload{FileName: name, ContentType: contentType, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestCheckImageAccepts(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"png", "avatar.PNG", pngHeader + "pixels", "image/png"},
		{"jpeg", "photo.jpeg", jpegHeader + "pixels", "image/jpeg"},
		{"jpg", "photo.jpg", jpegHeader, "image/jpeg"},
		{"webp", "photo.webp", webpHeader + "pixels", "image/webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := CheckImage(image(tt.file, "application/octet-stream", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, up.ContentType)

			replayed, err := io.ReadAll(up.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(replayed))
		})
	}
}

func TestCheckImageRejects(t *testing.T) {
	tests := []struct {
		name string
		up   Upload
		want error
	}{
		{"html", image("x.html", "text/html", "<html><script>alert(1)</script></html>"), ErrUnsupportedImage},
		{"html claiming png", image("x.png", "image/png", "<html></html>"), ErrUnsupportedImage},
		{"png renamed", image("x.html", "image/png", pngHeader), ErrUnsupportedImage},
		{"svg", image("x.svg", "image/svg+xml", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`), ErrUnsupportedImage},
		{"empty", image("x.png", "image/png", ""), ErrUnsupportedImage},
		{"oversized", Upload{FileName: "x.png", Size: MaxImageSize + 1, Body: strings.NewReader(pngHeader)}, ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckImage(tt.up)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
