package attachments

import (
	"context"
	"errors"
	"os"
	"testing"

	apperrors "github.com/diogo/imagestudio/internal/errors"
)

func TestDetectImageType(t *testing.T) {
	tests := []struct {
		name string
		path string
		head []byte
		want string
	}{
		{"png by content", "x.bin", pngHeader, "image/png"},
		{"jpeg by content", "x", []byte("\xFF\xD8\xFF\xE0"), "image/jpeg"},
		{"gif by content", "x", []byte("GIF89a"), "image/gif"},
		{"webp by extension", "photo.WEBP", []byte("????"), "image/webp"},
		{"text", "notes.txt", []byte("hello"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectImageType(tt.path, tt.head); got != tt.want {
				t.Errorf("DetectImageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeFile_TooLarge(t *testing.T) {
	path := writeFile(t, "big.png", pngHeader)
	if err := os.Truncate(path, MaxImageSize+1); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	_, err := DecodeFile(context.Background(), path)
	if !errors.Is(err, apperrors.ErrInvalidAttachment) {
		t.Errorf("DecodeFile() error = %v, want ErrInvalidAttachment", err)
	}
}

func TestDecodeFile_Empty(t *testing.T) {
	path := writeFile(t, "empty.png", nil)
	if _, err := DecodeFile(context.Background(), path); !errors.Is(err, apperrors.ErrInvalidAttachment) {
		t.Errorf("DecodeFile() error = %v, want ErrInvalidAttachment", err)
	}
}

func TestEncodeDataURI(t *testing.T) {
	if got := EncodeDataURI("image/png", []byte("hi")); got != "data:image/png;base64,aGk=" {
		t.Errorf("EncodeDataURI() = %s", got)
	}
}

func TestIsImageRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"data:image/png;base64,AA", true},
		{"https://example.com/a.png", true},
		{"data:text/plain;base64,AA", false},
		{"file:///etc/passwd", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImageRef(tt.ref); got != tt.want {
			t.Errorf("IsImageRef(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
