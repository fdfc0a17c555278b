package attachments

import (
	"context"
	"encoding/base64"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/diogo/imagestudio/internal/errors"
)

// MaxImageSize is the largest file accepted as an attachment
const MaxImageSize = 20 * 1024 * 1024 // 20MB

// SupportedImageTypes returns the MIME types that can be attached
func SupportedImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	}
}

func isSupportedType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// DetectImageType sniffs the content first and falls back to the extension
func DetectImageType(path string, head []byte) string {
	sniffed := http.DetectContentType(head)
	if isSupportedType(sniffed) {
		return sniffed
	}

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(byExt, ';'); i >= 0 {
		byExt = byExt[:i]
	}
	if isSupportedType(byExt) {
		return byExt
	}
	return ""
}

// DecodeFile reads an image file into a data URI
func DecodeFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", apperrors.NewAttachmentError(path, err.Error())
	}
	if !info.Mode().IsRegular() {
		return "", apperrors.NewAttachmentError(path, "not a regular file")
	}
	if info.Size() > MaxImageSize {
		return "", apperrors.NewAttachmentError(path, "file exceeds the 20MB limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewAttachmentError(path, err.Error())
	}
	if len(data) == 0 {
		return "", apperrors.NewAttachmentError(path, "file is empty")
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mimeType := DetectImageType(path, head)
	if mimeType == "" {
		return "", apperrors.NewAttachmentError(path, "Please select an image file")
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return EncodeDataURI(mimeType, data), nil
}

// EncodeDataURI builds a base64 data URI
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsImageRef reports whether ref can be sent as an image part
func IsImageRef(ref string) bool {
	return strings.HasPrefix(ref, "data:image/") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "http://")
}
