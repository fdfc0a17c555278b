package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"

	apperrors "github.com/diogo/imagestudio/internal/errors"
)

// SaveOptions configures image saving
type SaveOptions struct {
	// Directory is the destination directory (default: ~/.imagestudio/images)
	Directory string
	// Filename is the output filename (generated if empty)
	Filename string
	// Now is the clock used for generated names
	Now func() time.Time
}

// DefaultSaveOptions returns the default save options
func DefaultSaveOptions() SaveOptions {
	homeDir, _ := os.UserHomeDir()
	return SaveOptions{
		Directory: filepath.Join(homeDir, ".imagestudio", "images"),
	}
}

var dataURIPattern = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,(.*)$`)

// SaveImage writes an image reference to disk and returns the absolute path.
// Data URIs are decoded locally; http(s) URLs are fetched.
func (c *Client) SaveImage(ctx context.Context, ref string, opts SaveOptions) (string, error) {
	if m := dataURIPattern.FindStringSubmatch(ref); m != nil {
		data, err := base64.StdEncoding.DecodeString(m[2])
		if err != nil {
			return "", apperrors.NewDownloadError("invalid base64 payload: "+err.Error(), "data URI")
		}
		return writeImage(data, m[1], opts)
	}

	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return c.fetchImage(ctx, ref, opts)
	}

	return "", apperrors.NewDownloadError("unsupported image reference", truncateRef(ref))
}

func (c *Client) fetchImage(ctx context.Context, url string, opts SaveOptions) (string, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, url, nil)
	if err != nil {
		return "", apperrors.NewDownloadError("failed to create request: "+err.Error(), url)
	}
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewDownloadError("request failed: "+err.Error(), url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fhttp.StatusOK {
		return "", apperrors.NewDownloadError(fmt.Sprintf("HTTP %d", resp.StatusCode), url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return "", apperrors.NewDownloadError("response is not an image: "+contentType, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", apperrors.NewDownloadError("failed to read response: "+err.Error(), url)
	}

	return writeImage(body, contentType, opts)
}

func writeImage(data []byte, contentType string, opts SaveOptions) (string, error) {
	dir := opts.Directory
	if dir == "" {
		dir = DefaultSaveOptions().Directory
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.NewDownloadError("failed to create directory: "+err.Error(), dir)
	}

	filename := opts.Filename
	if filename == "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		filename = generateFilename(contentType, now())
	} else {
		filename = sanitizeFilename(filename)
	}

	destPath := filepath.Join(dir, filename)
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return "", apperrors.NewDownloadError("failed to save file: "+err.Error(), destPath)
	}

	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return destPath, nil
	}
	return absPath, nil
}

// generateFilename creates image-{unix ms}.{ext}
func generateFilename(contentType string, now time.Time) string {
	return fmt.Sprintf("image-%d%s", now.UnixMilli(), extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	}
	return ".png"
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeFilename removes invalid characters from filenames
func sanitizeFilename(name string) string {
	return strings.TrimSpace(unsafeFilename.ReplaceAllString(name, "_"))
}

func truncateRef(ref string) string {
	if len(ref) > 40 {
		return ref[:40] + "..."
	}
	return ref
}
