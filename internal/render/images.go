package render

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DescribeImage summarizes an image reference for display.
// Data URIs become "image/png, 12.3 KB"; URLs are shortened.
func DescribeImage(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
		if !ok {
			return "inline image"
		}
		mime := strings.TrimSuffix(header, ";base64")
		if mime == "" {
			mime = "image"
		}
		size := base64.StdEncoding.DecodedLen(len(payload))
		return fmt.Sprintf("%s, %s", mime, FormatSize(size))
	}

	const maxLen = 60
	if len(ref) > maxLen {
		return ref[:maxLen-3] + "..."
	}
	return ref
}

// FormatSize formats a byte count as B, KB or MB
func FormatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
