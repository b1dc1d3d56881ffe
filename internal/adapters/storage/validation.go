package storage

import (
	"fmt"
	"strings"
)

// MaxObjectSize caps a single archived object. Provider payloads are small;
// anything larger is almost certainly attachments we do not keep.
const MaxObjectSize int64 = 10 << 20

// AllowedContentTypes defines the MIME types the archive accepts.
var AllowedContentTypes = map[string]bool{
	"application/json": true,
	"message/rfc822":   true,
	"text/plain":       true,
	"text/html":        true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !AllowedContentTypes[ct] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks if the object size is within limits.
func ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("object is empty")
	}
	if sizeBytes > MaxObjectSize {
		return fmt.Errorf("object size %d exceeds maximum of %d bytes", sizeBytes, MaxObjectSize)
	}
	return nil
}
