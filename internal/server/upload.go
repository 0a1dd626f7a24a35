package server

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxUploadMB is the per-file upload limit in megabytes (10^6 bytes).
	DefaultMaxUploadMB = 50

	uploadExtension = "gpx"
)

// UploadError reports an uploaded file that was refused before parsing.
type UploadError struct {
	Filename string
	Message  string
}

func (e *UploadError) Error() string {
	return e.Filename + ": " + e.Message
}

// ValidateUpload checks an uploaded recording by name and size. Only .gpx files
// (any case) strictly smaller than maxMB megabytes are accepted.
func ValidateUpload(filename string, size int64, maxMB int) error {
	parts := strings.Split(strings.ToLower(filename), ".")
	if parts[len(parts)-1] != uploadExtension {
		return &UploadError{
			Filename: filename,
			Message:  fmt.Sprintf("Uploaded file can only be %s.", uploadExtension),
		}
	}

	if float64(size)/1_000_000 >= float64(maxMB) {
		return &UploadError{
			Filename: filename,
			Message:  fmt.Sprintf("Uploaded file must be smaller than %d MB.", maxMB),
		}
	}

	return nil
}
