package middleware

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var patientIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidatePatientID validates patient ID format
func ValidatePatientID(patientID string) error {
	if patientID == "" {
		return fmt.Errorf("patient ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	if !patientIDPattern.MatchString(patientID) {
		return fmt.Errorf("invalid patient ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// allowedImageExts is the extension allowlist for incoming photographs.
var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidateImageFilename checks the extension of an uploaded image. A missing
// extension is accepted, storage falls back to a default one.
func ValidateImageFilename(filename string) error {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if ext == "" || ext == "." {
		return nil
	}
	if !allowedImageExts[ext] {
		return fmt.Errorf("unsupported image type %s (allowed: jpg, jpeg, png, webp)", ext)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
