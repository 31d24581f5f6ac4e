package bill

import (
	"path/filepath"
	"strings"
)

// Attachment is a receipt file picked by the user
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validation is the outcome of checking a selected receipt file
type Validation struct {
	Accepted bool
	// Name is the file name stripped of any directory part
	Name   string
	Reason string
}

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// NormalizeFileName strips directories from name, whichever separator the client used
func NormalizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// ValidateAttachment accepts JPEG and PNG receipts
func ValidateAttachment(name string) Validation {
	normalized := NormalizeFileName(name)
	ext := strings.ToLower(filepath.Ext(normalized))
	if _, ok := allowedExtensions[ext]; !ok || normalized == ext {
		return Validation{Name: normalized, Reason: ErrUnsupportedType.Error()}
	}
	return Validation{Accepted: true, Name: normalized}
}

// ContentTypeFor returns the MIME type matching name's extension
func ContentTypeFor(name string) string {
	if ct, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
