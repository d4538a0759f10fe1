package internal

import "fmt"

// MaxDocumentSize is the upload ceiling in bytes (10 MiB).
const MaxDocumentSize int64 = 10 * 1024 * 1024

// AllowedMIMETypes lists the document types the service accepts.
var AllowedMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

const (
	msgNoFileSelected  = "No file selected"
	msgUnsupportedType = "Unsupported file type. Please upload JPG, PNG, or PDF files."
)

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid   bool
	Reason  ErrorKind
	Message string
}

// Err returns the typed error for an invalid result, nil otherwise.
func (v ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	return NewError(v.Reason, "validate", v.Message, nil)
}

// Validate checks presence, size and type, in that order. It is pure.
func Validate(doc *CapturedDocument) ValidationResult {
	if doc == nil {
		return ValidationResult{Reason: KindNoFileSelected, Message: msgNoFileSelected}
	}
	return ValidateAttributes(doc.Size(), doc.MIMEType())
}

// ValidateAttributes applies the size and type rules to raw attributes. The
// mock service uses it at its upload boundary.
func ValidateAttributes(size int64, mimeType string) ValidationResult {
	if size > MaxDocumentSize {
		return ValidationResult{
			Reason:  KindFileTooLarge,
			Message: fmt.Sprintf("File size exceeds 10MB limit (%.1fMB)", float64(size)/1024/1024),
		}
	}
	if !AllowedMIMETypes[mimeType] {
		return ValidationResult{Reason: KindUnsupportedType, Message: msgUnsupportedType}
	}
	return ValidationResult{Valid: true}
}
