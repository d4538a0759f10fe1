package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     *CapturedDocument
		valid   bool
		reason  ErrorKind
		message string
	}{
		{
			name:    "no document",
			doc:     nil,
			reason:  KindNoFileSelected,
			message: "No file selected",
		},
		{
			name:  "jpeg at limit",
			doc:   CreateTestDocument("a.jpg", "image/jpeg", int(MaxDocumentSize)),
			valid: true,
		},
		{
			name:    "one byte over",
			doc:     CreateTestDocument("a.jpg", "image/jpeg", int(MaxDocumentSize)+1),
			reason:  KindFileTooLarge,
			message: "File size exceeds 10MB limit (10.0MB)",
		},
		{
			name:    "size checked before type",
			doc:     CreateTestDocument("a.gif", "image/gif", 12*1024*1024+300*1024),
			reason:  KindFileTooLarge,
			message: "File size exceeds 10MB limit (12.3MB)",
		},
		{
			name:    "gif",
			doc:     CreateTestDocument("a.gif", "image/gif", 10),
			reason:  KindUnsupportedType,
			message: "Unsupported file type. Please upload JPG, PNG, or PDF files.",
		},
		{
			name:  "png",
			doc:   CreateTestDocument("a.png", "image/png", 10),
			valid: true,
		},
		{
			name:  "pdf",
			doc:   CreateTestDocument("a.pdf", "application/pdf", 10),
			valid: true,
		},
		{
			name:  "empty pdf",
			doc:   CreateTestDocument("a.pdf", "application/pdf", 0),
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.doc)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.message != "" {
				assert.Equal(t, tt.message, got.Message)
			}
			if tt.valid {
				assert.NoError(t, got.Err())
			} else {
				assert.ErrorIs(t, got.Err(), tt.reason)
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	doc := CreateTestDocument("a.gif", "image/gif", 10)
	assert.Equal(t, Validate(doc), Validate(doc))
}
