package internal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"
)

// SourceKind records where a document came from.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceCamera SourceKind = "camera"
)

// CapturedDocument is an immutable document ready for validation and upload.
type CapturedDocument struct {
	name       string
	data       []byte
	mimeType   string
	source     SourceKind
	preview    string
	capturedAt time.Time
}

// NewCapturedDocument copies data so later mutation by the caller cannot
// change the document.
func NewCapturedDocument(name, mimeType string, source SourceKind, data []byte) *CapturedDocument {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &CapturedDocument{
		name:       name,
		data:       buf,
		mimeType:   mimeType,
		source:     source,
		capturedAt: time.Now(),
	}
}

// WithPreview returns a copy carrying a data URI preview.
func (d *CapturedDocument) WithPreview(uri string) *CapturedDocument {
	c := *d
	c.preview = uri
	return &c
}

func (d *CapturedDocument) Name() string          { return d.name }
func (d *CapturedDocument) MIMEType() string      { return d.mimeType }
func (d *CapturedDocument) Source() SourceKind    { return d.source }
func (d *CapturedDocument) Size() int64           { return int64(len(d.data)) }
func (d *CapturedDocument) Preview() string       { return d.preview }
func (d *CapturedDocument) CapturedAt() time.Time { return d.capturedAt }

// Bytes returns a copy of the payload.
func (d *CapturedDocument) Bytes() []byte {
	buf := make([]byte, len(d.data))
	copy(buf, d.data)
	return buf
}

// Reader streams the payload without copying.
func (d *CapturedDocument) Reader() io.Reader {
	return bytes.NewReader(d.data)
}

// Fingerprint is the hex SHA-256 of the payload.
func (d *CapturedDocument) Fingerprint() string {
	sum := sha256.Sum256(d.data)
	return hex.EncodeToString(sum[:])
}

// Importance ranks a glossary term.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Term is a medical term with a plain-language definition.
type Term struct {
	Term       string     `json:"term" yaml:"term"`
	Definition string     `json:"definition" yaml:"definition"`
	Importance Importance `json:"importance,omitempty" yaml:"importance,omitempty"`
}

// Section pairs an excerpt of the document with its simplified reading.
type Section struct {
	Original   string `json:"original" yaml:"original"`
	Simplified string `json:"simplified" yaml:"simplified"`
	Terms      []Term `json:"terms,omitempty" yaml:"terms,omitempty"`
}

// Interpretation is the plain-language content of a result.
type Interpretation struct {
	Summary      string    `json:"summary" yaml:"summary"`
	Sections     []Section `json:"sections" yaml:"sections"`
	MedicalTerms []string  `json:"medicalTerms,omitempty" yaml:"medical_terms,omitempty"`
	Warnings     []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	NextSteps    []string  `json:"nextSteps,omitempty" yaml:"next_steps,omitempty"`
}

// InterpretationResult is produced by the remote service. Its ID names the
// chat thread for the result.
type InterpretationResult struct {
	ID               string         `json:"id" yaml:"id"`
	DocumentType     string         `json:"document_type" yaml:"document_type"`
	Confidence       float64        `json:"confidence" yaml:"confidence"`
	ProcessingTimeMS int64          `json:"processingTime,omitempty" yaml:"processing_time_ms,omitempty"`
	Language         string         `json:"language,omitempty" yaml:"language,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Interpretation   Interpretation `json:"interpretation" yaml:"interpretation"`
}

// Complete reports whether the result carries interpretation content.
func (r *InterpretationResult) Complete() bool {
	if r == nil || r.ID == "" {
		return false
	}
	return r.Interpretation.Summary != "" || len(r.Interpretation.Sections) > 0
}

// ProcessingDuration converts the millisecond processing time.
func (r *InterpretationResult) ProcessingDuration() time.Duration {
	return time.Duration(r.ProcessingTimeMS) * time.Millisecond
}

// ClampConfidence bounds the confidence to [0,1].
func (r *InterpretationResult) ClampConfidence() {
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
}

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Origin records how a message entered the transcript.
type Origin string

const (
	OriginHistory    Origin = "history"
	OriginOptimistic Origin = "optimistic"
	OriginConfirmed  Origin = "confirmed"
	OriginLocal      Origin = "local" // fallback and error replies produced client-side
)

// Message is one entry of a chat transcript.
type Message struct {
	ID        string `json:"id" yaml:"id"`
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Origin    Origin `json:"origin" yaml:"origin"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// HistoryEntry is a message as the service returns it.
type HistoryEntry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}
