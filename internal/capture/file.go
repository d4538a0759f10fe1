// Package capture produces CapturedDocuments from files on disk or from a
// camera device.
package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/iksnae/medisnap/internal"
)

// FromFile reads the document at path. The MIME type is sniffed from the
// content, not the extension.
func FromFile(path string) (*internal.CapturedDocument, error) {
	if path == "" {
		return nil, internal.NewError(internal.KindNoFileSelected, "capture", "No file selected", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, internal.NewError(internal.KindNoFileSelected, "capture", "No file selected", err)
		}
		return nil, &internal.StorageError{Path: path, Op: "read", Err: err}
	}
	internal.LogDebug("read %s (%d bytes)", path, len(data))
	return FromBytes(filepath.Base(path), data, ""), nil
}

// FromReader reads a whole stream. A non-empty declaredType wins over
// sniffing, as a browser-supplied type would.
func FromReader(name string, r io.Reader, declaredType string) (*internal.CapturedDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &internal.StorageError{Path: name, Op: "read", Err: err}
	}
	return FromBytes(name, data, declaredType), nil
}

// FromBytes wraps data as a file-sourced document.
func FromBytes(name string, data []byte, declaredType string) *internal.CapturedDocument {
	mime := baseType(declaredType)
	if mime == "" {
		mime = DetectMIME(data)
	}
	doc := internal.NewCapturedDocument(name, mime, internal.SourceFile, data)
	if strings.HasPrefix(mime, "image/") {
		doc = doc.WithPreview(DataURI(mime, data))
	}
	return doc
}

// DetectMIME sniffs the content type, without parameters.
func DetectMIME(data []byte) string {
	return baseType(mimetype.Detect(data).String())
}

func baseType(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// DataURI encodes data for inline preview.
func DataURI(mime string, data []byte) string {
	var b bytes.Buffer
	b.Grow(len(data)*4/3 + len(mime) + 16)
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	_, _ = enc.Write(data)
	_ = enc.Close()
	return b.String()
}
