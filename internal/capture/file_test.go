package capture

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/medisnap/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(4, 4)))
	return buf.Bytes()
}

func TestFromFileSniffsContent(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		data    []byte
		mime    string
		preview bool
	}{
		{"png with wrong extension", "scan.pdf", pngBytes(t), "image/png", true},
		{"jpeg", "photo.jpg", encodeJPEG(t, 4, 4), "image/jpeg", true},
		{"pdf", "report.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"), "application/pdf", false},
		{"text", "notes.txt", []byte("hello world"), "text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))

			doc, err := FromFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.file, doc.Name())
			assert.Equal(t, tt.mime, doc.MIMEType())
			assert.Equal(t, internal.SourceFile, doc.Source())
			assert.EqualValues(t, len(tt.data), doc.Size())
			assert.Equal(t, tt.preview, doc.Preview() != "")
		})
	}
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, internal.KindNoFileSelected)

	_, err = FromFile("")
	assert.ErrorIs(t, err, internal.KindNoFileSelected)
}

func TestFromReaderDeclaredTypeWins(t *testing.T) {
	doc, err := FromReader("upload", strings.NewReader("not really a pdf"), "application/pdf; qs=0.9")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MIMEType())
	assert.Empty(t, doc.Preview())
}

func TestUnsupportedTypeIsRejectedByValidator(t *testing.T) {
	doc := FromBytes("anim.gif", []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), "")
	assert.Equal(t, "image/gif", doc.MIMEType())
	assert.Equal(t, internal.KindUnsupportedType, internal.Validate(doc).Reason)
}

func TestDataURI(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURI("image/png", []byte{1, 2, 3}))
}
