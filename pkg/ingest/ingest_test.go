package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name     string
		filename string
		size     int64
		want     error
	}{
		{"pdf", "paper.pdf", 1024, nil},
		{"upper case extension", "PAPER.PDF", 1024, nil},
		{"docx", "paper.docx", 1024, nil},
		{"txt at limit", "notes.txt", DefaultMaxBytes, nil},
		{"empty name", "", 10, ErrEmptyFilename},
		{"no extension", "README", 10, ErrUnsupportedType},
		{"image", "figure.png", 10, ErrUnsupportedType},
		{"too large", "paper.pdf", DefaultMaxBytes + 1, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(tt.filename, tt.size)
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateCustomPolicy(t *testing.T) {
	p := Policy{MaxBytes: 10, AllowedExtensions: []string{".md"}}
	if err := p.Validate("a.md", 10); err != nil {
		t.Errorf("expected dotted extension to be accepted, got %v", err)
	}
	if err := p.Validate("a.pdf", 1); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	got, err := Extract("paper.txt", []byte("Attention is all you need"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Attention is all you need" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"invalid utf8", "paper.doc", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xff}},
		{"blank", "paper.txt", []byte("  \n\t ")},
		{"garbage pdf", "paper.pdf", []byte("%PDF-1.4 not really")},
		{"garbage docx", "paper.docx", []byte("not a zip")},
		{"unknown", "paper.png", []byte("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.filename, tt.data)
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
			if ee.Filename != tt.filename {
				t.Errorf("expected filename %q, got %q", tt.filename, ee.Filename)
			}
		})
	}
}

func TestExtractInvalidUTF8IsNotText(t *testing.T) {
	_, err := Extract("paper.txt", []byte{0xff, 0xfe, 0xfd})
	if !errors.Is(err, ErrNotText) {
		t.Errorf("expected ErrNotText, got %v", err)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Deep Residual</w:t></w:r><w:r><w:t xml:space="preserve"> Learning</w:t></w:r></w:p>
    <w:p><w:r><w:t>Abstract</w:t></w:r></w:p>
  </w:body>
</w:document>`

	got, err := Extract("resnet.docx", buildDOCX(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	if got != "Deep Residual Learning\nAbstract\n" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtractDOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatal(err)
	}
	_ = zw.Close()

	_, err := Extract("empty.docx", buf.Bytes())
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Errorf("expected ExtractionError, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"paper.pdf":               "paper.pdf",
		"My Paper (final).pdf":    "My_Paper_final.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\thesis.docx`: "thesis.docx",
		"..":                      "",
		"   ":                     "",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
