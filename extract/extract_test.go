package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lectern/core"
)

func TestRegistry_ExtractText(t *testing.T) {
	r := Default()
	ctx := context.Background()

	t.Run("extension is case and dot insensitive", func(t *testing.T) {
		text, err := r.ExtractText(ctx, []byte("  hello  "), ".TXT")
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := r.ExtractText(ctx, []byte("data"), "exe")
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.ErrorIs(t, err, core.ErrExtraction)
	})

	t.Run("whitespace only is no text", func(t *testing.T) {
		_, err := r.ExtractText(ctx, []byte(" \n\t "), "txt")
		assert.ErrorIs(t, err, ErrNoText)
		assert.ErrorIs(t, err, core.ErrExtraction)
	})

	t.Run("extractor failure wraps extraction error", func(t *testing.T) {
		_, err := r.ExtractText(ctx, []byte("not a zip"), "docx")
		assert.ErrorIs(t, err, core.ErrExtraction)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("custom registration overrides", func(t *testing.T) {
		custom := NewRegistry()
		custom.Register(ExtractorFunc(func(context.Context, []byte) (string, error) {
			return "fixed", nil
		}), "bin")
		assert.True(t, custom.Supports(".BIN"))
		text, err := custom.ExtractText(ctx, nil, "bin")
		require.NoError(t, err)
		assert.Equal(t, "fixed", text)
	})
}

func TestDefault_Extensions(t *testing.T) {
	exts := Default().Extensions()
	for _, want := range []string{"docx", "htm", "html", "markdown", "md", "pdf", "txt"} {
		assert.Contains(t, exts, want)
	}
}

func TestPlainText(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("line one\r\nline two\xff")...)
	text, err := PlainText().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two�", text)
}

func TestMarkdown(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and `code`.\n\n- first\n- second\n\n```go\nfmt.Println(1)\n```\n"
	text, err := Markdown().Extract(context.Background(), []byte(src))
	require.NoError(t, err)

	assert.Contains(t, text, "Title\n")
	assert.Contains(t, text, "Some emphasis and code.")
	assert.Contains(t, text, "first\n")
	assert.Contains(t, text, "second\n")
	assert.Contains(t, text, "fmt.Println(1)")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "*")
	assert.NotContains(t, text, "```")
}

func TestHTML(t *testing.T) {
	src := `<html><head><title>T</title><style>body{color:red}</style></head>
<body><nav>Menu</nav><h1>Heading</h1><p>First   paragraph.</p><p>Second</p>
<script>alert("x")</script><footer>Footer</footer></body></html>`
	text, err := HTML().Extract(context.Background(), []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Heading\nFirst paragraph.\nSecond", text)
}

func TestCollapseLines(t *testing.T) {
	assert.Equal(t, "a b\nc", collapseLines("  a \t b \n\n\n   c  "))
	assert.Equal(t, "", collapseLines(" \n "))
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	if documentXML != "" {
		w, err = zw.Create("word/document.xml")
		require.NoError(t, err)
		_, err = w.Write([]byte(documentXML))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCX(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>A1</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>B1</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`

	text, err := DOCX().Extract(context.Background(), buildDOCX(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nSecond paragraph\nA1\tB1", text)

	t.Run("missing body part", func(t *testing.T) {
		_, err := DOCX().Extract(context.Background(), buildDOCX(t, ""))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("broken xml", func(t *testing.T) {
		_, err := DOCX().Extract(context.Background(), buildDOCX(t, "<w:document><w:body>"))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestDecodeContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "simple lines",
			stream: "BT /F1 12 Tf 72 712 Td (Hello, world!) Tj 0 -14 Td (Second line) Tj ET",
			want:   "Hello, world!\nSecond line",
		},
		{
			name:   "kerned array",
			stream: "BT [(Hel) -20 (lo) -500 (World)] TJ ET",
			want:   "Hello World",
		},
		{
			name:   "escapes and octal",
			stream: `BT (a \(b\) \\ \101) Tj ET`,
			want:   `a (b) \ A`,
		},
		{
			name:   "hex strings",
			stream: "BT <48656C6C6F> Tj T* <00480069> Tj T* <FEFF00E9> Tj ET",
			want:   "Hello\nHi\né",
		},
		{
			name:   "next line operator",
			stream: "BT (one) Tj (two) ' ET",
			want:   "one\ntwo",
		},
		{
			name:   "non text operators ignored",
			stream: "% comment (ignored)\nq 1 0 0 1 0 0 cm /Span <</ActualText (x)>> BDC EMC Q BT (kept) Tj ET",
			want:   "kept",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 2 /H 2 ID \x00(\xff) EI BT (after) Tj ET",
			want:   "after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeContentStream([]byte(tt.stream)))
		})
	}
}

// minimalPDF assembles a one-page PDF with a correct cross-reference table.
func minimalPDF(content string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 0, len(objs))
	for i, o := range objs {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestPDF(t *testing.T) {
	data := minimalPDF("BT /F1 12 Tf 72 712 Td (Hello PDF) Tj 0 -14 Td (Page text) Tj ET")

	text, err := PDF().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello PDF")
	assert.Contains(t, text, "Page text")

	t.Run("garbage", func(t *testing.T) {
		_, err := PDF().Extract(context.Background(), []byte("definitely not a pdf"))
		assert.ErrorIs(t, err, ErrMalformed)
	})
}
