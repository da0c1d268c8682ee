package pdftext

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"
)

func pdfWithStream(content string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n1 0 obj\n<< /Length 99 >>\nstream\n")
	b.WriteString(content)
	b.WriteString("\nendstream\nendobj\n")
	return b.Bytes()
}

func TestExtractLiteralEscapes(t *testing.T) {
	// Escaped parentheses and octal codes must round-trip exactly.
	content := `BT (Feeder \(F-12\) \101rea \\ Gulberg) Tj ET`
	got := Extract(pdfWithStream(content))
	want := `Feeder (F-12) Area \ Gulberg`
	if got != want {
		t.Fatalf("Extract = %q, want %q", got, want)
	}
}

func TestExtractLiteralControlEscapes(t *testing.T) {
	content := `(line1\nline2\ttabbed) Tj`
	got := Extract(pdfWithStream(content))
	if !strings.Contains(got, "line1\nline2\ttabbed") {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractHexShow(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "even length", content: `<48656C6C6F> Tj`, want: "Hello"},
		{name: "odd length zero padded", content: `<48656C6C6F4> Tj`, want: "Hello@"},
		{name: "embedded whitespace", content: `<48 65 6C 6C 6F> Tj`, want: "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(pdfWithStream(tt.content))
			if got != tt.want {
				t.Fatalf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArrayShow(t *testing.T) {
	// Kerning numbers between the strings are ignored.
	content := `[(Gul) -120 (berg) 30 <2046656564657220462D3132>] TJ`
	got := Extract(pdfWithStream(content))
	if got != "Gulberg Feeder F-12" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractArrayConsumedBeforePlainShows(t *testing.T) {
	// The literal inside the array must not be re-matched as a bare Tj.
	content := `[(inside)] TJ (outside) Tj`
	got := Extract(pdfWithStream(content))
	if got != "inside\noutside" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractZlibStream(t *testing.T) {
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write([]byte(`(Compressed Gulberg) Tj`)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got := Extract(pdfWithStream(compressed.String()))
	if got != "Compressed Gulberg" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractUTF16BE(t *testing.T) {
	// FEFF BOM followed by UTF-16BE "AB".
	content := `<FEFF00410042> Tj`
	got := Extract(pdfWithStream(content))
	if got != "AB" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractMultipleStreams(t *testing.T) {
	var b bytes.Buffer
	b.Write(pdfWithStream(`(first) Tj`))
	b.Write(pdfWithStream(`(second) Tj`))
	got := Extract(b.Bytes())
	if got != "first\nsecond" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractGarbage(t *testing.T) {
	if got := Extract([]byte("not a pdf at all")); got != "" {
		t.Fatalf("Extract = %q, want empty", got)
	}
	if got := Extract(nil); got != "" {
		t.Fatalf("Extract(nil) = %q, want empty", got)
	}
}
