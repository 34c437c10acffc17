package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kirinuki/internal/models"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Hello world\nLine 2"), ".txt", models.KindText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".md", models.KindText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainStripsBOM(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("\xEF\xBB\xBFcaf\xc3\xa9"), ".txt", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_html(t *testing.T) {
	e := NewExtractor()
	page := []byte(`<html><head><style>p { color: red }</style></head><body><p>Fish &amp; chips</p><script>alert(1)</script></body></html>`)
	got, err := e.ExtractBytes(page, ".html", models.KindHTML)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if want := "Fish & chips"; !bytes.Contains([]byte(got), []byte(want)) {
		t.Errorf("got %q, want it to contain %q", got, want)
	}
	for _, leaked := range []string{"<p>", "color", "alert"} {
		if bytes.Contains([]byte(got), []byte(leaked)) {
			t.Errorf("got %q, should not contain %q", got, leaked)
		}
	}
}

func TestExtractBytes_htmlByKind(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("<b>bold</b>"), ".txt", models.KindHTML)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != " bold " {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A3", "Value 1")
	f.SetCellValue("Sheet1", "B3", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), ".xlsx", models.KindTable)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	got, err := NewExtractor().Extract(path, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Searchable text" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path, models.KindText)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_csvIsPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.csv")
	if err := os.WriteFile(path, []byte("city,country\nOsaka,Japan\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "city,country\nOsaka,Japan\n" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_imageUsesFileName(t *testing.T) {
	// The file does not need to exist: pixels are never read.
	got, err := NewExtractor().Extract("/photos/red-panda_zoo.png", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "red panda zoo" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt", ""); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractBytes_unknownExtension(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("raw content"), ".xyz", "")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".txt", models.KindText},
		{".MD", models.KindText},
		{"csv", models.KindTable},
		{".xlsx", models.KindTable},
		{".htm", models.KindHTML},
		{".pdf", models.KindPDF},
		{".JPEG", models.KindImage},
		{".go", models.KindText},
		{"", models.KindText},
	}
	for _, tt := range tests {
		if got := KindForExtension(tt.ext); got != tt.want {
			t.Errorf("KindForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func docxArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docxParagraphs(t *testing.T) {
	content := docxArchive(t, map[string]string{
		"word/document.xml": `<w:document ` + wordNS + `><w:body>` +
			`<w:p w:rsidR="00A1"><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	})
	got, err := NewExtractor().ExtractBytes(content, ".docx", models.KindText)
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "First paragraph\n\nSecond paragraph" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxContentTypesOverride(t *testing.T) {
	for _, override := range []string{
		`<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`,
		`<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`,
	} {
		content := docxArchive(t, map[string]string{
			"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + override + `</Types>`,
			"word/document2.xml":  `<w:document ` + wordNS + `><w:body><w:p><w:r><w:t>Content from document2</w:t></w:r></w:p></w:body></w:document>`,
		})
		got, err := NewExtractor().ExtractBytes(content, ".docx", "")
		if err != nil {
			t.Fatalf("ExtractBytes: %v", err)
		}
		if got != "Content from document2" {
			t.Errorf("got %q", got)
		}
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a zip"), ".docx", ""); err == nil {
		t.Error("expected error for invalid docx")
	}
}
