package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/hyperjump/kirinuki/internal/extract"
	"github.com/hyperjump/kirinuki/internal/models"
	"github.com/hyperjump/kirinuki/pkg/utils"
)

// Descriptions recorded for documents added through the ingestion helpers.
const (
	DescriptionInline     = "Added inline"
	DescriptionRegistered = "Registered from a local path"
	DescriptionUploaded   = "Uploaded"
	DescriptionDownloaded = "Downloaded from the web"
)

// GenerateDocID returns an unused document id derived from seed. Letters and digits
// are lowercased and every other rune becomes '-'; taken ids get a "-2", "-3", ...
// suffix. A blank seed yields "doc"; a seed with no letters or digits yields
// "doc-" plus a short random suffix.
func (c *Corpus) GenerateDocID(ctx context.Context, seed string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generateDocID(ctx, seed)
}

func (c *Corpus) generateDocID(ctx context.Context, seed string) (string, error) {
	base := slugify(seed)
	if base == "" {
		base = "doc"
		if strings.TrimSpace(seed) != "" {
			base = "doc-" + uuid.NewString()[:8]
		}
	}
	docs, err := c.store.ListDocuments(ctx)
	if err != nil {
		return "", err
	}
	existing := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		existing[d.ID] = struct{}{}
	}
	candidate := base
	for n := 2; ; n++ {
		if _, taken := existing[candidate]; !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

func slugify(seed string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(seed) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// checkFileID rejects ids that cannot be used as a file name under DocsDir.
func checkFileID(id string) error {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q cannot be used as a file name", ErrInvalidDocument, id)
	}
	return nil
}

// CreateDocument stores content as DocsDir/<id>.txt and registers it as a text
// document. A blank id is generated.
func (c *Corpus) CreateDocument(ctx context.Context, content, id string) (*models.Document, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidDocument)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.resolveID(ctx, id, "")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(c.docsDir, id+".txt")
	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return c.RegisterLocalFile(ctx, id, path, models.KindText, nil, DescriptionInline)
}

// UploadFile stores content under DocsDir with an id generated from filename and
// registers it with the kind implied by the file extension.
func (c *Corpus) UploadFile(ctx context.Context, filename string, content []byte) (*models.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidDocument)
	}
	ext := filepath.Ext(filename)
	seed := strings.TrimSuffix(filename, ext)
	if seed == "" {
		seed = "upload"
	}
	if ext == "" {
		ext = ".txt"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	id, err := c.generateDocID(ctx, seed)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(c.docsDir, id+ext)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return c.RegisterLocalFile(ctx, id, path, extract.KindForExtension(ext), nil, DescriptionUploaded)
}

// RegisterFile registers an existing file in place. With a blank id, a file that is
// already registered keeps its id, tags and description; otherwise an id is generated
// from the file name.
func (c *Corpus) RegisterFile(ctx context.Context, path, id string) (*models.Document, error) {
	path = utils.ExpandHome(strings.TrimSpace(path))
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: file not found: %s", ErrInvalidDocument, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidDocument, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	base := filepath.Base(abs)
	ext := filepath.Ext(base)
	kind := extract.KindForExtension(ext)
	if strings.TrimSpace(id) != "" {
		return c.RegisterLocalFile(ctx, id, abs, kind, nil, DescriptionRegistered)
	}

	existing, err := c.store.DocumentsByPath(ctx, abs)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		prev := existing[0]
		return c.RegisterLocalFile(ctx, prev.ID, abs, kind, prev.Tags, prev.Description)
	}
	if id, err = c.generateDocID(ctx, strings.TrimSuffix(base, ext)); err != nil {
		return nil, err
	}
	return c.RegisterLocalFile(ctx, id, abs, kind, nil, DescriptionRegistered)
}

// RegisterFolder registers every regular file below dir in lexical order and returns
// their ids. Hidden files and directories are skipped.
func (c *Corpus) RegisterFolder(ctx context.Context, dir string) ([]string, error) {
	dir = utils.ExpandHome(strings.TrimSpace(dir))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: folder not found: %s", ErrInvalidDocument, dir)
	}
	var ids []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := c.RegisterFile(ctx, path, "")
		if err != nil {
			return err
		}
		ids = append(ids, doc.ID)
		return nil
	})
	if err != nil {
		return ids, err
	}
	return ids, nil
}

// resolveID returns the trimmed id, or a generated one when it is blank. Callers hold mu.
func (c *Corpus) resolveID(ctx context.Context, id, seed string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return c.generateDocID(ctx, seed)
	}
	if err := checkFileID(id); err != nil {
		return "", err
	}
	return id, nil
}

// Ingest registers the document described by in. Exactly one of Content, Path or URL
// must be set. Kind, Tags and Description override what the chosen route infers.
func (c *Corpus) Ingest(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	sources := 0
	for _, s := range []string{in.Content, in.Path, in.URL} {
		if strings.TrimSpace(s) != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("%w: exactly one of content, path or url is required", ErrInvalidDocument)
	}

	var (
		doc *models.Document
		err error
	)
	switch {
	case strings.TrimSpace(in.Content) != "":
		doc, err = c.CreateDocument(ctx, in.Content, in.ID)
	case strings.TrimSpace(in.Path) != "":
		doc, err = c.RegisterFile(ctx, in.Path, in.ID)
	default:
		doc, err = c.DownloadURL(ctx, in.URL, in.ID)
	}
	if err != nil {
		return nil, err
	}
	if in.Kind == "" && len(in.Tags) == 0 && in.Description == "" {
		return doc, nil
	}
	if in.Kind != "" {
		doc.Kind = in.Kind
	}
	if len(in.Tags) > 0 {
		doc.Tags = in.Tags
	}
	if in.Description != "" {
		doc.Description = in.Description
	}
	return c.register(ctx, doc)
}
