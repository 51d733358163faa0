// Package loader turns files into raw text for ingestion.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"swimcoach-be/pkg/apperror"
)

// maxDocumentBytes caps what a single loader will read into memory.
const maxDocumentBytes = 20 << 20

var errDocumentTooLarge = errors.New("document exceeds 20 MiB")

// Document is the raw text of one source plus what the loader learned about it.
type Document struct {
	Text     string
	Metadata map[string]string
}

// DocumentLoader reads one format.
type DocumentLoader interface {
	Load(ctx context.Context, r io.Reader) (*Document, error)
	// SupportedTypes lists handled extensions with the leading dot.
	SupportedTypes() []string
	// MimeTypes lists handled media types.
	MimeTypes() []string
	Name() string
}

// Registry routes sources to loaders by extension, then by media type.
type Registry struct {
	mu     sync.RWMutex
	byExt  map[string]DocumentLoader
	byMime map[string]DocumentLoader
}

// NewRegistry returns a registry with the text, markdown, csv and json loaders.
func NewRegistry() *Registry {
	r := &Registry{
		byExt:  make(map[string]DocumentLoader),
		byMime: make(map[string]DocumentLoader),
	}
	for _, l := range []DocumentLoader{NewTextLoader(), NewMarkdownLoader(), NewCSVLoader(), NewJSONLoader()} {
		r.Register(l)
	}
	return r
}

// Register adds or replaces l for every type it declares.
func (r *Registry) Register(l DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.SupportedTypes() {
		r.byExt[strings.ToLower(ext)] = l
	}
	for _, m := range l.MimeTypes() {
		r.byMime[strings.ToLower(m)] = l
	}
}

// Resolve picks the loader for a path and optional media type.
func (r *Registry) Resolve(path, mimeType string) (DocumentLoader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return l, nil
	}
	if mimeType != "" {
		base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
		if l, ok := r.byMime[base]; ok {
			return l, nil
		}
	}
	return nil, apperror.Validation(fmt.Sprintf("unsupported document type %q (supported: %s)",
		filepath.Ext(path), strings.Join(r.supportedLocked(), ", ")))
}

// LoadFile opens path and hands it to the resolved loader.
func (r *Registry) LoadFile(ctx context.Context, path, mimeType string) (*Document, error) {
	l, err := r.Resolve(path, mimeType)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() && info.Size() > maxDocumentBytes {
		return nil, apperror.Validation(errDocumentTooLarge.Error())
	}

	doc, err := l.Load(ctx, &cappedReader{r: f, left: maxDocumentBytes})
	if errors.Is(err, errDocumentTooLarge) {
		return nil, apperror.Validation(errDocumentTooLarge.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("%s loader: %w", l.Name(), err)
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	doc.Metadata["loader"] = l.Name()
	doc.Metadata["file_name"] = filepath.Base(path)
	return doc, nil
}

func (r *Registry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supportedLocked()
}

func (r *Registry) supportedLocked() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func readAll(ctx context.Context, rd io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(b), "\r\n", "\n"), nil
}

// cappedReader fails instead of truncating once more than left bytes are read,
// so a file that grows after Stat is never indexed partially.
type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, errDocumentTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return 0, errDocumentTooLarge
	}
	return n, err
}
