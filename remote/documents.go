package remote

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const defaultDocumentType = "image/jpeg"

// Document is an opened identity photo. Close must be called by the consumer.
type Document struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
}

// DocumentLoader resolves a goEnroll.DocumentRef reference into photo bytes.
type DocumentLoader interface {
	Open(ctx context.Context, reference string) (Document, error)
}

// FileLoader opens local paths and file:// URIs. Root, when set, confines
// relative paths to a directory.
type FileLoader struct {
	Root string
}

func (l FileLoader) Open(ctx context.Context, reference string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	path := strings.TrimSpace(reference)
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return Document{}, err
		}
		path = u.Path
	}
	if path == "" {
		return Document{}, errors.New("empty document reference")
	}
	if l.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.Root, filepath.Clean("/"+path))
	}

	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = defaultDocumentType
	}
	return Document{
		Body:        f,
		Filename:    filepath.Base(path),
		ContentType: contentType,
	}, nil
}
