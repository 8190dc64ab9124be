package referral

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Presenter hands composed documents to a rendering surface.
type Presenter interface {
	// Print sends the document to the surface for printing.
	Print(doc Document) error
	// Export saves the document and returns where it was saved.
	Export(doc Document) (string, error)
}

// WriterPresenter writes documents to W, e.g. stdout or an HTTP response.
type WriterPresenter struct {
	W io.Writer
}

var _ Presenter = (*WriterPresenter)(nil)

func (p *WriterPresenter) Print(doc Document) error {
	_, err := p.W.Write(doc.HTML)
	return errors.Wrap(err, "printing document")
}

func (p *WriterPresenter) Export(doc Document) (string, error) {
	if err := p.Print(doc); err != nil {
		return "", err
	}
	return doc.Filename, nil
}

// FilePresenter saves documents as HTML files in Dir.
type FilePresenter struct {
	Dir string
}

var _ Presenter = (*FilePresenter)(nil)

func (p *FilePresenter) Print(doc Document) error {
	_, err := p.Export(doc)
	return err
}

func (p *FilePresenter) Export(doc Document) (string, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating export directory")
	}
	path := filepath.Join(p.Dir, doc.Filename)
	if err := os.WriteFile(path, doc.HTML, 0o644); err != nil {
		return "", errors.Wrap(err, "exporting document")
	}
	return path, nil
}
