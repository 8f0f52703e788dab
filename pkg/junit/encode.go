package junit

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ethpandaops/junitoor/pkg/fsutil"
)

// xmlDeclaration is written ahead of the document.
const xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// Encode writes doc to w as indented UTF-8 XML with an XML declaration.
func Encode(w io.Writer, doc *Document) error {
	if _, err := io.WriteString(w, xmlDeclaration); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing document: %w", err)
	}

	_, err := io.WriteString(w, "\n")

	return err
}

// Marshal returns the encoded document.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile serializes doc in full, then creates or truncates path and
// writes the content in a single call. The file is closed on every path.
// It returns the number of bytes written.
func WriteFile(path string, doc *Document, owner *fsutil.OwnerConfig) (n int, err error) {
	data, err := Marshal(doc)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsutil.MkdirAll(dir, 0o755, owner); err != nil {
			return 0, fmt.Errorf("creating report directory %s: %w", dir, err)
		}
	}

	f, err := fsutil.Create(path, 0o644, owner)
	if err != nil {
		return 0, fmt.Errorf("opening report file %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing report file %s: %w", path, cerr)
		}
	}()

	n, err = f.Write(data)
	if err != nil {
		return n, fmt.Errorf("writing report file %s: %w", path, err)
	}

	return n, nil
}
