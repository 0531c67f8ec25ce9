package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/moamenhredeen/oasrec/internal/tree"
)

// DocumentFormat is the serialization of an OpenAPI document on disk
type DocumentFormat string

const (
	DocumentYAML DocumentFormat = "yaml"
	DocumentJSON DocumentFormat = "json"
)

// DocumentFormatFor picks the format from a file extension. Anything that
// is not .json is written as YAML.
func DocumentFormatFor(path string) DocumentFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DocumentJSON
	}
	return DocumentYAML
}

// LoadDocument reads the persisted document at path. A missing file yields
// a nil tree and no error, so the first run starts from nothing.
func LoadDocument(path string) (*tree.Node, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := tree.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Kind == tree.NullKind {
		return nil, nil
	}
	if !doc.IsMap() {
		return nil, fmt.Errorf("%s: document root is a %s, not a map", path, doc.Kind)
	}
	return doc, nil
}

// EncodeDocument serializes doc in format
func EncodeDocument(doc *tree.Node, format DocumentFormat) ([]byte, error) {
	switch format {
	case DocumentJSON:
		return tree.EncodeJSON(doc)
	case DocumentYAML:
		return tree.EncodeYAML(doc)
	default:
		return nil, fmt.Errorf("unsupported document format: %s", format)
	}
}

// WriteDocument writes doc to path in the format its extension names. The
// file is replaced atomically.
func WriteDocument(path string, doc *tree.Node) error {
	data, err := EncodeDocument(doc, DocumentFormatFor(path))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
