package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/moamenhredeen/oasrec/internal/models"
)

// ErrNotFound is returned for paths or operations missing from the document
var ErrNotFound = errors.New("not found")

// Parser handles parsing OpenAPI specification files
type Parser struct {
	document libopenapi.Document
	model    *v3.Document
}

// ParseFile parses an OpenAPI specification file and returns a Parser instance
func ParseFile(filePath string) (*Parser, error) {
	specBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI file: %w", err)
	}
	return ParseBytes(specBytes)
}

// ParseBytes parses an OpenAPI 3 document held in memory
func ParseBytes(specBytes []byte) (*Parser, error) {
	document, err := libopenapi.NewDocument(specBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	model, errs := document.BuildV3Model()
	if errs != nil {
		return nil, fmt.Errorf("failed to build v3 model: %v", errs)
	}
	if model == nil {
		return nil, fmt.Errorf("failed to build v3 model: not an OpenAPI 3 document")
	}

	return &Parser{document: document, model: &model.Model}, nil
}

// Validate reports whether specBytes holds an OpenAPI 3 document that
// libopenapi can build a model from.
func Validate(specBytes []byte) error {
	p, err := ParseBytes(specBytes)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(p.model.Version, "3.") {
		return fmt.Errorf("unsupported OpenAPI version %q", p.model.Version)
	}
	return nil
}

// Version returns the openapi field of the document
func (p *Parser) Version() string {
	return p.model.Version
}

// GetServerURLs returns the server URLs from the OpenAPI spec
func (p *Parser) GetServerURLs() ([]string, error) {
	servers := p.model.Servers
	if len(servers) == 0 {
		return []string{"http://localhost"}, nil
	}

	urls := make([]string, 0, len(servers))
	for _, server := range servers {
		if server != nil && server.URL != "" {
			urls = append(urls, server.URL)
		}
	}

	return urls, nil
}

// methods lists the operations of a path item in document order
func methods(item *v3.PathItem) []struct {
	name string
	op   *v3.Operation
} {
	return []struct {
		name string
		op   *v3.Operation
	}{
		{"GET", item.Get},
		{"PUT", item.Put},
		{"POST", item.Post},
		{"DELETE", item.Delete},
		{"OPTIONS", item.Options},
		{"HEAD", item.Head},
		{"PATCH", item.Patch},
		{"TRACE", item.Trace},
	}
}

// PathTemplates returns every templated path of the document in order
func (p *Parser) PathTemplates() []string {
	var templates []string
	if p.model.Paths == nil || p.model.Paths.PathItems == nil {
		return templates
	}
	for pair := p.model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		templates = append(templates, pair.Key())
	}
	return templates
}

// GetOperations extracts all operations from the OpenAPI spec, by path in
// document order and then by method.
func (p *Parser) GetOperations(serverURL string) ([]models.Operation, error) {
	var operations []models.Operation
	paths := p.model.Paths

	if paths == nil || paths.PathItems == nil {
		return operations, nil
	}

	for pair := paths.PathItems.First(); pair != nil; pair = pair.Next() {
		pathItem := pair.Key()
		pathItemValue := pair.Value()
		if pathItemValue == nil {
			continue
		}

		for _, m := range methods(pathItemValue) {
			if m.op == nil {
				continue
			}

			tags := []string{}
			if m.op.Tags != nil {
				tags = append(tags, m.op.Tags...)
			}

			operations = append(operations, models.Operation{
				Path:        pathItem,
				Method:      m.name,
				OperationID: m.op.OperationId,
				Tags:        tags,
				ServerURL:   serverURL,
				FullPath:    serverURL + pathItem,
			})
		}
	}

	return operations, nil
}

// OperationDetails holds the parts of an operation needed to exercise it
type OperationDetails struct {
	Operation   *v3.Operation
	Path        string
	Method      string
	Parameters  []*v3.Parameter
	RequestBody *v3.RequestBody
	Responses   *v3.Responses
}

// GetOperationDetails extracts detailed information for a specific
// operation. Path item parameters are included unless the operation
// overrides them.
func (p *Parser) GetOperationDetails(path, method string) (*OperationDetails, error) {
	paths := p.model.Paths
	if paths == nil || paths.PathItems == nil {
		return nil, fmt.Errorf("path %s: %w", path, ErrNotFound)
	}

	var pathItem *v3.PathItem
	for pair := paths.PathItems.First(); pair != nil; pair = pair.Next() {
		if pair.Key() == path {
			pathItem = pair.Value()
			break
		}
	}
	if pathItem == nil {
		return nil, fmt.Errorf("path %s: %w", path, ErrNotFound)
	}

	method = strings.ToUpper(method)
	var operation *v3.Operation
	known := false
	for _, m := range methods(pathItem) {
		if m.name == method {
			operation, known = m.op, true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
	if operation == nil {
		return nil, fmt.Errorf("operation %s %s: %w", method, path, ErrNotFound)
	}

	var parameters []*v3.Parameter
	parameters = append(parameters, operation.Parameters...)
	for _, shared := range pathItem.Parameters {
		overridden := false
		for _, own := range operation.Parameters {
			if own != nil && shared != nil && own.Name == shared.Name && own.In == shared.In {
				overridden = true
				break
			}
		}
		if !overridden {
			parameters = append(parameters, shared)
		}
	}

	return &OperationDetails{
		Operation:   operation,
		Path:        path,
		Method:      method,
		Parameters:  parameters,
		RequestBody: operation.RequestBody,
		Responses:   operation.Responses,
	}, nil
}
