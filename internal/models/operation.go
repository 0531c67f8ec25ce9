package models

import "strings"

// Operation represents an OpenAPI operation with test context
type Operation struct {
	Path        string
	Method      string
	OperationID string
	Tags        []string
	ServerURL   string
	FullPath    string // ServerURL + Path with parameters resolved
}

// Key returns the accumulator key of the operation
func (o Operation) Key() OperationKey {
	return NewOperationKey(o.Method, o.Path)
}

// OperationKey identifies an operation by method and templated path
type OperationKey struct {
	Method string
	Path   string
}

// NewOperationKey normalizes the method to upper case
func NewOperationKey(method, path string) OperationKey {
	return OperationKey{Method: strings.ToUpper(method), Path: path}
}

func (k OperationKey) String() string {
	return k.Method + " " + k.Path
}
