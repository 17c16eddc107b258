package render

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter compiles a jq expression for use against rendered documents.
type Filter struct {
	expr string
	code *gojq.Code
}

// NewFilter parses and compiles expr.
func NewFilter(expr string) (*Filter, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile jq filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, code: code}, nil
}

// Apply runs the filter over doc and returns every emitted value.
func (f *Filter) Apply(doc Document) ([]interface{}, error) {
	// gojq only understands plain JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	var out []interface{}
	iter := f.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("run jq filter %q: %w", f.expr, err)
		}
		out = append(out, v)
	}
	return out, nil
}
