package xolog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/csg33k/freight-reports/internal/domain"
)

// Report endpoints answer either with a bare array or with an envelope.
const envelopeSchemaJSON = `{
  "type": ["array", "object"],
  "properties": {
    "success":     {"type": "boolean"},
    "data":        {"type": ["array", "object", "null"]},
    "totalProfit": {"type": ["number", "null"]},
    "error":       {"type": ["string", "null"]},
    "message":     {"type": ["string", "null"]},
    "pagination": {
      "type": ["object", "null"],
      "properties": {
        "page":             {"type": "integer"},
        "limit":            {"type": "integer"},
        "total":            {"type": "integer"},
        "totalPages":       {"type": "integer"},
        "grandTotalProfit": {"type": "number"}
      }
    }
  }
}`

var envelopeSchema = mustCompile(envelopeSchemaJSON)

func mustCompile(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("envelope.json", strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	return compiler.MustCompile("envelope.json")
}

type envelope struct {
	Success     *bool              `json:"success"`
	Data        json.RawMessage    `json:"data"`
	Pagination  *domain.Pagination `json:"pagination"`
	TotalProfit *float64           `json:"totalProfit"`
	Error       string             `json:"error"`
	Message     string             `json:"message"`
}

func (e *envelope) failure() error {
	if e.Success == nil || *e.Success {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		return ErrRejected
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}

// validate checks raw against the envelope schema.
func validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := envelopeSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// decodePage unwraps a report body into items plus whatever paging and
// totals came with it. A missing or null data field yields no items.
func decodePage[T any](raw []byte) (*domain.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if err := validate(raw); err != nil {
		return nil, err
	}
	page := &domain.Page[T]{Items: []T{}}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return page, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	page.Pagination = env.Pagination
	page.TotalProfit = env.TotalProfit

	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '{':
		// Some endpoints nest a second envelope under data.
		inner, err := decodePage[T](data)
		if err != nil {
			return nil, err
		}
		page.Items = inner.Items
		if page.Pagination == nil {
			page.Pagination = inner.Pagination
		}
		if page.TotalProfit == nil {
			page.TotalProfit = inner.TotalProfit
		}
	default:
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return page, nil
}

// decodeAck checks the body of a sync call. An empty body counts as success.
func decodeAck(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	return env.failure()
}
