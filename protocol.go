package rig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ProtocolStep is one entry of a training protocol: a named step running a
// particular task type with its parameters. Params are left as a raw map so
// each task type can decode them with its own config parser.
type ProtocolStep struct {
	Name     string         `json:"step_name"`
	TaskType string         `json:"task_type"`
	Params   map[string]any `json:"params,omitempty"`
}

// Protocol is an ordered list of steps a subject graduates through. The
// order is significant; this package does not reorder or skip steps.
type Protocol struct {
	Steps []ProtocolStep
}

// protocolSchemaJSON is the JSON Schema every protocol document must
// satisfy before it is decoded.
const protocolSchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"properties": {
			"step_name": {"type": "string", "minLength": 1},
			"task_type": {"type": "string", "minLength": 1},
			"params":    {"type": "object"}
		},
		"required": ["step_name", "task_type"]
	}
}`

var (
	protocolSchemaOnce sync.Once
	protocolSchema     *jsonschema.Schema
	protocolSchemaErr  error
)

// compiledProtocolSchema compiles the protocol schema once.
func compiledProtocolSchema() (*jsonschema.Schema, error) {
	protocolSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(protocolSchemaJSON))
		if err != nil {
			protocolSchemaErr = fmt.Errorf("rig: parse protocol schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("protocol.json", doc); err != nil {
			protocolSchemaErr = fmt.Errorf("rig: add protocol schema resource: %w", err)
			return
		}
		protocolSchema, protocolSchemaErr = c.Compile("protocol.json")
		if protocolSchemaErr != nil {
			protocolSchemaErr = fmt.Errorf("rig: compile protocol schema: %w", protocolSchemaErr)
		}
	})
	return protocolSchema, protocolSchemaErr
}

// ParseProtocol validates a JSON protocol document against the protocol
// schema and decodes it. Validation failures carry the offending path in
// the error, so a misconfigured step is diagnosable from the message alone.
func ParseProtocol(data []byte) (*Protocol, error) {
	schema, err := compiledProtocolSchema()
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rig: parse protocol: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("rig: protocol validation failed: %w", err)
	}

	var steps []ProtocolStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("rig: decode protocol: %w", err)
	}
	return &Protocol{Steps: steps}, nil
}
