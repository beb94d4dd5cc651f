package mastery

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/trainsched/internal/apperr"
)

//go:embed gate_schema.json
var gateSchemaJSON []byte

const gateSchemaURL = "schema://gate-requirements.json"

var (
	gateSchemaOnce     sync.Once
	gateSchemaCompiled *jsonschema.Schema
	gateSchemaErr      error
)

// gateSchema compiles the embedded schema on first use.
func gateSchema() (*jsonschema.Schema, error) {
	gateSchemaOnce.Do(func() {
		var def any
		if err := json.Unmarshal(gateSchemaJSON, &def); err != nil {
			gateSchemaErr = fmt.Errorf("parse gate schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(gateSchemaURL, def); err != nil {
			gateSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		gateSchemaCompiled, gateSchemaErr = c.Compile(gateSchemaURL)
	})
	return gateSchemaCompiled, gateSchemaErr
}

// ParseRequirements decodes a JSON array of gate requirements, checking it
// against the gate schema and each requirement's structural rules.
func ParseRequirements(data []byte) ([]Requirement, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperr.Invalid("gates", "invalid JSON: %v", err)
	}

	schema, err := gateSchema()
	if err != nil {
		return nil, fmt.Errorf("compile gate schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, apperr.Invalid("gates", "schema validation failed: %v", err)
	}

	var reqs []Requirement
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, apperr.Invalid("gates", "decode: %v", err)
	}
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return reqs, nil
}
