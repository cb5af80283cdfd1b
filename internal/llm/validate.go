package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	partSchemaOnce sync.Once
	partSchema     *jsonschema.Schema
	partSchemaErr  error
)

// compiledPartSchema compiles the part schema on first use. The schema is
// fixed for the life of the process, so parsing many responses pays the
// compile cost once.
func compiledPartSchema() (*jsonschema.Schema, error) {
	partSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildPartJSONSchema())
		if err != nil {
			partSchemaErr = fmt.Errorf("marshal part schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("part.schema.json", bytes.NewReader(b)); err != nil {
			partSchemaErr = fmt.Errorf("add part schema: %w", err)
			return
		}
		partSchema, partSchemaErr = compiler.Compile("part.schema.json")
	})
	return partSchema, partSchemaErr
}

// validatePartPayload checks a sanitized payload against the part schema.
// A non-nil return means the payload does not describe a complete part.
func validatePartPayload(doc []byte) error {
	schema, err := compiledPartSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match part schema: %w", err)
	}
	return nil
}
