package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed content/modules.schema.json
var schemaJSON []byte

const schemaURL = "schema://satslab/modules.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse modules schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, def); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateDocument checks raw content against the modules schema.
func validateDocument(data []byte) error {
	sch, err := documentSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse modules: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("modules schema validation failed: %w", err)
	}
	return nil
}
