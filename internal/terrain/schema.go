package terrain

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed terrain.schema.json
var schemaSource string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("terrain.schema.json", schemaSource)
})

// ValidateTree checks a decoded terrain document against the embedded schema.
func ValidateTree(tree map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("terrain: compile schema: %w", err)
	}
	if err := schema.Validate(tree); err != nil {
		return fmt.Errorf("terrain: invalid document: %w", err)
	}
	return nil
}
