package catalog

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema builds the JSON schema describing config/blocks/definitions.json.
// The document accepts either the canonical array format or an object keyed
// by block ID, mirroring what the loader accepts at runtime.
func Schema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entrySchema := reflector.ReflectFromType(reflect.TypeOf(EntryDocument{}))
	if entrySchema == nil {
		return nil, fmt.Errorf("failed to reflect entry schema")
	}
	entrySchema.Version = ""
	entrySchema.Title = "Block Definition"
	entrySchema.Description = "Designer-authored block definition resolved by the runtime."
	entrySchema.AdditionalProperties = &jsonschema.Schema{}

	arraySchema := &jsonschema.Schema{
		Type:        "array",
		Title:       "Array Catalog",
		Description: "Block catalog expressed as an array of definition objects.",
		Items:       entrySchema,
	}

	objectSchema := &jsonschema.Schema{
		Type:                 "object",
		Title:                "Object Catalog",
		Description:          "Block catalog expressed as an object keyed by block ID.",
		AdditionalProperties: entrySchema,
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Quarry Block Catalog",
		Description: "Designer-authored block definitions consumed by the quarry engine.",
		OneOf: []*jsonschema.Schema{
			arraySchema,
			objectSchema,
		},
	}

	return root, nil
}
