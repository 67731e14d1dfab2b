package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"

	"hauntsim/server/internal/house"
)

// Schema describes the YAML configuration file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(Config))
	schema.Title = "Haunt Simulation Configuration"
	schema.Description = "Run settings layered under HAUNT_* environment overrides."
	return schema
}

// LayoutSchema describes a house layout file.
func LayoutSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(house.Layout))
	schema.Title = "Haunt Simulation Layout"
	schema.Description = "Named rooms, the exit room and undirected edges between rooms."
	return schema
}

// WriteSchema encodes schema as indented JSON followed by a newline.
func WriteSchema(w io.Writer, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
