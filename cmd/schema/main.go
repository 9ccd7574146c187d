package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"harvest-and-haul/server/internal/harvest"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "internal/harvest/config_schema.json", "path to write the JSON schema")
	flag.Parse()

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(harvest.Config))
	schema.Version = ""
	schema.Title = "Harvest Tuning"
	schema.Description = "Tunable constants for the autonomous harvesting subsystem."
	// Tuning documents are partial overlays onto the defaults, so nothing
	// is required and unknown keys are rejected.
	schema.Required = nil
	schema.AdditionalProperties = jsonschema.FalseSchema
	normalizeProperties(schema.Properties)
	return schema
}

// normalizeProperties strips nested version markers the reflector stamps on
// inlined property schemas.
func normalizeProperties(props *orderedmap.OrderedMap) {
	if props == nil {
		return
	}
	for _, key := range props.Keys() {
		raw, ok := props.Get(key)
		if !ok {
			continue
		}
		if prop, ok := raw.(*jsonschema.Schema); ok {
			prop.Version = ""
		}
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
