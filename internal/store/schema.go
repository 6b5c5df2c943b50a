package store

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	configSchemaURL     = "https://textshortcutter.invalid/schema/config.json"
	expansionsSchemaURL = "https://textshortcutter.invalid/schema/expansions.json"
)

var (
	schemaOnce       sync.Once
	configSchema     *jsonschema.Schema
	expansionsSchema *jsonschema.Schema
	schemaErr        error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	for url, file := range map[string]string{
		configSchemaURL:     "schema/config.schema.json",
		expansionsSchemaURL: "schema/expansions.schema.json",
	} {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			schemaErr = err
			return
		}
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("add schema resource %s: %w", file, err)
			return
		}
	}

	if configSchema, schemaErr = compiler.Compile(configSchemaURL); schemaErr != nil {
		return
	}
	expansionsSchema, schemaErr = compiler.Compile(expansionsSchemaURL)
}

func validateAgainst(which string, data []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return fmt.Errorf("compile schema: %w", schemaErr)
	}

	schema := configSchema
	if which == expansionsSchemaURL {
		schema = expansionsSchema
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return err
	}
	return schema.Validate(instance)
}

// expansionsRecord is the plaintext layout of the expansions record.
type expansionsRecord struct {
	Version    int         `json:"version"`
	Expansions []Expansion `json:"expansions"`
}
