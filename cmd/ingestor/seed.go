package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/arboimoveis/mapexplorer/internal/core/domain"
)

//go:embed schema/properties.json
var seedSchemaJSON []byte

const seedSchemaURL = "properties.json"

// compileSeedSchema compiles the schema every seed file must satisfy.
func compileSeedSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(seedSchemaURL, bytes.NewReader(seedSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add seed schema: %w", err)
	}
	return compiler.Compile(seedSchemaURL)
}

// decodeSeed validates data against schema and decodes the listings. Records
// without a creation time are stamped with now.
func decodeSeed(schema *jsonschema.Schema, data []byte, now time.Time) ([]domain.PropertyRecord, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("seed is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("seed schema validation failed: %w", err)
	}

	var records []domain.PropertyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range records {
		records[i] = records[i].Normalized()
		if records[i].Slug == "" {
			records[i].Slug = records[i].ID
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
	}
	return records, nil
}

func loadSeedFile(schema *jsonschema.Schema, path string, now time.Time) ([]domain.PropertyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := decodeSeed(schema, data, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// chunks splits records into batches of at most size.
func chunks(records []domain.PropertyRecord, size int) [][]domain.PropertyRecord {
	var out [][]domain.PropertyRecord
	for len(records) > size {
		out = append(out, records[:size])
		records = records[size:]
	}
	if len(records) > 0 {
		out = append(out, records)
	}
	return out
}
