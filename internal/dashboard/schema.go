package dashboard

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaMemberCreate = "member_create"
	schemaMemberUpdate = "member_update"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrValidation can be used with errors.Is to detect a body that does not match its schema.
var ErrValidation = errors.New("validation failed")

var requestSchemas = mustCompileSchemas()

// mustCompileSchemas compiles every embedded request schema, keyed by file
// name without extension.
func mustCompileSchemas() map[string]*jsonschema.Schema {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("dashboard: read embedded schemas: %v", err))
	}
	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("dashboard: read schema %q: %v", e.Name(), err))
		}
		out[name] = jsonschema.MustCompileString("https://opsboard.local/schemas/"+name+".json", string(data))
	}
	return out
}

// validateBody rejects a request body that is not JSON or does not match the
// named schema.
func validateBody(schema string, body []byte) error {
	s, ok := requestSchemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON", ErrValidation)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrValidation, leafMessage(ve))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// leafMessage returns the most specific cause, e.g. "/salary: must be >= 0".
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
