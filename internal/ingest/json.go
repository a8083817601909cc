package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// uploads must be an array of objects; field contents are handled by the
// key fallbacks, not the schema
const recordsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {"type": "object"}
}`

var recordsSchema = mustSchema(recordsSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile records schema: %v", err))
	}
	return schema
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeJSON(content []byte) ([]Record, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &FormatError{Format: "json", Reason: "file is empty"}
	}

	result, err := recordsSchema.Validate(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return nil, &FormatError{Format: "json", Reason: "invalid JSON", Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &FormatError{Format: "json", Reason: strings.Join(msgs, "; ")}
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var rows []Record
	if err := dec.Decode(&rows); err != nil {
		return nil, &FormatError{Format: "json", Reason: "decode records", Err: err}
	}
	return rows, nil
}
