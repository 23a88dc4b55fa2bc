package scope

import (
	"encoding/json"
	"os"

	"github.com/rendis/tickrule/pkg/schema"
)

// ParseProjectVars decodes a project-variable document: a JSON object of
// name -> value, user-editable and independent of any chart or bot
// instance.
func ParseProjectVars(data []byte) (map[string]schema.Value, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeSchema, "cannot parse project variables document").
			WithCause(err)
	}

	out := make(map[string]schema.Value, len(raw))
	for name, v := range raw {
		if name == "" {
			return nil, schema.NewError(schema.ErrCodeSchema, "project variable with empty name").
				WithPath("/")
		}
		out[name] = schema.FromAny(v)
	}
	return out, nil
}

// LoadProjectVars reads and decodes a project-variable file.
func LoadProjectVars(path string) (map[string]schema.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"cannot read project variables file %s", path).WithCause(err)
	}
	return ParseProjectVars(data)
}
