package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/flexdir/internal/apperr"
)

type yamlCodec struct{}

func (yamlCodec) Format() Format { return YAML }

func (yamlCodec) Decode(data []byte) (map[string]any, error) {
	return decodeYAML(data)
}

func (yamlCodec) Encode(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	out, err := yaml.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("codec: encode yaml: %w", err)
	}
	return out, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	if isBlank(data) {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, &apperr.DecodeError{Format: string(YAML), Err: err}
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
