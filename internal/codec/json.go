package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tailscale/hujson"

	"github.com/starford/flexdir/internal/apperr"
)

// jsonCodec reads JSON with comments and trailing commas, writes plain
// indented JSON. Integral numbers decode as int, like the YAML codec;
// every other number decodes as float64.
type jsonCodec struct{}

func (jsonCodec) Format() Format { return JSON }

func (jsonCodec) Decode(data []byte) (map[string]any, error) {
	if isBlank(data) {
		return map[string]any{}, nil
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, &apperr.DecodeError{Format: string(JSON), Err: err}
	}
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, &apperr.DecodeError{Format: string(JSON), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &apperr.DecodeError{Format: string(JSON), Err: errors.New("unexpected data after top-level object")}
	}
	if out == nil {
		return map[string]any{}, nil
	}
	for k, v := range out {
		out[k] = numbers(v)
	}
	return out, nil
}

// numbers replaces json.Number values below v with int or float64.
func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
	}
	return v
}

func (jsonCodec) Encode(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.MarshalIndent(fields, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("codec: encode json: %w", err)
	}
	return append(data, '\n'), nil
}
