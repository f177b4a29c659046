// Package codec encodes and decodes a single file's bytes to and from a plain
// field mapping.
package codec

import (
	"fmt"
	"strings"
)

// Format names a storage format.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
)

// BodyField is the reserved field holding the free text of a Markdown file.
const BodyField = "markdown"

// Ext returns the file extension used for the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case Markdown:
		return "md"
	}
	return ""
}

// DataFormat returns the format used for sidecar files next to a file of
// format f. Markdown cannot hold a bare mapping, so its sidecars are YAML.
func (f Format) DataFormat() Format {
	if f == Markdown {
		return YAML
	}
	return f
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Codec converts between file bytes and a field mapping.
type Codec interface {
	Format() Format
	// Decode returns an empty, non-nil mapping for empty input.
	Decode(data []byte) (map[string]any, error)
	Encode(fields map[string]any) ([]byte, error)
}

var constructors = map[Format]func() Codec{
	JSON:     func() Codec { return jsonCodec{} },
	YAML:     func() Codec { return yamlCodec{} },
	Markdown: func() Codec { return markdownCodec{} },
}

// For returns the codec registered for f.
func For(f Format) (Codec, error) {
	newCodec, ok := constructors[f]
	if !ok {
		return nil, fmt.Errorf("no codec for format %q", f)
	}
	return newCodec(), nil
}

func isBlank(data []byte) bool {
	return len(strings.TrimSpace(string(data))) == 0
}
