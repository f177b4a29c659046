package codec

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/flexdir/internal/apperr"
)

const delim = "---"

// markdownCodec stores a YAML header block between leading --- delimiters
// followed by free text. The text is exposed as the BodyField.
type markdownCodec struct{}

func (markdownCodec) Format() Format { return Markdown }

func (markdownCodec) Decode(data []byte) (map[string]any, error) {
	header, body, err := SplitDocument(data)
	if err != nil {
		return nil, err
	}
	if body != "" || len(header) > 0 {
		header[BodyField] = body
	}
	return header, nil
}

func (markdownCodec) Encode(fields map[string]any) ([]byte, error) {
	header := make(map[string]any, len(fields))
	var body string
	for k, v := range fields {
		if k == BodyField {
			if v != nil {
				body = fmt.Sprint(v)
			}
			continue
		}
		header[k] = v
	}
	return JoinDocument(header, body)
}

// SplitDocument separates the YAML header block from the body. Content
// without a header block is all body. A header block that is not a valid
// YAML mapping is a DecodeError.
func SplitDocument(data []byte) (map[string]any, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return map[string]any{}, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: everything is body.
		return map[string]any{}, string(data), nil
	}

	block := rest[:idx]
	after := string(rest[idx+1+len(delim):])
	// Drop the line break that terminates the closing delimiter.
	if s, ok := strings.CutPrefix(after, "\r\n"); ok {
		after = s
	} else {
		after = strings.TrimPrefix(after, "\n")
	}

	header, err := decodeYAML(block)
	if err != nil {
		return nil, "", &apperr.DecodeError{Format: string(Markdown), Err: err}
	}
	return header, after, nil
}

// JoinDocument renders header and body back into a single document.
func JoinDocument(header map[string]any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(header) > 0 {
		out, err := yaml.Marshal(header)
		if err != nil {
			return nil, fmt.Errorf("codec: encode markdown header: %w", err)
		}
		buf.Write(out)
	}
	buf.WriteString(delim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
