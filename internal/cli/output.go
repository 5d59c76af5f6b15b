package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// printJSON writes a backend response indented, falling back to the raw bytes.
func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// readJSONArg accepts inline JSON or "-" for stdin.
func readJSONArg(arg string, stdin io.Reader) (json.RawMessage, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("argument is not valid json: %.80s", data)
	}
	return json.RawMessage(data), nil
}
