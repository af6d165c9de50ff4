// Package parse reads command payload arguments.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getmockd/soapconnect/pkg/util"
)

// ErrNoPayload is returned when neither an argument nor stdin supplied data.
var ErrNoPayload = errors.New("no payload given")

// Payload resolves a payload argument: "@path" reads a file, "-" reads
// stdin, anything else is the payload itself.
func Payload(arg string, stdin io.Reader) ([]byte, error) {
	switch {
	case arg == "-":
		if stdin == nil {
			return nil, ErrNoPayload
		}
		return io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		path, ok := util.SafeFilePathAllowAbsolute(strings.TrimPrefix(arg, "@"))
		if !ok {
			return nil, fmt.Errorf("unsafe file path: %s", arg[1:])
		}
		return os.ReadFile(path)
	default:
		return []byte(arg), nil
	}
}

// JSON resolves a payload argument and decodes it. An empty payload decodes
// to nil.
func JSON(arg string, stdin io.Reader) (any, error) {
	data, err := Payload(arg, stdin)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	// json.Number keeps integers such as 1000000 out of float formatting.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON payload: unexpected data after value")
	}
	return v, nil
}
