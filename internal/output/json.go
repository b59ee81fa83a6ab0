package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Formats accepted by Output
const (
	FormatTable   = "table"
	FormatJSON    = "json"
	FormatCompact = "compact" // one JSON document per line, for scripts
)

// JSON writes data as indented JSON to stdout
func JSON(data interface{}) error {
	return JSONTo(os.Stdout, data)
}

// JSONTo writes data as indented JSON. Results carry HTML bodies and links,
// so <, > and & are written as-is.
func JSONTo(w io.Writer, data interface{}) error {
	return encode(w, data, "  ")
}

// JSONCompactTo writes data as a single line of JSON
func JSONCompactTo(w io.Writer, data interface{}) error {
	return encode(w, data, "")
}

func encode(w io.Writer, data interface{}, indent string) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	return encoder.Encode(data)
}

// Output writes data to stdout in the given format
func Output(format string, data interface{}) error {
	return OutputTo(os.Stdout, format, data)
}

// OutputTo writes data to w in the given format
func OutputTo(w io.Writer, format string, data interface{}) error {
	switch format {
	case FormatJSON:
		return JSONTo(w, data)
	case FormatCompact:
		return JSONCompactTo(w, data)
	case FormatTable, "":
		return TableTo(w, data)
	default:
		return fmt.Errorf("unknown output format: %s (use table, json or compact)", format)
	}
}
