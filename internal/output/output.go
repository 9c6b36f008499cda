// Package output writes completion text and results to the terminal.
// It supports text and JSON formats.
package output

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// Format represents an output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Format returns the configured format.
func (wr *Writer) Format() Format { return wr.format }

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Result is the JSON document written after a completion in json format.
type Result struct {
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
	Answer   string `json:"answer"`
	Error    string `json:"error,omitempty"`
}

// WriteResult writes r in the configured format. Text format writes nothing
// because the answer has already been streamed.
func (wr *Writer) WriteResult(r Result) error {
	if wr.format != FormatJSON {
		return nil
	}
	return wr.WriteJSON(r)
}

// Sink is the completion output stream. Each Flush pushes buffered text to
// the underlying writer so fragments appear as they arrive.
type Sink struct {
	bw *bufio.Writer
}

// NewSink wraps w.
func NewSink(w io.Writer) *Sink {
	return &Sink{bw: bufio.NewWriter(w)}
}

// Write buffers p.
func (s *Sink) Write(p []byte) (int, error) {
	return s.bw.Write(p)
}

// Flush writes any buffered text to the underlying writer.
func (s *Sink) Flush() error {
	return s.bw.Flush()
}
