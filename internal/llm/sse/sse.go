// Package sse decodes chat-completion server-sent-event streams into text
// deltas. It does no I/O of its own.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
	"unicode"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Kind tags an Event.
type Kind int

const (
	// KindDelta carries an incremental text fragment.
	KindDelta Kind = iota
	// KindDone marks the end of the stream. Nothing follows it.
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindDelta:
		return "delta"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is a single decoded stream event.
type Event struct {
	Kind Kind
	Text string
}

// Delta returns a delta event.
func Delta(text string) Event { return Event{Kind: KindDelta, Text: text} }

// Done returns the terminal event.
func Done() Event { return Event{Kind: KindDone} }

// Decode yields the events found in an SSE response body, in order.
// Frames after the [DONE] sentinel are never yielded. A body without the
// sentinel simply ends when its frames run out.
func Decode(body []byte) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		// A bytes.Reader never fails, so the error half is always nil.
		for ev := range Stream(bytes.NewReader(body)) {
			if !yield(ev) {
				return
			}
		}
	}
}

// Stream is Decode over a live reader: each event is yielded as soon as its
// line has been read. A read error other than io.EOF is yielded once, after
// every event decoded before it, and ends the sequence.
func Stream(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				if ev, ok := ParseFrame(line); ok {
					if !yield(ev, nil) || ev.Kind == KindDone {
						return
					}
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Event{}, err)
				}
				return
			}
		}
	}
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseFrame decodes one line of an SSE body. ok is false for lines that
// carry no event: keep-alives, comments, non-data fields, malformed JSON and
// chunks without delta content.
func ParseFrame(line string) (ev Event, ok bool) {
	line = strings.ToValidUTF8(line, string(unicode.ReplacementChar))
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

	payload, found := strings.CutPrefix(line, dataPrefix)
	if !found {
		return Event{}, false
	}
	if payload == doneSentinel {
		return Done(), true
	}

	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Event{}, false
	}
	if len(c.Choices) == 0 {
		return Event{}, false
	}
	content := c.Choices[0].Delta.Content
	if content == nil || *content == "" {
		return Event{}, false
	}
	return Delta(*content), true
}
