// Package toolcall extracts TOOL_CALL directives from free-form model replies.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	StartMarker   = "TOOL_CALL:"
	EndMarker     = "END_TOOL"
	SpeakerPrefix = "Asistan:"
)

var (
	ErrNoObject        = errors.New("no json object after marker")
	ErrMissingTool     = errors.New("tool name is missing")
	ErrInvalidArgument = errors.New("parameters must be an object")
)

type Kind int

const (
	KindPlain Kind = iota
	KindCall
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindCall:
		return "call"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Call struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// Reply is the parsed form of a model answer. Text holds the raw reply for
// KindPlain and KindMalformed; Call is set only for KindCall.
type Reply struct {
	Kind Kind
	Text string
	Call Call
	Err  error
}

// Parse classifies text. A reply without the start marker is plain prose. The
// end marker is optional; prose after the JSON object is ignored.
func Parse(text string) Reply {
	start := strings.Index(text, StartMarker)
	if start < 0 {
		return Reply{Kind: KindPlain, Text: text}
	}

	body := text[start+len(StartMarker):]
	if end := strings.Index(body, EndMarker); end >= 0 {
		body = body[:end]
	}

	call, err := decodeCall(body)
	if err != nil {
		log.Warn().Err(err).Str("raw", text).Msg("malformed tool call")
		return Reply{Kind: KindMalformed, Text: text, Err: err}
	}
	return Reply{Kind: KindCall, Text: text, Call: call}
}

func decodeCall(body string) (Call, error) {
	body = trimFences(body)

	open := strings.Index(body, "{")
	if open < 0 {
		return Call{}, ErrNoObject
	}

	var raw struct {
		Tool       any             `json:"tool"`
		Parameters json.RawMessage `json:"parameters"`
	}
	dec := json.NewDecoder(strings.NewReader(body[open:]))
	if err := dec.Decode(&raw); err != nil {
		return Call{}, fmt.Errorf("decode tool call: %w", err)
	}

	name, _ := raw.Tool.(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return Call{}, ErrMissingTool
	}

	params := map[string]any{}
	trimmed := strings.TrimSpace(string(raw.Parameters))
	if trimmed != "" && trimmed != "null" {
		if !strings.HasPrefix(trimmed, "{") {
			return Call{}, ErrInvalidArgument
		}
		if err := json.Unmarshal(raw.Parameters, &params); err != nil {
			return Call{}, fmt.Errorf("decode parameters: %w", err)
		}
		if params == nil {
			params = map[string]any{}
		}
	}

	return Call{Tool: name, Parameters: params}, nil
}

func trimFences(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```")
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(body, "json")
		}
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// Strip cuts everything from the first protocol marker onwards and removes a
// leading speaker label. Legitimate prose containing the marker strings is
// truncated as well.
func Strip(text string) string {
	if i := strings.Index(text, StartMarker); i >= 0 {
		text = text[:i]
	}
	if i := strings.Index(text, EndMarker); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, SpeakerPrefix) {
		text = strings.TrimSpace(strings.TrimPrefix(text, SpeakerPrefix))
	}
	return text
}
