package provider

import (
	"time"

	"github.com/google/uuid"
	"github.com/samirk/openllm-gateway/internal/openai"
)

// NewCompletionID generates a fresh "chatcmpl-<opaque>" identifier
// (spec.md §3/§4.3). Every unary response and every streamed response
// gets exactly one, generated once and reused across all chunks of a
// stream.
func NewCompletionID() string {
	return "chatcmpl-" + uuid.New().String()
}

// EpochFromRFC3339 parses an upstream RFC3339/ISO-8601 timestamp into
// Unix seconds, falling back to the current time on parse failure
// (spec.md §9 Open Question: "the former is safer and matches the newer
// docs" — fallback now, not zero).
func EpochFromRFC3339(s string) int64 {
	if s == "" {
		return time.Now().Unix()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().Unix()
	}
	return t.Unix()
}

// FinishReasonFromDone derives a finish_reason from an upstream's
// done/done_reason pair (spec.md §4.3: "done=true ⇒ 'stop' when no
// reason"). doneReason values that don't map to a known OpenAI finish
// reason pass through as "stop" — providers in this gateway don't
// surface tool calls or content filtering on the local runner.
func FinishReasonFromDone(done bool, doneReason string) openai.FinishReason {
	if !done {
		return ""
	}
	switch doneReason {
	case "length":
		return openai.FinishLength
	case "stop", "":
		return openai.FinishStop
	default:
		return openai.FinishStop
	}
}

// ZeroUsage is the usage record emitted when an upstream doesn't report
// token counts (spec.md §3: "defaulting to zero when upstream does not
// report them").
func ZeroUsage() openai.Usage {
	return openai.Usage{}
}

// epochNow is the created timestamp for responses with no upstream
// timestamp to parse, such as the custom provider's synthetic replies.
func epochNow() int64 {
	return time.Now().Unix()
}
