// Package openai defines the permissive request/response shapes the
// gateway speaks on its client-facing HTTP surface. Types here model the
// OpenAI Chat Completions / Embeddings / Models wire format closely
// enough that an unmodified OpenAI SDK client can talk to the gateway.
package openai

import (
	"encoding/json"
	"fmt"
)

// Role is the set of recognized message roles (spec.md §3).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
	RoleFunction  Role = "function"
)

// FinishReason is the closed set of finish reasons the gateway emits.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolCalls     FinishReason = "tool_calls"
)

// ContentPart is one typed piece of a multi-part message content array.
// Only "text" and "image_url" parts are in scope (spec.md §1 Non-goals
// excludes richer multimodal content).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL is the payload of an "image_url" content part.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Content is the tagged union described in spec.md §9: a message's
// content is either a plain string or an ordered list of ContentParts.
// It round-trips through JSON preserving which wire form was used so a
// provider that must reject the list form can collapse it to text
// without losing the distinction for requests that never needed it.
type Content struct {
	// Text holds the scalar string form. IsList is false when this form
	// was used.
	Text string

	// Parts holds the list-of-parts form. IsList is true when this form
	// was used.
	Parts []ContentPart

	IsList bool
}

// UnmarshalJSON accepts either a JSON string or a JSON array of
// ContentPart objects.
func (c *Content) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		c.Text = asString
		c.Parts = nil
		c.IsList = false
		return nil
	}

	var asParts []ContentPart
	if err := json.Unmarshal(data, &asParts); err != nil {
		return err
	}
	c.Parts = asParts
	c.Text = ""
	c.IsList = true
	return nil
}

// MarshalJSON re-emits whichever wire form was parsed (or set directly).
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsList {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// AsText collapses the content to a single string, concatenating the
// text of every "text" part when the list form was used. Used when
// re-offering content to an upstream known to reject the list form
// (spec.md §4.4).
func (c Content) AsText() string {
	if !c.IsList {
		return c.Text
	}
	var out string
	for _, p := range c.Parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// Message is one entry in a chat completion request's message array.
type Message struct {
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
	Name       string  `json:"name,omitempty"`
	ToolCallID string  `json:"tool_call_id,omitempty"`
}

// StopSequences is the tagged union for the "stop" field: either a single
// string or a list of strings.
type StopSequences struct {
	Values []string
}

func (s *StopSequences) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != "" {
			s.Values = []string{asString}
		}
		return nil
	}

	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return err
	}
	s.Values = asList
	return nil
}

func (s StopSequences) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values)
}

// ChatCompletionRequest is the permissive incoming request shape
// (spec.md §3). Known fields are validated; everything else round-trips
// through Extra untouched.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	N                *int            `json:"n,omitempty"`
	Stop             *StopSequences  `json:"stop,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	User             string          `json:"user,omitempty"`
	LogitBias        map[string]int  `json:"logit_bias,omitempty"`
	LogProbs         *bool           `json:"logprobs,omitempty"`
	TopLogProbs      *int            `json:"top_logprobs,omitempty"`
	Tools            json.RawMessage `json:"tools,omitempty"`
	ToolChoice       json.RawMessage `json:"tool_choice,omitempty"`
	Functions        json.RawMessage `json:"functions,omitempty"`
	FunctionCall     json.RawMessage `json:"function_call,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	StreamOptions    json.RawMessage `json:"stream_options,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`

	// Extra carries every JSON field that isn't named above, so a
	// round-trip never silently drops data a downstream provider might
	// still need (spec.md §9 "dynamic extra-fields permissiveness").
	Extra map[string]json.RawMessage `json:"-"`
}

// ResponseFormat is the (permissive) response_format object.
type ResponseFormat struct {
	Type string `json:"type"`
}

// knownChatFields lists the JSON keys consumed by named struct fields,
// used to split the incoming object into known vs. Extra.
var knownChatFields = map[string]bool{
	"model": true, "messages": true, "temperature": true, "top_p": true,
	"top_k": true, "max_tokens": true, "n": true, "stop": true,
	"presence_penalty": true, "frequency_penalty": true, "seed": true,
	"user": true, "logit_bias": true, "logprobs": true, "top_logprobs": true,
	"tools": true, "tool_choice": true, "functions": true, "function_call": true,
	"response_format": true, "stream": true, "stream_options": true, "metadata": true,
}

// UnmarshalJSON decodes known fields via the struct tags above and stashes
// everything else into Extra.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type alias ChatCompletionRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ChatCompletionRequest(a)

	var whole map[string]json.RawMessage
	if err := json.Unmarshal(data, &whole); err != nil {
		return err
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range whole {
		if !knownChatFields[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		r.Extra = extra
	}
	return nil
}

// MarshalJSON re-emits known fields plus whatever is in Extra, so unknown
// fields a client sent survive a decode/re-encode round-trip.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	type alias ChatCompletionRequest
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Validate enforces the invariants spec.md §3 requires before a provider
// ever sees the request: a non-empty model and at least one message.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return errInvalid("model must not be empty")
	}
	if len(r.Messages) == 0 {
		return errInvalid("messages must contain at least one entry")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool, RoleDeveloper, RoleFunction:
		default:
			return errInvalid("messages[%d].role %q is not a recognized role", i, m.Role)
		}
		if !m.Content.IsList && m.Content.Text == "" && m.Role != RoleAssistant {
			return errInvalid("messages[%d].content must not be empty", i)
		}
	}
	return nil
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func errInvalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// Usage mirrors spec.md §3's usage record.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one entry in a non-streaming response's choices array.
type Choice struct {
	Index        int             `json:"index"`
	Message      Message         `json:"message"`
	FinishReason FinishReason    `json:"finish_reason"`
	LogProbs     json.RawMessage `json:"logprobs,omitempty"`
}

// ChatCompletionResponse is the unary response shape (spec.md §3).
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ChunkDelta is the incremental content on a streaming choice.
type ChunkDelta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one entry in a streaming chunk's choices array.
type ChunkChoice struct {
	Index        int           `json:"index"`
	Delta        ChunkDelta    `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChatCompletionChunk is the streaming unit (spec.md §3).
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// EmbeddingsInput is the tagged union for the embeddings "input" field:
// a string, a list of strings, a list of token ids, or a list of lists
// of token ids.
type EmbeddingsInput struct {
	Strings    []string
	TokenLists [][]int
	IsTokens   bool
}

func (e *EmbeddingsInput) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.Strings = []string{asString}
		return nil
	}

	var asStrings []string
	if err := json.Unmarshal(data, &asStrings); err == nil {
		e.Strings = asStrings
		return nil
	}

	var asTokens []int
	if err := json.Unmarshal(data, &asTokens); err == nil {
		e.TokenLists = [][]int{asTokens}
		e.IsTokens = true
		return nil
	}

	var asTokenLists [][]int
	if err := json.Unmarshal(data, &asTokenLists); err != nil {
		return err
	}
	e.TokenLists = asTokenLists
	e.IsTokens = true
	return nil
}

func (e EmbeddingsInput) MarshalJSON() ([]byte, error) {
	if e.IsTokens {
		return json.Marshal(e.TokenLists)
	}
	return json.Marshal(e.Strings)
}

// EmbeddingsRequest is the incoming embeddings request shape.
type EmbeddingsRequest struct {
	Model          string          `json:"model"`
	Input          EmbeddingsInput `json:"input"`
	Dimensions     *int            `json:"dimensions,omitempty"`
	User           string          `json:"user,omitempty"`
	EncodingFormat string          `json:"encoding_format,omitempty"`
}

// Validate enforces the invariants needed before dispatch: model and
// input are both required.
func (r *EmbeddingsRequest) Validate() error {
	if r.Model == "" {
		return errInvalid("model must not be empty")
	}
	if len(r.Input.Strings) == 0 && len(r.Input.TokenLists) == 0 {
		return errInvalid("input must not be empty")
	}
	return nil
}

// EmbeddingItem is one entry in an embeddings response's data array.
type EmbeddingItem struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse is the outgoing embeddings response shape.
type EmbeddingsResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingItem `json:"data"`
	Model  string          `json:"model"`
	Usage  Usage           `json:"usage"`
}

// Model is one entry in a model-list response.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the outgoing `GET /models` response shape.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
