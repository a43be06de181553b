package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionRequest_RoundTripPreservesUnknownFields(t *testing.T) {
	raw := []byte(`{
		"model": "m",
		"messages": [{"role":"user","content":"hi"}],
		"temperature": 0.5,
		"some_future_field": {"nested": true}
	}`)

	var req ChatCompletionRequest
	require.NoError(t, json.Unmarshal(raw, &req))

	assert.Equal(t, "m", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.5, *req.Temperature)
	assert.Contains(t, req.Extra, "some_future_field")

	out, err := json.Marshal(req)
	require.NoError(t, err)

	var roundTripped map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Contains(t, roundTripped, "some_future_field")
	assert.Contains(t, roundTripped, "model")
	assert.Contains(t, roundTripped, "temperature")
}

func TestContent_StringForm(t *testing.T) {
	var c Content
	require.NoError(t, json.Unmarshal([]byte(`"hello"`), &c))
	assert.False(t, c.IsList)
	assert.Equal(t, "hello", c.AsText())
}

func TestContent_ListForm(t *testing.T) {
	var c Content
	raw := []byte(`[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"http://x"}}]`)
	require.NoError(t, json.Unmarshal(raw, &c))
	assert.True(t, c.IsList)
	assert.Equal(t, "a", c.AsText())
	assert.Equal(t, "http://x", c.Parts[1].ImageURL.URL)
}

func TestStopSequences_StringAndList(t *testing.T) {
	var s StopSequences
	require.NoError(t, json.Unmarshal([]byte(`"\n"`), &s))
	assert.Equal(t, []string{"\n"}, s.Values)

	var s2 StopSequences
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &s2))
	assert.Equal(t, []string{"a", "b"}, s2.Values)
}

func TestChatCompletionRequest_Validate(t *testing.T) {
	cases := []struct {
		name    string
		req     ChatCompletionRequest
		wantErr bool
	}{
		{"missing model", ChatCompletionRequest{Messages: []Message{{Role: RoleUser, Content: Content{Text: "hi"}}}}, true},
		{"no messages", ChatCompletionRequest{Model: "m"}, true},
		{"valid", ChatCompletionRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: Content{Text: "hi"}}}}, false},
		{"unknown role", ChatCompletionRequest{Model: "m", Messages: []Message{{Role: "bogus", Content: Content{Text: "hi"}}}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmbeddingsInput_Forms(t *testing.T) {
	var single EmbeddingsInput
	require.NoError(t, json.Unmarshal([]byte(`"hello"`), &single))
	assert.Equal(t, []string{"hello"}, single.Strings)

	var list EmbeddingsInput
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &list))
	assert.Equal(t, []string{"a", "b"}, list.Strings)

	var tokens EmbeddingsInput
	require.NoError(t, json.Unmarshal([]byte(`[1,2,3]`), &tokens))
	assert.True(t, tokens.IsTokens)
	assert.Equal(t, [][]int{{1, 2, 3}}, tokens.TokenLists)

	var tokenLists EmbeddingsInput
	require.NoError(t, json.Unmarshal([]byte(`[[1,2],[3,4]]`), &tokenLists))
	assert.True(t, tokenLists.IsTokens)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, tokenLists.TokenLists)
}

func TestEmbeddingsRequest_Validate(t *testing.T) {
	r := EmbeddingsRequest{Input: EmbeddingsInput{Strings: []string{"hello"}}}
	assert.Error(t, r.Validate(), "missing model should fail")

	r.Model = "m"
	assert.NoError(t, r.Validate())
}
