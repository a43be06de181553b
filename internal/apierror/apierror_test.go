package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Auth("bad token").Status())
	assert.Equal(t, http.StatusUnprocessableEntity, Validation("bad body").Status())
	assert.Equal(t, http.StatusBadGateway, Provider("upstream failed", errors.New("boom")).Status())
	assert.Equal(t, http.StatusNotImplemented, NotImplemented("no streaming here").Status())
	assert.Equal(t, http.StatusInternalServerError, Internal("oops", errors.New("boom")).Status())
}

func TestBody_NeverLeaksCause(t *testing.T) {
	e := Provider("upstream call failed", errors.New("dial tcp 127.0.0.1:11434: connection refused"))

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(e.Body(), &decoded))

	msg, _ := decoded["error"]["message"].(string)
	assert.Equal(t, "upstream call failed", msg)
	assert.NotContains(t, string(e.Body()), "connection refused")
}

func TestAs_DefaultsUnclassifiedToInternal(t *testing.T) {
	got := As(errors.New("totally unexpected"))
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.Status())
}

func TestAs_PassesThroughTypedErrors(t *testing.T) {
	original := Auth("missing bearer token")
	got := As(original)
	assert.Same(t, original, got)
}
