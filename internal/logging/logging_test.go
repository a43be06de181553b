package logging

import "testing"

func TestIsSecretKey(t *testing.T) {
	cases := map[string]bool{
		"Authorization":      true,
		"authorization":      true,
		"X-Api-Key":          true,
		"CEREBRAS_API_KEY":   true,
		"x-request-id":       false,
		"Content-Type":       false,
		"refresh_token":      true,
		"client_secret":      true,
	}
	for key, want := range cases {
		if got := IsSecretKey(key); got != want {
			t.Errorf("IsSecretKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestRedactHeaders(t *testing.T) {
	headers := map[string][]string{
		"Authorization": {"Bearer sk-secret"},
		"X-Request-Id":  {"req-1"},
	}
	redacted := RedactHeaders(headers)
	if redacted["Authorization"] != "[redacted]" {
		t.Errorf("Authorization = %q, want redacted", redacted["Authorization"])
	}
	if redacted["X-Request-Id"] != "req-1" {
		t.Errorf("X-Request-Id = %q, want passthrough", redacted["X-Request-Id"])
	}
}

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New("not-a-level")
	if logger.GetLevel().String() != "info" {
		t.Errorf("level = %q, want info", logger.GetLevel().String())
	}
}
