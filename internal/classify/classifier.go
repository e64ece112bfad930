// File: internal/classify/classifier.go
// Description: Shared success classification logic. Every detector funnels its
// raw signal (text, URL, or structured message payload) through a Classifier
// to decide whether the booking widget has completed.

package classify

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Classifier matches signals against a fixed success vocabulary. It is
// stateless after construction and safe for concurrent use from every
// detector callback.
type Classifier struct {
	vocabulary    []string
	completionTag string
}

// New creates a Classifier from a vocabulary of success tokens and the
// message "type" value that counts as a completion shortcut. Tokens are
// lowercased; empty tokens are dropped.
func New(vocabulary []string, completionTag string) *Classifier {
	vocab := make([]string, 0, len(vocabulary))
	for _, token := range vocabulary {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			vocab = append(vocab, token)
		}
	}
	return &Classifier{
		vocabulary:    vocab,
		completionTag: strings.ToLower(strings.TrimSpace(completionTag)),
	}
}

// MatchText reports whether any vocabulary token is contained in text,
// case-insensitively. Empty input never matches and never panics.
func (c *Classifier) MatchText(text string) bool {
	if text == "" {
		return false
	}
	lowered := strings.ToLower(text)
	for _, token := range c.vocabulary {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// MatchURL reports whether a URL indicates completion. URLs are classified as
// plain text: a thank-you path or query segment is a substring match like any
// other.
func (c *Classifier) MatchURL(rawURL string) bool {
	return c.MatchText(rawURL)
}

// messageShortcut mirrors the structured fields cooperating widgets commonly
// post: {"success": true}, {"status": "success"}, or a typed completion event.
type messageShortcut struct {
	Success any    `json:"success"`
	Status  string `json:"status"`
	Type    string `json:"type"`
}

// MatchMessage classifies a raw message payload. Structured shortcuts are
// checked first and short-circuit on any hit; this avoids false negatives
// from payloads whose serialized form contains no vocabulary token. Anything
// else degrades to text classification over the serialized payload.
// Malformed or empty payloads return false without error.
func (c *Classifier) MatchMessage(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}

	var shortcut messageShortcut
	if err := json.Unmarshal(payload, &shortcut); err == nil {
		if truthy(shortcut.Success) {
			return true
		}
		if strings.EqualFold(shortcut.Status, "success") {
			return true
		}
		if c.completionTag != "" && strings.EqualFold(shortcut.Type, c.completionTag) {
			return true
		}
	}

	// Fallback: treat the serialized payload as text.
	return c.MatchText(string(payload))
}

// MatchMessageValue is MatchMessage for payloads that were already decoded
// (e.g. a value pulled out of a larger envelope). The value is re-serialized
// for the text fallback so nested fields still participate.
func (c *Classifier) MatchMessageValue(value any) bool {
	if value == nil {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return c.MatchMessage(raw)
}

// truthy applies JavaScript-ish truthiness to a decoded JSON value, since the
// posting widget speaks JS conventions.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != "" && !strings.EqualFold(x, "false") && x != "0"
	default:
		// Non-empty objects and arrays are truthy.
		return true
	}
}
