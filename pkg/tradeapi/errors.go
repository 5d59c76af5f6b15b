package tradeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetBytes = 512

// ErrNotJSON is returned when a successful response does not carry a JSON body.
var ErrNotJSON = errors.New("response body is not valid json")

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: backend responded %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend responded %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError carrying code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func newStatusError(method, path string, status int, contentType string, body []byte) *StatusError {
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    summarizeBody(contentType, body),
	}
}

// summarizeBody extracts a short human readable reason from an error body.
// The backend answers errors as {"detail": ...}; proxies in front of it tend to answer HTML.
func summarizeBody(contentType string, body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	if msg := jsonDetail(body); msg != "" {
		return msg
	}
	if strings.Contains(strings.ToLower(contentType), "html") || looksLikeHTML(body) {
		if msg := htmlTitle(body); msg != "" {
			return msg
		}
	}
	return snippet(body)
}

func jsonDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	// validation errors come back as a list of objects
	return snippet(payload.Detail)
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1"} {
		if text := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " "); text != "" {
			return text
		}
	}
	return ""
}

// snippet bounds body to maxSnippetBytes, backing up to a rune boundary.
func snippet(body []byte) string {
	if len(body) > maxSnippetBytes {
		cut := maxSnippetBytes
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return strings.TrimSpace(string(body))
}
