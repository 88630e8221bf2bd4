// Package response defines the completed-exchange value handed to script
// executions and extraction rules. The network call itself is performed by
// an external HTTP client; this package only models its outcome.
package response

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Response is the outcome of one HTTP exchange. It is owned by the caller;
// scripts and extractors only read it.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       []byte            `json:"-"`
	Duration   time.Duration     `json:"-"`
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header performs a case-insensitive header lookup.
func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

// IsJSON reports whether the body should be treated as JSON, either by
// content type or because the body itself parses.
func (r *Response) IsJSON() bool {
	if strings.Contains(r.ContentType(), "application/json") {
		return true
	}
	return json.Valid(r.Body)
}

// JSON parses the body as JSON. The result's Exists method reports whether
// parsing produced anything usable.
func (r *Response) JSON() gjson.Result {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r *Response) IsError() bool {
	return r.Status >= 400
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
