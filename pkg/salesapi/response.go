package salesapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// MaxResponseSize bounds response body reads.
const MaxResponseSize int64 = 32 << 20

// Response is an unwrapped API answer. JSON is set only when the server
// declared application/json and the body parsed; otherwise Text holds it.
type Response struct {
	StatusCode int
	Header     http.Header
	JSON       json.RawMessage
	Text       string
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) Decode(v any) error {
	if r.JSON == nil {
		return ErrNoJSONBody
	}
	return json.Unmarshal(r.JSON, v)
}

func readResponse(resp *http.Response) *Response {
	defer resp.Body.Close()

	// a failed read degrades to an empty body, never to an error
	data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) && json.Valid(trimmed) {
			out.JSON = json.RawMessage(trimmed)
		}
		return out
	}
	out.Text = string(data)
	return out
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
	resp.Body.Close()
}
