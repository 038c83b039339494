package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"concord/internal/model"
)

// Rate-limit and skew headers consumed from every response.
const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
)

// File is one upload attached to a multipart request.
type File struct {
	Name   string
	Reader io.Reader
}

// Request describes a single outgoing call. It is immutable once built.
type Request struct {
	Method string
	Route  string // rate-limit bucket key, method plus exact path
	Path   string // URL path relative to the base URL

	// Body variants. JSON is used alone; Fields/Files/Embed combine into
	// a multipart body. All nil/empty means no body.
	JSON   any
	Fields map[string]string
	Files  []File
	Embed  *model.Embed
}

// Multipart reports whether the request carries a multipart body. An
// embed alone is enough: it still travels as a payload_json part, never
// on the plain JSON path.
func (r Request) Multipart() bool {
	return len(r.Fields) > 0 || len(r.Files) > 0 || r.Embed != nil
}

// Response is the raw outcome of a call. StatusCode 0 is the sentinel for
// "no answer received" and is distinct from every real HTTP status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do executes a request against the rate-limit table's constraints.
//
// JSON-bodied and bodiless requests pre-wait on the route's bucket to
// avoid a guaranteed rejection; multipart requests skip the pre-wait
// since file-bearing calls are rare and latency-sensitive. On a real
// response the table is updated from the quota headers, then recognized
// error statuses are classified into an *APIError. Any other status is
// returned for the caller to interpret.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if !req.Multipart() {
		if wait := c.limits.WaitUntil(req.Route, time.Now()); wait > 0 {
			c.logger.Debug("rate limit pre-wait", "route", req.Route, "wait", wait)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Nonce", uuid.NewString())
	if c.token != "" {
		httpReq.Header.Set("Authorization", c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Unknown outcome: the call may or may not have reached the
		// server. Callers must not treat this as a clean failure.
		return &Response{StatusCode: 0}, &APIError{
			Kind:  KindTransportUnreachable,
			Route: req.Route,
			cause: err,
		}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Response{StatusCode: 0}, &APIError{
			Kind:  KindTransportUnreachable,
			Route: req.Route,
			cause: err,
		}
	}

	c.recordLimits(req.Route, httpResp.Header)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}

	if kind, ok := classify(httpResp.StatusCode); ok {
		return resp, &APIError{
			Kind:       kind,
			StatusCode: httpResp.StatusCode,
			Route:      req.Route,
			Body:       respBody,
		}
	}

	return resp, nil
}

// recordLimits updates the rate-limit table from a response's quota
// headers. The table is left untouched unless all three headers parse.
// The advertised reset is on the server's clock; the response Date header
// gives the client/server delta so the local wait is correct even when
// the clocks disagree.
func (c *Client) recordLimits(route string, h http.Header) {
	limit, err := strconv.Atoi(h.Get(headerLimit))
	if err != nil {
		return
	}
	remaining, err := strconv.Atoi(h.Get(headerRemaining))
	if err != nil {
		return
	}
	resetEpoch, err := strconv.ParseFloat(h.Get(headerReset), 64)
	if err != nil {
		return
	}

	sec, frac := math.Modf(resetEpoch)
	resetAt := time.Unix(int64(sec), int64(frac*float64(time.Second)))

	if serverNow, err := http.ParseTime(h.Get("Date")); err == nil {
		skew := time.Since(serverNow)
		resetAt = resetAt.Add(skew)
	}

	c.limits.Record(route, limit, remaining, resetAt)
}

// encodeBody serializes a request body and returns it with its content
// type. JSON payloads pass through verbatim; multipart bodies pack named
// fields, file parts under synthetic field names, and the embed as a
// payload_json part.
func encodeBody(req Request) (io.Reader, string, error) {
	if !req.Multipart() {
		if req.JSON == nil {
			return nil, "", nil
		}
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for key, value := range req.Fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	for i, f := range req.Files {
		part, err := w.CreateFormFile("file"+strconv.Itoa(i), f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", err
		}
	}

	if req.Embed != nil {
		payload, err := json.Marshal(struct {
			Embed *model.Embed `json:"embed"`
		}{req.Embed})
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField("payload_json", string(payload)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

// doJSON executes a request and unmarshals a successful response body.
func (c *Client) doJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
