package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"concord/internal/model"
)

func testRequest(path string) Request {
	return Request{
		Method: http.MethodGet,
		Route:  http.MethodGet + ":" + path,
		Path:   path,
	}
}

func TestDoClassification(t *testing.T) {
	tests := []struct {
		status   int
		wantKind ErrorKind
		wantErr  bool
	}{
		{200, 0, false},
		{201, 0, false},
		{204, 0, false},
		{304, 0, false},
		{400, KindMalformedRequest, true},
		{405, KindMalformedRequest, true},
		{401, KindUnauthorized, true},
		{403, KindUnauthorized, true},
		{404, KindNotFound, true},
		{429, KindRateLimited, true},
		{500, 0, false}, // unrecognized: returned for the caller to interpret
		{502, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewClient(server.URL, "token")
			resp, err := c.Do(context.Background(), testRequest("/guilds/1"))

			if tt.wantErr {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected *APIError, got %v", err)
				}
				if apiErr.Kind != tt.wantKind {
					t.Errorf("Kind = %v, want %v", apiErr.Kind, tt.wantKind)
				}
				if apiErr.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Do failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestDoTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from now on

	c := NewClient(server.URL, "token")
	resp, err := c.Do(context.Background(), testRequest("/guilds/1"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Kind != KindTransportUnreachable {
		t.Errorf("Kind = %v, want transport unreachable", apiErr.Kind)
	}
	if !apiErr.IsRetryable() {
		t.Error("transport failures must be retryable")
	}
	if resp == nil || resp.StatusCode != 0 {
		t.Errorf("expected the status-0 sentinel response, got %+v", resp)
	}
	if apiErr.Unwrap() == nil {
		t.Error("expected the underlying transport error to be wrapped")
	}
}

func TestDoRequestHeaders(t *testing.T) {
	var gotAuth, gotNonce, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotNonce = r.Header.Get("X-Request-Nonce")
		gotAccept = r.Header.Get("Accept")
	}))
	defer server.Close()

	c := NewClient(server.URL, "Bot abc")
	if _, err := c.Do(context.Background(), testRequest("/users/@me")); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if gotAuth != "Bot abc" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bot abc")
	}
	if gotNonce == "" {
		t.Error("expected a per-request nonce header")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestRecordLimits(t *testing.T) {
	t.Run("all three headers recorded", func(t *testing.T) {
		reset := time.Now().Add(30 * time.Second)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerLimit, "5")
			w.Header().Set(headerRemaining, "2")
			w.Header().Set(headerReset, fmt.Sprintf("%d", reset.Unix()))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := testRequest("/channels/1/messages")
		if _, err := c.Do(context.Background(), req); err != nil {
			t.Fatalf("Do failed: %v", err)
		}

		b, ok := c.Limits().Lookup(req.Route)
		if !ok {
			t.Fatal("expected bucket after quota headers")
		}
		if b.Limit != 5 || b.Remaining != 2 {
			t.Errorf("bucket = %+v, want limit=5 remaining=2", b)
		}
	})

	t.Run("partial headers leave table untouched", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerLimit, "5")
			w.Header().Set(headerRemaining, "2")
			// no reset header
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := testRequest("/channels/1/messages")
		if _, err := c.Do(context.Background(), req); err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if _, ok := c.Limits().Lookup(req.Route); ok {
			t.Error("table must stay untouched without all three headers")
		}
	})

	t.Run("server clock skew corrected via Date header", func(t *testing.T) {
		// Server clock runs 10 minutes behind local: an advertised reset
		// 2s out on the server clock is still ~2s out locally.
		const skew = -10 * time.Minute
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serverNow := time.Now().Add(skew)
			w.Header().Set("Date", serverNow.UTC().Format(http.TimeFormat))
			w.Header().Set(headerLimit, "5")
			w.Header().Set(headerRemaining, "0")
			w.Header().Set(headerReset, fmt.Sprintf("%d", serverNow.Add(2*time.Second).Unix()))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := testRequest("/channels/1/messages")
		if _, err := c.Do(context.Background(), req); err != nil {
			t.Fatalf("Do failed: %v", err)
		}

		wait := c.Limits().WaitUntil(req.Route, time.Now())
		if wait < 500*time.Millisecond || wait > 4*time.Second {
			t.Errorf("skew-corrected wait = %v, want roughly 2s", wait)
		}
	})
}

func TestDoRateLimitWait(t *testing.T) {
	t.Run("429 then wait before retransmit", func(t *testing.T) {
		var hits []time.Time
		reset := time.Now().Add(300 * time.Millisecond)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits = append(hits, time.Now())
			w.Header().Set(headerLimit, "5")
			if len(hits) == 1 {
				w.Header().Set(headerRemaining, "0")
				w.Header().Set(headerReset, fmt.Sprintf("%.3f", float64(reset.UnixNano())/1e9))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set(headerRemaining, "4")
			w.Header().Set(headerReset, fmt.Sprintf("%d", time.Now().Add(time.Minute).Unix()))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := testRequest("/channels/7/messages")

		_, err := c.Do(context.Background(), req)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Kind != KindRateLimited {
			t.Fatalf("expected rate-limited error, got %v", err)
		}

		if _, err := c.Do(context.Background(), req); err != nil {
			t.Fatalf("second Do failed: %v", err)
		}

		if len(hits) != 2 {
			t.Fatalf("server hit %d times, want 2", len(hits))
		}
		if hits[1].Before(reset) {
			t.Errorf("second call transmitted at %v, before reset %v", hits[1], reset)
		}
	})

	t.Run("cancelled during pre-wait", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		c := NewClient(server.URL, "")
		req := testRequest("/channels/7/messages")
		c.Limits().Record(req.Route, 5, 0, time.Now().Add(time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Do(ctx, req)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context error, got %v", err)
		}

		// Abandoning the wait must not corrupt the shared bucket.
		b, ok := c.Limits().Lookup(req.Route)
		if !ok || b.Remaining != 0 {
			t.Errorf("bucket corrupted after cancellation: %+v ok=%v", b, ok)
		}
	})

	t.Run("multipart skips pre-wait", func(t *testing.T) {
		var hit bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		route := http.MethodPost + ":/channels/7/messages"
		c.Limits().Record(route, 5, 0, time.Now().Add(time.Hour))

		start := time.Now()
		_, err := c.Do(context.Background(), Request{
			Method: http.MethodPost,
			Route:  route,
			Path:   "/channels/7/messages",
			Files:  []File{{Name: "a.txt", Reader: strings.NewReader("hello")}},
		})
		if err != nil {
			t.Fatalf("Do failed: %v", err)
		}
		if !hit {
			t.Fatal("request never transmitted")
		}
		if time.Since(start) > time.Second {
			t.Error("multipart request should not block on the bucket")
		}
	})
}

func TestEncodeBody(t *testing.T) {
	t.Run("json body verbatim", func(t *testing.T) {
		r, ct, err := encodeBody(Request{JSON: map[string]any{"content": "hi"}})
		if err != nil {
			t.Fatalf("encodeBody failed: %v", err)
		}
		if ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		data, _ := io.ReadAll(r)
		if string(data) != `{"content":"hi"}` {
			t.Errorf("body = %s", data)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		r, ct, err := encodeBody(Request{})
		if err != nil {
			t.Fatalf("encodeBody failed: %v", err)
		}
		if r != nil || ct != "" {
			t.Errorf("expected no body, got reader=%v ct=%q", r, ct)
		}
	})

	t.Run("multipart parts", func(t *testing.T) {
		embed := &model.Embed{Title: "report"}
		r, ct, err := encodeBody(Request{
			Fields: map[string]string{"content": "see attachment"},
			Files: []File{
				{Name: "a.txt", Reader: strings.NewReader("first")},
				{Name: "b.txt", Reader: strings.NewReader("second")},
			},
			Embed: embed,
		})
		if err != nil {
			t.Fatalf("encodeBody failed: %v", err)
		}

		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("content type = %q (%v)", ct, err)
		}

		parts := map[string]string{}
		files := map[string]string{}
		mr := multipart.NewReader(r, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("read part: %v", err)
			}
			data, _ := io.ReadAll(p)
			if p.FileName() != "" {
				files[p.FormName()] = p.FileName() + ":" + string(data)
			} else {
				parts[p.FormName()] = string(data)
			}
		}

		if parts["content"] != "see attachment" {
			t.Errorf("content field = %q", parts["content"])
		}
		if files["file0"] != "a.txt:first" || files["file1"] != "b.txt:second" {
			t.Errorf("file parts = %v", files)
		}
		payload, ok := parts["payload_json"]
		if !ok {
			t.Fatal("missing payload_json part")
		}
		if !strings.Contains(payload, `"title":"report"`) {
			t.Errorf("payload_json = %s", payload)
		}
		if strings.Contains(payload, "timestamp") {
			t.Errorf("zero embed timestamp must be omitted: %s", payload)
		}
	})

	t.Run("embed alone is multipart", func(t *testing.T) {
		req := Request{Embed: &model.Embed{Title: "report"}}
		if !req.Multipart() {
			t.Fatal("embed-only request must take the multipart path")
		}

		r, ct, err := encodeBody(req)
		if err != nil {
			t.Fatalf("encodeBody failed: %v", err)
		}
		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("content type = %q (%v)", ct, err)
		}

		mr := multipart.NewReader(r, params["boundary"])
		p, err := mr.NextPart()
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		if p.FormName() != "payload_json" {
			t.Fatalf("first part = %q, want payload_json", p.FormName())
		}
		data, _ := io.ReadAll(p)
		if !strings.Contains(string(data), `"title":"report"`) {
			t.Errorf("payload_json = %s", data)
		}
	})
}
