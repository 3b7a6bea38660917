package agentclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"factrelay/internal/domain"
)

func testClient(t *testing.T, url string, retry RetryPolicy, timeout time.Duration) *Client {
	t.Helper()
	return New(Config{
		BaseURL:    url,
		AppName:    "news_info_verification",
		Timeout:    timeout,
		Retry:      retry,
		HTTPClient: &http.Client{},
	})
}

func TestVerify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/run" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type")
		}
		fmt.Fprint(w, `{"status":"ok","verdict":"false","confidence":0.92,"evidence":[{"title":"Report","url":"https://example.com"}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, DefaultRetryPolicy(), 10*time.Second)
	v, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Verdict != domain.VerdictFalse {
		t.Errorf("unexpected verdict: %q", v.Verdict)
	}
	if v.Confidence == nil || *v.Confidence != 0.92 {
		t.Errorf("confidence not passed through: %v", v.Confidence)
	}
	if v.FormattedText == "" {
		t.Error("formatted text must be synthesized on success")
	}
}

func TestVerify_BearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"status":"ok","verdict":"verified"}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tkn", Timeout: 5 * time.Second, HTTPClient: &http.Client{}})
	if _, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer tkn" {
		t.Errorf("unexpected auth header: %q", got)
	}
}

func TestVerify_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"ok","verdict":"unverified"}`)
	}))
	defer srv.Close()

	retry := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 50 * time.Millisecond}
	c := testClient(t, srv.URL, retry, 10*time.Second)
	v, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Verdict != domain.VerdictUnverified {
		t.Errorf("unexpected verdict: %q", v.Verdict)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", n)
	}
}

func TestVerify_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	retry := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	c := testClient(t, srv.URL, retry, 10*time.Second)
	_, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim"})

	var aerr *domain.AgentError
	if !errors.As(err, &aerr) || aerr.Kind != domain.AgentUnreachable {
		t.Fatalf("expected Unreachable, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestVerify_RejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, DefaultRetryPolicy(), 10*time.Second)
	_, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim"})

	var aerr *domain.AgentError
	if !errors.As(err, &aerr) || aerr.Kind != domain.AgentUpstreamRejected {
		t.Fatalf("expected UpstreamRejected, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("a 4xx must not be retried, got %d attempts", n)
	}
}

func TestVerify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}, 50*time.Millisecond)
	_, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim"})

	var aerr *domain.AgentError
	if !errors.As(err, &aerr) || aerr.Kind != domain.AgentTimeout {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestVerify_ConfidenceOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","verdict":"verified","confidence":1.7}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, DefaultRetryPolicy(), 5*time.Second)
	_, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim"})

	var aerr *domain.AgentError
	if !errors.As(err, &aerr) || aerr.Kind != domain.AgentMalformedResponse {
		t.Fatalf("confidence 1.7 must be rejected as MalformedResponse, got %v", err)
	}
}

func TestVerify_MalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not json":           `<html>gateway error</html>`,
		"unknown status":     `{"status":"maybe","verdict":"verified"}`,
		"ok missing verdict": `{"status":"ok"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			c := testClient(t, srv.URL, DefaultRetryPolicy(), 5*time.Second)
			_, err := c.Verify(t.Context(), &domain.VerifyRequest{Text: "claim"})
			var aerr *domain.AgentError
			if !errors.As(err, &aerr) || aerr.Kind != domain.AgentMalformedResponse {
				t.Fatalf("expected MalformedResponse, got %v", err)
			}
		})
	}
}
