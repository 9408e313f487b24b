package googlebiz_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"replydesk/internal/adapters/googlebiz"
	"replydesk/internal/domain"
)

func newClient(t *testing.T, base, tokenURL string) *googlebiz.Client {
	t.Helper()
	cl, err := googlebiz.New(base, tokenURL, "client-id", "client-secret", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func TestExchangeToken_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"short-lived","token_type":"Bearer","expires_in":3600}`))
	}))
	defer ts.Close()

	cl := newClient(t, "http://unused", ts.URL)
	tok, err := cl.ExchangeToken(context.Background(), "long-lived")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tok != "short-lived" {
		t.Fatalf("unexpected token: %q", tok)
	}
}

func TestExchangeToken_EmptyRefreshToken(t *testing.T) {
	cl := newClient(t, "http://unused", "http://unused")
	_, err := cl.ExchangeToken(context.Background(), "")
	if k := domain.KindOf(err); k != domain.KindNotConnected {
		t.Fatalf("kind = %s, want %s", k, domain.KindNotConnected)
	}
}

func TestExchangeToken_RevokedGrant(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	cl := newClient(t, "http://unused", ts.URL)
	_, err := cl.ExchangeToken(context.Background(), "revoked")
	if k := domain.KindOf(err); k != domain.KindUpstreamConfig {
		t.Fatalf("kind = %s, want %s", k, domain.KindUpstreamConfig)
	}
}

func TestListReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("auth header = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"reviews":[
					{"reviewId":"r-1","reviewer":{"displayName":"Sam"},"starRating":"FIVE","comment":"Loved it!","createTime":"2026-08-01T10:00:00Z"},
					{"reviewId":"r-2","starRating":"TWO","comment":"Meh","createTime":"2026-08-02T10:00:00Z","reviewReply":{"comment":"sorry"}}
				],
				"nextPageToken":"tok-2"
			}`))
		}
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, "http://unused")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	page, err := cl.ListReviews(ctx, "tok", "acc-1", "loc-1", "", 50)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected retries, got %d calls", hits)
	}
	if page.NextPageToken != "tok-2" || len(page.Items) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	first := page.Items[0]
	if first.ExternalID != "r-1" || first.Reviewer != "Sam" || first.Rating != 5 || first.HasReply {
		t.Fatalf("unexpected review: %+v", first)
	}
	if !page.Items[1].HasReply || page.Items[1].Rating != 2 {
		t.Fatalf("unexpected review: %+v", page.Items[1])
	}
}

func TestReplyToReview_SingleAttempt(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/accounts/a/locations/l/reviews/r/reply" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var got map[string]string
		_ = json.Unmarshal(body, &got)
		if got["comment"] != "Thanks!" {
			t.Errorf("comment = %q", got["comment"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, "http://unused")
	if err := cl.ReplyToReview(context.Background(), "tok", "accounts/a/locations/l/reviews/r", "Thanks!"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected exactly 1 call, got %d", hits)
	}
}

func TestReplyToReview_NeverRetriesOn500(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(500)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, "http://unused")
	err := cl.ReplyToReview(context.Background(), "tok", "accounts/a/locations/l/reviews/r", "x")
	if k := domain.KindOf(err); k != domain.KindUpstreamUnavailable {
		t.Fatalf("kind = %s, want %s", k, domain.KindUpstreamUnavailable)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("reply must not retry, got %d calls", hits)
	}
}

func TestReplyToReview_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"reply too long"}}`))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, "http://unused")
	err := cl.ReplyToReview(context.Background(), "tok", "accounts/a/locations/l/reviews/r", "x")
	if k := domain.KindOf(err); k != domain.KindPublishFailed {
		t.Fatalf("kind = %s, want %s", k, domain.KindPublishFailed)
	}
}

func TestListAccounts_StripsResourcePrefix(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accounts":[{"name":"accounts/123","accountName":"Main"}]}`))
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, "http://unused")
	accounts, err := cl.ListAccounts(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != "123" || accounts[0].Name != "Main" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}
