package googlebiz

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"replydesk/internal/adapters/observability"
	"replydesk/internal/domain"
)

// Client talks to a Google Business Profile shaped review API. List calls are
// rate limited and retried on transient statuses; the reply call is never
// retried — publish failures surface synchronously to the caller.
type Client struct {
	base  string
	hc    *http.Client
	oauth *oauth2.Config
	rl    *rate.Limiter
}

func New(base, tokenURL, clientID, clientSecret string, rps int) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("OAuth client credentials are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- OAuth ----

// ExchangeToken trades a stored long-lived refresh token for a short-lived
// access token. Concurrent exchanges for the same account are tolerated; the
// token endpoint treats them independently.
func (c *Client) ExchangeToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.E(domain.KindNotConnected, "no platform credential stored", nil)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.hc)

	start := time.Now()
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			observability.ObserveExternal("googlebiz", "token", rerr.Response.StatusCode, time.Since(start))
			return "", classifyStatus(rerr.Response.StatusCode, "token exchange failed", err)
		}
		observability.ObserveExternal("googlebiz", "token", 0, time.Since(start))
		if ctx.Err() != nil {
			return "", domain.E(domain.KindUpstreamTimeout, "token exchange timed out", err)
		}
		return "", domain.E(domain.KindUpstreamUnavailable, "token exchange failed", err)
	}
	observability.ObserveExternal("googlebiz", "token", http.StatusOK, time.Since(start))
	return tok.AccessToken, nil
}

// ---- Public API ----

func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]domain.PlatformAccount, error) {
	var out struct {
		Accounts []struct {
			Name        string `json:"name"` // "accounts/{id}"
			AccountName string `json:"accountName"`
		} `json:"accounts"`
	}
	if err := c.get(ctx, c.base+"/accounts", accessToken, &out); err != nil {
		return nil, err
	}
	accounts := make([]domain.PlatformAccount, 0, len(out.Accounts))
	for _, a := range out.Accounts {
		accounts = append(accounts, domain.PlatformAccount{ID: lastSegment(a.Name), Name: a.AccountName})
	}
	return accounts, nil
}

func (c *Client) ListLocations(ctx context.Context, accessToken, accountID string) ([]domain.PlatformLocation, error) {
	var out struct {
		Locations []struct {
			Name         string `json:"name"` // "accounts/{a}/locations/{l}"
			LocationName string `json:"locationName"`
		} `json:"locations"`
	}
	u := fmt.Sprintf("%s/accounts/%s/locations", c.base, url.PathEscape(accountID))
	if err := c.get(ctx, u, accessToken, &out); err != nil {
		return nil, err
	}
	locs := make([]domain.PlatformLocation, 0, len(out.Locations))
	for _, l := range out.Locations {
		locs = append(locs, domain.PlatformLocation{ID: lastSegment(l.Name), Name: l.LocationName})
	}
	return locs, nil
}

func (c *Client) ListReviews(ctx context.Context, accessToken, accountID, locationID, pageToken string, pageSize int) (domain.PlatformReviewsPage, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews?pageSize=%d",
		c.base, url.PathEscape(accountID), url.PathEscape(locationID), pageSize)
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}

	var out struct {
		Reviews []struct {
			ReviewID string `json:"reviewId"`
			Reviewer struct {
				DisplayName string `json:"displayName"`
			} `json:"reviewer"`
			StarRating string `json:"starRating"` // ONE..FIVE
			Comment    string `json:"comment"`
			CreateTime string `json:"createTime"`
			Reply      *struct {
				Comment string `json:"comment"`
			} `json:"reviewReply"`
		} `json:"reviews"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := c.get(ctx, u, accessToken, &out); err != nil {
		return domain.PlatformReviewsPage{}, err
	}

	page := domain.PlatformReviewsPage{NextPageToken: out.NextPageToken}
	for _, rv := range out.Reviews {
		created, _ := time.Parse(time.RFC3339, rv.CreateTime)
		page.Items = append(page.Items, domain.PlatformReview{
			ExternalID: rv.ReviewID,
			Reviewer:   rv.Reviewer.DisplayName,
			Rating:     starToInt(rv.StarRating),
			Comment:    rv.Comment,
			CreateTime: created,
			HasReply:   rv.Reply != nil,
		})
	}
	return page, nil
}

// ReplyToReview publishes text under reviewPath
// ("accounts/{a}/locations/{l}/reviews/{r}"). Exactly one attempt: a reply is
// a remote side effect we must not duplicate on ambiguous failures.
func (c *Client) ReplyToReview(ctx context.Context, accessToken, reviewPath, text string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.E(domain.KindUpstreamUnavailable, "rate limiter interrupted", err)
	}

	body, _ := json.Marshal(map[string]string{"comment": text})
	u := c.base + "/" + strings.TrimLeft(reviewPath, "/") + "/reply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return domain.E(domain.KindUpstreamUnavailable, "building reply request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("googlebiz", "reply", 0, time.Since(start))
		if ctx.Err() != nil || isTimeout(err) {
			return domain.E(domain.KindUpstreamTimeout, "publish timed out", err)
		}
		return domain.E(domain.KindUpstreamUnavailable, "publish request failed", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("googlebiz", "reply", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound ||
		resp.StatusCode == http.StatusConflict:
		// the platform rejected this specific reply; retrying the same text
		// will not help
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.E(domain.KindPublishFailed, "platform rejected the reply",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
	default:
		return classifyStatus(resp.StatusCode, "publish failed", fmt.Errorf("remote %d", resp.StatusCode))
	}
}

// ---- Internals ----

// get performs an authenticated GET with client-side rate limiting, retries
// on 429/5xx honoring Retry-After, and JSON decode into out.
func (c *Client) get(ctx context.Context, u, accessToken string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.E(domain.KindUpstreamUnavailable, "rate limiter interrupted", err)
	}

	endpoint := endpointLabel(u)
	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return domain.E(domain.KindUpstreamUnavailable, "building request failed", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("googlebiz", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return domain.E(domain.KindUpstreamTimeout, "platform request canceled", ctx.Err())
			}
			lastErr = domain.E(domain.KindUpstreamUnavailable, "platform request failed", err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("googlebiz", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return domain.E(domain.KindUpstreamUnavailable, "decoding platform response failed", err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.E(domain.KindNotFound, "platform resource not found", nil)

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return classifyStatus(resp.StatusCode, "platform rejected credentials", fmt.Errorf("remote %d", resp.StatusCode))

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = classifyStatus(resp.StatusCode, "platform unavailable", fmt.Errorf("remote %d", resp.StatusCode))
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return domain.E(domain.KindUpstreamTimeout, "platform request canceled", ctx.Err())
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return domain.E(domain.KindUpstreamUnavailable, "unexpected platform status",
				fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))))
		}
	}
	return lastErr
}

func classifyStatus(status int, msg string, err error) *domain.Error {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.E(domain.KindUpstreamTimeout, msg, err)
	case http.StatusTooManyRequests:
		return domain.E(domain.KindUpstreamRateLimited, msg, err)
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
		// 400 from the token endpoint means a revoked/invalid grant
		return domain.E(domain.KindUpstreamConfig, msg, err)
	default:
		return domain.E(domain.KindUpstreamUnavailable, msg, err)
	}
}

func starToInt(s string) int {
	switch s {
	case "ONE":
		return 1
	case "TWO":
		return 2
	case "THREE":
		return 3
	case "FOUR":
		return 4
	case "FIVE":
		return 5
	default:
		return 0
	}
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func endpointLabel(u string) string {
	if strings.Contains(u, "/reviews") {
		return "list_reviews"
	}
	if strings.Contains(u, "/locations") {
		return "list_locations"
	}
	return "list_accounts"
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
