// Package valorant implements the client for the HenrikDev Valorant stats API
// and the helpers that pick apart its match payloads.
//
// Every response uses the conventional {status, data} envelope. Transport and
// upstream failures are reclassified into a small taxonomy before they leave
// this package:
//
//   - ErrNotFound:    the account/rank/matches do not exist upstream (404).
//   - ErrRateLimited: upstream throttling (429).
//   - ErrTransient:   timeouts, malformed JSON, and every other failure.
//
// Callers check the taxonomy with errors.Is; HTTP details never leak upward.
package valorant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"valbot/internal/config"
	"valbot/internal/metrics"
	"valbot/internal/utils"
)

// Upstream failure taxonomy. See the package comment.
var (
	// ErrNotFound indicates the requested account or data does not exist.
	ErrNotFound = errors.New("upstream: not found")

	// ErrRateLimited indicates upstream throttling; callers should back off
	// harder than for a generic failure.
	ErrRateLimited = errors.New("upstream: rate limited")

	// ErrTransient covers timeouts, malformed responses, and other failures
	// worth retrying up to a fixed budget.
	ErrTransient = errors.New("upstream: transient failure")
)

// Account is the resolved upstream identity for a (name, tag) pair.
type Account struct {
	Puuid        string `json:"puuid"`
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	AccountLevel int    `json:"account_level"`
	Title        string `json:"title"`
	CardSmall    string `json:"-"`
}

// MMR is the current competitive standing for a player.
type MMR struct {
	Tier         string // e.g. "Diamond 2", "Unrated"
	RR           int    // ranking points within the tier
	ThumbnailURL string // tier icon, may be empty
}

// Client talks to the stats API with a fixed per-request timeout and a
// client-side rate limiter in front of every call.
type Client struct {
	base    string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client from upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		base:    cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst),
	}
}

// envelope is the {status, data} wrapper every endpoint returns. The error
// detail keys mirror what the API actually sends on failures.
type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Detail string          `json:"detail"`
	Msg    string          `json:"message"`
	ErrStr string          `json:"error"`
}

func (e *envelope) detail() string {
	for _, s := range []string{e.Detail, e.Msg, e.ErrStr} {
		if s != "" {
			return s
		}
	}
	return ""
}

// GetAccount resolves (name, tag) to an upstream account. A response without
// a puuid counts as not found: nothing downstream can work without it.
func (c *Client) GetAccount(ctx context.Context, name, tag string) (*Account, error) {
	path := fmt.Sprintf("/v1/account/%s/%s", q(name), q(tag))
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var acc struct {
		Account
		Card struct {
			Small string `json:"small"`
		} `json:"card"`
	}
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("%w: decoding account: %v", ErrTransient, err)
	}
	if acc.Puuid == "" {
		return nil, fmt.Errorf("%w: account response missing puuid", ErrNotFound)
	}
	out := acc.Account
	out.CardSmall = acc.Card.Small
	return &out, nil
}

// GetMMR returns the player's current tier and RR.
func (c *Client) GetMMR(ctx context.Context, region, name, tag string) (*MMR, error) {
	path := fmt.Sprintf("/v2/mmr/%s/%s/%s", q(region), q(name), q(tag))
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var mmr struct {
		Current struct {
			Tier   string `json:"currenttierpatched"`
			RR     int    `json:"ranking_in_tier"`
			Images struct {
				Small string `json:"small"`
			} `json:"images"`
		} `json:"current_data"`
	}
	if err := json.Unmarshal(data, &mmr); err != nil {
		return nil, fmt.Errorf("%w: decoding mmr: %v", ErrTransient, err)
	}

	out := &MMR{
		Tier:         mmr.Current.Tier,
		RR:           mmr.Current.RR,
		ThumbnailURL: mmr.Current.Images.Small,
	}
	if out.Tier == "" {
		out.Tier = "Unrated"
	}
	return out, nil
}

// GetMatches fetches up to size recent match payloads for the player. size is
// clamped to 1..10; mode filters by game mode when non-empty. Payloads are
// returned raw so the dedup engine can degrade gracefully on malformed ones.
func (c *Client) GetMatches(ctx context.Context, region, name, tag, mode string, size int) ([]json.RawMessage, error) {
	size = utils.ClampInt(size, 1, 10)
	params := url.Values{"size": {strconv.Itoa(size)}}
	if mode != "" {
		params.Set("mode", mode)
	}

	path := fmt.Sprintf("/v3/matches/%s/%s/%s", q(region), q(name), q(tag))
	data, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var matches []json.RawMessage
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, fmt.Errorf("%w: decoding match list: %v", ErrTransient, err)
	}
	return matches, nil
}

// get performs one rate-limited GET and unwraps the envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	log.Debug().Str("url", u).Msg("upstream GET")
	res, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures all land here.
		metrics.UpstreamErrors.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		metrics.UpstreamErrors.WithLabelValues("transient").Inc()
		return nil, fmt.Errorf("%w: invalid JSON from %s: %v", ErrTransient, path, err)
	}

	// Prefer the envelope status when present; some error responses come
	// back 200 with a non-200 status field.
	status := res.StatusCode
	if env.Status != 0 {
		status = env.Status
	}
	if err := classify(status, env.detail()); err != nil {
		metrics.UpstreamErrors.WithLabelValues(kindOf(err)).Inc()
		log.Warn().Int("status", status).Str("path", path).Str("detail", env.detail()).
			Msg("upstream request failed")
		return nil, err
	}
	return env.Data, nil
}

// classify maps an upstream status code onto the failure taxonomy.
func classify(status int, detail string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrTransient, status, detail)
	}
}

// kindOf names a taxonomy error for the metrics label.
func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "transient"
	}
}

func q(s string) string { return url.PathEscape(s) }
