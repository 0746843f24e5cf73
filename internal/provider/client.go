package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"example.com/trackersync/internal/domain"
)

// Name identifies the provider in persisted snapshots.
const Name = "fitbit"

// seriesResource maps a log category to its time-series resource path segment.
var seriesResource = map[domain.Category]string{
	domain.CategoryLogSteps:            "steps",
	domain.CategoryLogCalories:         "calories",
	domain.CategoryLogDistance:         "distance",
	domain.CategoryLogSedentaryMinutes: "minutesSedentary",
}

// Config holds provider client tunables.
type Config struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
}

// Client performs authenticated calls against the tracker API. Transport-level
// failures trip a circuit breaker so a provider outage fails fast instead of
// holding worker slots on timeouts.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient constructs a Client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:     "provider-api",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Classified provider answers (auth failures, rate limits) are not
			// outages and must not trip the breaker.
			if err == nil {
				return true
			}
			kind, ok := domain.KindOf(err)
			return ok && kind != domain.KindProviderUnavailable
		},
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// FetchCategory fetches one category of raw items for the given window.
// Returned items preserve the provider's ordering and carry no natural key
// yet; key derivation happens in the dedup filter.
func (c *Client) FetchCategory(ctx context.Context, token domain.AuthToken, category domain.Category, window domain.SyncWindow) ([]domain.RawItem, error) {
	items, err := c.fetchCategory(ctx, token, category, window)
	if err != nil {
		recordRequest(category, outcomeForErr(err))
		var de *domain.Error
		if errors.As(err, &de) && de.Category == "" {
			return nil, de.WithCategory(category)
		}
		return nil, err
	}
	recordRequest(category, "ok")
	return items, nil
}

func (c *Client) fetchCategory(ctx context.Context, token domain.AuthToken, category domain.Category, window domain.SyncWindow) ([]domain.RawItem, error) {
	switch category {
	case domain.CategoryWeight:
		return c.fetchWeights(ctx, token, window)
	case domain.CategoryBodyFat:
		return c.fetchBodyFat(ctx, token, window)
	case domain.CategoryActivity:
		return c.fetchActivities(ctx, token, window)
	case domain.CategorySleep:
		return c.fetchSleep(ctx, token, window)
	case domain.CategoryLogActiveMinutes:
		return c.fetchActiveMinutes(ctx, token, window)
	default:
		if resource, ok := seriesResource[category]; ok {
			return c.fetchSeries(ctx, token, category, resource, window)
		}
		return nil, domain.NewError(domain.KindValidation, "unknown category %q", category)
	}
}

func (c *Client) fetchWeights(ctx context.Context, token domain.AuthToken, window domain.SyncWindow) ([]domain.RawItem, error) {
	path := fmt.Sprintf("/1/user/%s/body/log/weight/date/%s/%s.json", token.SubjectUserID, window.StartDate(), window.EndDate())
	var payload struct {
		Weight []json.RawMessage `json:"weight"`
	}
	if err := c.getJSON(ctx, token, path, &payload); err != nil {
		return nil, err
	}
	return rawItems(domain.CategoryWeight, payload.Weight), nil
}

func (c *Client) fetchBodyFat(ctx context.Context, token domain.AuthToken, window domain.SyncWindow) ([]domain.RawItem, error) {
	path := fmt.Sprintf("/1/user/%s/body/log/fat/date/%s/%s.json", token.SubjectUserID, window.StartDate(), window.EndDate())
	var payload struct {
		Fat []json.RawMessage `json:"fat"`
	}
	if err := c.getJSON(ctx, token, path, &payload); err != nil {
		return nil, err
	}
	return rawItems(domain.CategoryBodyFat, payload.Fat), nil
}

func (c *Client) fetchActivities(ctx context.Context, token domain.AuthToken, window domain.SyncWindow) ([]domain.RawItem, error) {
	query := url.Values{}
	query.Set("afterDate", window.StartDate())
	query.Set("sort", "asc")
	query.Set("offset", "0")
	query.Set("limit", "100")
	path := fmt.Sprintf("/1/user/%s/activities/list.json?%s", token.SubjectUserID, query.Encode())
	var payload struct {
		Activities []json.RawMessage `json:"activities"`
	}
	if err := c.getJSON(ctx, token, path, &payload); err != nil {
		return nil, err
	}
	return rawItems(domain.CategoryActivity, payload.Activities), nil
}

func (c *Client) fetchSleep(ctx context.Context, token domain.AuthToken, window domain.SyncWindow) ([]domain.RawItem, error) {
	path := fmt.Sprintf("/1.2/user/%s/sleep/date/%s/%s.json", token.SubjectUserID, window.StartDate(), window.EndDate())
	var payload struct {
		Sleep []json.RawMessage `json:"sleep"`
	}
	if err := c.getJSON(ctx, token, path, &payload); err != nil {
		return nil, err
	}
	return rawItems(domain.CategorySleep, payload.Sleep), nil
}

func (c *Client) fetchSeries(ctx context.Context, token domain.AuthToken, category domain.Category, resource string, window domain.SyncWindow) ([]domain.RawItem, error) {
	points, err := c.fetchSeriesPoints(ctx, token, resource, window)
	if err != nil {
		return nil, err
	}
	items := make([]domain.RawItem, 0, len(points))
	for _, p := range points {
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, domain.WrapError(domain.KindMalformedPayload, err, "encode series point")
		}
		items = append(items, domain.RawItem{Category: category, Payload: encoded})
	}
	return items, nil
}

// fetchActiveMinutes pairs the fairly-active and very-active series
// positionally. Entries beyond the shorter series are dropped.
func (c *Client) fetchActiveMinutes(ctx context.Context, token domain.AuthToken, window domain.SyncWindow) ([]domain.RawItem, error) {
	fairly, err := c.fetchSeriesPoints(ctx, token, "minutesFairlyActive", window)
	if err != nil {
		return nil, err
	}
	very, err := c.fetchSeriesPoints(ctx, token, "minutesVeryActive", window)
	if err != nil {
		return nil, err
	}

	n := len(fairly)
	if len(very) < n {
		n = len(very)
	}

	items := make([]domain.RawItem, 0, n)
	for i := 0; i < n; i++ {
		fairlyMinutes, err := parseSeriesValue(fairly[i].Value)
		if err != nil {
			return nil, domain.WrapError(domain.KindMalformedPayload, err, "parse fairly active series value")
		}
		veryMinutes, err := parseSeriesValue(very[i].Value)
		if err != nil {
			return nil, domain.WrapError(domain.KindMalformedPayload, err, "parse very active series value")
		}
		point := ActiveMinutesPoint{
			DateTime:          fairly[i].DateTime,
			MinutesFairly:     fairlyMinutes,
			MinutesVeryActive: veryMinutes,
		}
		encoded, err := json.Marshal(point)
		if err != nil {
			return nil, domain.WrapError(domain.KindMalformedPayload, err, "encode active minutes point")
		}
		items = append(items, domain.RawItem{Category: domain.CategoryLogActiveMinutes, Payload: encoded})
	}
	return items, nil
}

func (c *Client) fetchSeriesPoints(ctx context.Context, token domain.AuthToken, resource string, window domain.SyncWindow) ([]SeriesPoint, error) {
	path := fmt.Sprintf("/1/user/%s/activities/%s/date/%s/%s.json", token.SubjectUserID, resource, window.StartDate(), window.EndDate())

	body, err := c.do(ctx, http.MethodGet, path, "Bearer "+token.AccessToken, "", nil)
	if err != nil {
		return nil, err
	}

	var payload map[string][]SeriesPoint
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.WrapError(domain.KindMalformedPayload, err, "decode series response")
	}
	return payload["activities-"+resource], nil
}

// tokenResponse mirrors the OAuth token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
}

// Refresh exchanges the refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (domain.AuthToken, error) {
	recordRefresh()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	body, err := c.do(ctx, http.MethodPost, "/oauth2/token", basicAuth(c.cfg.ClientID, c.cfg.ClientSecret), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AuthToken{}, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.AuthToken{}, domain.WrapError(domain.KindMalformedPayload, err, "decode token response")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return domain.AuthToken{}, domain.NewError(domain.KindMalformedPayload, "token response missing credentials")
	}

	return domain.AuthToken{
		SubjectUserID: resp.UserID,
		AccessToken:   resp.AccessToken,
		RefreshToken:  resp.RefreshToken,
		TokenType:     resp.TokenType,
		ExpiresAt:     time.Now().Unix() + resp.ExpiresIn,
		Scopes:        domain.ScopeSet(strings.Fields(resp.Scope)),
		Status:        domain.TokenStatusValid,
	}, nil
}

// Revoke invalidates the access token with the provider.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{}
	form.Set("token", accessToken)

	_, err := c.do(ctx, http.MethodPost, "/oauth2/revoke", basicAuth(c.cfg.ClientID, c.cfg.ClientSecret), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	return err
}

func (c *Client) getJSON(ctx context.Context, token domain.AuthToken, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, "Bearer "+token.AccessToken, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.WrapError(domain.KindMalformedPayload, err, "decode provider response")
	}
	return nil
}

// do issues one HTTP request. Only transport failures and 5xx responses count
// against the breaker; auth and rate-limit responses are provider answers, not
// outages.
func (c *Client) do(ctx context.Context, method, path, authorization, contentType string, reqBody io.Reader) ([]byte, error) {
	body, err := c.execute(ctx, method, path, authorization, contentType, reqBody)
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			// Breaker-open and other non-taxonomy failures surface as outages.
			return nil, domain.WrapError(domain.KindProviderUnavailable, err, "provider circuit open")
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) execute(ctx context.Context, method, path, authorization, contentType string, reqBody io.Reader) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
		if err != nil {
			return nil, domain.WrapError(domain.KindValidation, err, "build provider request")
		}
		req.Header.Set("Authorization", authorization)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, domain.WrapError(domain.KindProviderUnavailable, err, "provider request failed")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, domain.WrapError(domain.KindProviderUnavailable, err, "read provider response")
		}

		if resp.StatusCode >= 300 {
			return nil, classify(resp.StatusCode, body)
		}
		return body, nil
	})
}

func rawItems(category domain.Category, payloads []json.RawMessage) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(payloads))
	for _, p := range payloads {
		items = append(items, domain.RawItem{Category: category, Payload: append(json.RawMessage(nil), p...)})
	}
	return items
}

func parseSeriesValue(v string) (float64, error) {
	return strconv.ParseFloat(v, 64)
}

func basicAuth(id, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+secret))
}

func outcomeForErr(err error) string {
	if kind, ok := domain.KindOf(err); ok {
		return string(kind)
	}
	return "error"
}
