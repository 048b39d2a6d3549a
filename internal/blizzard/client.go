// Package blizzard is the ranked-ladder API client: OAuth client-credential
// tokens, current season, league/tier/division listings, division ladders and
// legacy profile ladder summaries.
package blizzard

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/models"
	"github.com/allinsc2/ladder-sync/internal/upstream"
)

const (
	DefaultAPIBase  = "https://{region}.api.blizzard.com"
	DefaultOAuthURL = "https://oauth.battle.net/token"

	// queueLotVSolo and teamTypeArranged select the ranked 1v1 ladders.
	queueLotVSolo    = 201
	teamTypeArranged = 0
)

// regionIDs maps region names to the numeric ids the legacy endpoints use.
var regionIDs = map[string]int{"us": 1, "eu": 2, "kr": 3, "cn": 5}

var upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ladder_sync_upstream_requests_total",
	Help: "Ranked-ladder API requests by operation and status code",
}, []string{"op", "status"})

type Options struct {
	APIBase  string // may contain {region}
	OAuthURL string
	Timeout  time.Duration
	Retry    upstream.RetryPolicy
	Logger   *zap.Logger
}

type Client struct {
	client   *fasthttp.Client
	apiBase  string
	oauthURL string
	timeout  time.Duration
	retry    upstream.RetryPolicy
	logger   *zap.SugaredLogger
}

func NewClient(opts Options) *Client {
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.OAuthURL == "" {
		opts.OAuthURL = DefaultOAuthURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         opts.Timeout,
			WriteTimeout:        opts.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		apiBase:  strings.TrimRight(opts.APIBase, "/"),
		oauthURL: opts.OAuthURL,
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		logger:   opts.Logger.Sugar(),
	}
}

// RegionID returns the numeric id of a region name.
func RegionID(region string) (int, error) {
	id, ok := regionIDs[strings.ToLower(region)]
	if !ok {
		return 0, fmt.Errorf("unknown region %q", region)
	}
	return id, nil
}

func (c *Client) host(region string) string {
	return strings.ReplaceAll(c.apiBase, "{region}", strings.ToLower(region))
}

// AccessToken exchanges client credentials for a bearer token.
func (c *Client) AccessToken(ctx context.Context, clientID, clientSecret, region string) (string, error) {
	res := upstream.Call(ctx, c.retry, func(ctx context.Context) (*models.AccessToken, error) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(c.oauthURL)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/x-www-form-urlencoded")
		creds := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
		req.Header.Set("Authorization", "Basic "+creds)
		req.SetBodyString("grant_type=client_credentials")

		return decode[models.AccessToken](ctx, c, "token", req, resp)
	})
	tok, err := res.Get()
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &upstream.Error{Op: "token", Err: fmt.Errorf("%w: empty access_token for %s", upstream.ErrMalformed, region)}
	}
	return tok.AccessToken, nil
}

// CurrentSeason returns the region's current season id.
func (c *Client) CurrentSeason(ctx context.Context, token, region string) (int, error) {
	regionID, err := RegionID(region)
	if err != nil {
		return 0, err
	}
	url := fmt.Sprintf("%s/sc2/ladder/season/%d", c.host(region), regionID)
	season, err := doRequest[models.Season](ctx, c, "season", url, token)
	if err != nil {
		return 0, err
	}
	if season.Current() == 0 {
		return 0, &upstream.Error{Op: "season", Err: fmt.Errorf("%w: no season id", upstream.ErrMalformed)}
	}
	return season.Current(), nil
}

// League returns the tiers and divisions of one 1v1 league.
func (c *Client) League(ctx context.Context, token, region string, seasonID, leagueID int) (*models.League, error) {
	url := fmt.Sprintf("%s/data/sc2/league/%d/%d/%d/%d", c.host(region), seasonID, queueLotVSolo, teamTypeArranged, leagueID)
	return doRequest[models.League](ctx, c, "league", url, token)
}

// Ladder returns one division ladder.
func (c *Client) Ladder(ctx context.Context, token, region string, ladderID int) (*models.Ladder, error) {
	url := fmt.Sprintf("%s/data/sc2/ladder/%d", c.host(region), ladderID)
	return doRequest[models.Ladder](ctx, c, "ladder", url, token)
}

// LegacyProfileLadders returns the current-season ladder listing of a profile.
func (c *Client) LegacyProfileLadders(ctx context.Context, token, region, realm, profileID string) (*models.LegacyProfileLadders, error) {
	regionID, err := RegionID(region)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/sc2/legacy/profile/%d/%s/%s/ladders", c.host(region), regionID, realm, profileID)
	return doRequest[models.LegacyProfileLadders](ctx, c, "profile_ladders", url, token)
}

func doRequest[T any](ctx context.Context, c *Client, op, url, token string) (*T, error) {
	return upstream.Call(ctx, c.retry, func(ctx context.Context) (*T, error) {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(url)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("Authorization", "Bearer "+token)

		return decode[T](ctx, c, op, req, resp)
	}).Get()
}

func decode[T any](ctx context.Context, c *Client, op string, req *fasthttp.Request, resp *fasthttp.Response) (*T, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		upstreamRequests.WithLabelValues(op, "error").Inc()
		return nil, &upstream.Error{Op: op, Err: err}
	}

	status := resp.StatusCode()
	upstreamRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()

	if status != fasthttp.StatusOK {
		c.logger.Warnw("Upstream request failed", "op", op, "status", status, "uri", string(req.URI().Path()))
		return nil, &upstream.Error{
			Op:         op,
			StatusCode: status,
			RetryAfter: parseRetryAfter(resp.Header.Peek("Retry-After")),
			Err:        fmt.Errorf("unexpected response %q", truncate(resp.Body(), 200)),
		}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &upstream.Error{Op: op, Err: fmt.Errorf("%w: %v", upstream.ErrMalformed, err)}
	}
	return &result, nil
}

func parseRetryAfter(v []byte) time.Duration {
	if len(v) == 0 {
		return 0
	}
	secs, err := strconv.Atoi(string(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
