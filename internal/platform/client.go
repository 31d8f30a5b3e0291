package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Grant types understood by Authenticate.
const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

// ErrNotAuthenticated is returned by API calls made before Authenticate.
var ErrNotAuthenticated = errors.New("platform client is not authenticated")

// ClientConfig holds connection and credential settings.
type ClientConfig struct {
	BaseURL           string // e.g. https://acme.unqork.io/api/1.0
	DefinitionBaseURL string // e.g. https://acme.unqork.io/fbu/form

	GrantType    string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string

	HTTPProxy  string
	HTTPSProxy string
	Timeout    time.Duration
}

// Client talks to the low-code platform API. It holds the access token for
// the session; credentials never live in package state.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *slog.Logger

	mu    sync.RWMutex
	token *oauth2.Token

	Stats *Stats
}

func NewClient(cfg ClientConfig, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.GrantType == "" {
		cfg.GrantType = GrantPassword
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log:   log,
		Stats: NewStats(time.Hour),
	}
}

// Module is an entry of an application's module list.
type Module struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Definition is a downloaded module definition. Components is kept raw so
// it can be written out without a decode/encode round trip.
type Definition struct {
	ID         string          `json:"_id"`
	Name       string          `json:"name"`
	Components json.RawMessage `json:"components"`
}

func (c *Client) tokenURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/oauth2/access_token"
}

// Authenticate obtains an access token with the configured grant.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	start := time.Now()

	var (
		tok *oauth2.Token
		err error
	)
	switch c.cfg.GrantType {
	case GrantPassword:
		if c.cfg.Username == "" || c.cfg.Password == "" {
			return fmt.Errorf("authenticate: username and password are required for %s grant", GrantPassword)
		}
		oc := &oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  c.tokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		tok, err = oc.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	case GrantClientCredentials:
		cc := &clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			TokenURL:     c.tokenURL(),
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tok, err = cc.Token(ctx)
	default:
		return fmt.Errorf("authenticate: unsupported grant type %q", c.cfg.GrantType)
	}
	c.Stats.Record(time.Since(start).Milliseconds(), err != nil)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	c.log.Debug("access token acquired", "grant_type", c.cfg.GrantType, "expires", tok.Expiry)
	return nil
}

// SetToken installs an access token obtained elsewhere.
func (c *Client) SetToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}

// Authenticated reports whether a usable token is held.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Valid()
}

// ListModules returns the modules of an application.
func (c *Client) ListModules(ctx context.Context, applicationID string) ([]Module, error) {
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/applications/" + url.PathEscape(applicationID) + "/modules"
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer body.Close()

	var modules []Module
	if err := json.NewDecoder(body).Decode(&modules); err != nil {
		return nil, fmt.Errorf("decode modules: %w", err)
	}
	return modules, nil
}

// GetDefinition downloads one module definition.
func (c *Client) GetDefinition(ctx context.Context, moduleID string) (*Definition, error) {
	u := strings.TrimSuffix(c.cfg.DefinitionBaseURL, "/") + "/" + url.PathEscape(moduleID)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("get definition %s: %w", moduleID, err)
	}
	defer body.Close()

	var def Definition
	if err := json.NewDecoder(body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition %s: %w", moduleID, err)
	}
	if def.ID == "" {
		def.ID = moduleID
	}
	return &def, nil
}

// get performs an authenticated GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, u string) (io.ReadCloser, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok == nil {
		return nil, ErrNotAuthenticated
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	tok.SetAuthHeader(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.Stats.Record(time.Since(start).Milliseconds(), true)
		return nil, err
	}
	c.Stats.Record(time.Since(start).Milliseconds(), resp.StatusCode != http.StatusOK)

	if resp.StatusCode == http.StatusOK {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// proxyFunc routes requests through the configured proxies, or through the
// standard proxy environment variables when none are configured.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	pc := &httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
	}
	f := pc.ProxyFunc()
	return func(r *http.Request) (*url.URL, error) {
		return f(r.URL)
	}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
