// Package opensky implements the OAuth2 client-credentials exchange against
// the OpenSky Network and the authenticated /states/all fetch.
package opensky

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/opensky-lab/flightpipe/internal/app"
)

const (
	// DefaultTokenURL - OpenSky OAuth2 token endpoint.
	DefaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"

	// DefaultStatesURL - OpenSky "all current states" endpoint.
	DefaultStatesURL = "https://opensky-network.org/api/states/all"
)

// Credentials - the clientId/clientSecret pair loaded from credentials.json.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// LoadCredentials reads the OAuth2 client credentials from a local JSON file.
// A missing file, unreadable content or an empty field is a configuration
// error; no network call may be attempted after such a failure.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("%w: reading credentials file %s: %v", app.ErrConfiguration, path, err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("%w: parsing credentials file %s: %v", app.ErrConfiguration, path, err)
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return creds, fmt.Errorf("%w: credentials file %s missing clientId or clientSecret", app.ErrConfiguration, path)
	}

	return creds, nil
}

// Client calls the OpenSky Network API. The bearer token lives in the client
// for the duration of one ingestion run and is never persisted.
type Client struct {
	TokenURL   string
	StatesURL  string
	HTTPClient *http.Client

	creds Credentials
	token string
}

// New builds a client for the given credentials. A zero timeout falls back to
// 10 seconds, matching the upstream rate-limit guidance.
func New(creds Credentials, tokenURL, statesURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if statesURL == "" {
		statesURL = DefaultStatesURL
	}
	return &Client{
		TokenURL:   tokenURL,
		StatesURL:  statesURL,
		HTTPClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

// tokenResponse mirrors the JSON of the token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate performs the OAuth2 client-credentials exchange and keeps the
// resulting bearer token in memory. Any non-success status or malformed body
// is an authentication error; ingestion must not proceed without a token.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building token request: %v", app.ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", app.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: token endpoint returned status %d: %s", app.ErrAuthentication, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("%w: decoding token response: %v", app.ErrAuthentication, err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: token response carried no access_token", app.ErrAuthentication)
	}

	c.token = tok.AccessToken
	return nil
}

// statesResponse mirrors the /states/all payload. States stays a pointer so a
// payload without the top-level list can be told apart from an empty one.
type statesResponse struct {
	Time   int64            `json:"time"`
	States *[][]interface{} `json:"states"`
}

// FetchStates retrieves the current state vectors of all aircraft. An empty
// state list is a valid result; a missing list or a non-200 status is a fetch
// error for the whole run.
func (c *Client) FetchStates(ctx context.Context) ([]app.StateVector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building states request: %v", app.ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling states endpoint: %v", app.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: states endpoint returned status %d", app.ErrFetch, resp.StatusCode)
	}

	var raw statesResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding states response: %v", app.ErrFetch, err)
	}
	if raw.States == nil {
		return nil, fmt.Errorf("%w: states response missing top-level states list", app.ErrFetch)
	}

	return parseStates(*raw.States), nil
}

// parseStates decodes the positional per-aircraft arrays documented by the
// OpenSky API: icao24 @0, callsign @1, origin country @2, time_position @3,
// longitude @5, latitude @6, baro altitude @7, velocity @9.
func parseStates(raw [][]interface{}) []app.StateVector {
	states := make([]app.StateVector, 0, len(raw))
	for _, s := range raw {
		if len(s) < 10 {
			continue
		}
		sv := app.StateVector{
			ICAO24:        stringAt(s, 0),
			CallSign:      stringAt(s, 1),
			OriginCountry: stringAt(s, 2),
			TimePosition:  intAt(s, 3),
			Longitude:     floatAt(s, 5),
			Latitude:      floatAt(s, 6),
			Altitude:      floatAt(s, 7),
			Velocity:      floatAt(s, 9),
		}
		if sv.ICAO24 == "" {
			continue
		}
		states = append(states, sv)
	}
	return states
}

func stringAt(s []interface{}, i int) string {
	if v, ok := s[i].(string); ok {
		return v
	}
	return ""
}

func floatAt(s []interface{}, i int) *float64 {
	if v, ok := s[i].(float64); ok {
		return &v
	}
	return nil
}

func intAt(s []interface{}, i int) *int64 {
	if v, ok := s[i].(float64); ok {
		n := int64(v)
		return &n
	}
	return nil
}
