// Package linkedin implements the REST transport against the LinkedIn API.
// Requests carry the session's bearer token; rate-limit and security-challenge
// responses are surfaced as sentinel errors so the executor can react to them.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonypilatti/linkedinbot/internal/auth"
	"github.com/jonypilatti/linkedinbot/internal/session"
)

const (
	defaultBaseURL = "https://api.linkedin.com"
	requestTimeout = 30 * time.Second

	// challengeHeader is set on responses that redirect into a security
	// checkpoint instead of serving the requested resource.
	challengeHeader = "X-LI-Challenge"
)

// Client is a thin REST client. It performs exactly one HTTP request per
// call; retry and pacing policy live with the caller.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	token        string
	httpClient   *http.Client
}

// New creates a Client. An empty baseURL selects the production API endpoint.
func New(baseURL, clientID, clientSecret, redirectURI string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

// UseToken sets the bearer token attached to subsequent API calls.
func (c *Client) UseToken(token string) {
	c.token = token
}

// ExchangeCode trades an OAuth authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (auth.Credential, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/v2/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return auth.Credential{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkSignals(resp); err != nil {
		return auth.Credential{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return auth.Credential{}, fmt.Errorf("exchange code: %w (status %d)", session.ErrAuthenticationFailed, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return auth.Credential{}, fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return auth.Credential{}, session.ErrAuthenticationFailed
	}
	return auth.Credential{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

// CurrentProfile fetches the authenticated member's own profile.
func (c *Client) CurrentProfile(ctx context.Context) (session.Profile, error) {
	var body struct {
		ID        string `json:"id"`
		FirstName string `json:"localizedFirstName"`
		LastName  string `json:"localizedLastName"`
		Headline  string `json:"localizedHeadline"`
	}
	if err := c.get(ctx, "/v2/me", nil, &body); err != nil {
		return session.Profile{}, err
	}
	return session.Profile{
		ID:        body.ID,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Headline:  body.Headline,
	}, nil
}

// Connections lists the member's first-degree connections.
func (c *Client) Connections(ctx context.Context) ([]session.Contact, error) {
	var body struct {
		Elements []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Title    string `json:"title"`
			Company  string `json:"company"`
			Headline string `json:"headline"`
		} `json:"elements"`
	}
	if err := c.get(ctx, "/v2/connections", nil, &body); err != nil {
		return nil, err
	}

	contacts := make([]session.Contact, 0, len(body.Elements))
	for _, e := range body.Elements {
		contacts = append(contacts, session.Contact{
			ID:       e.ID,
			Name:     e.Name,
			Title:    e.Title,
			Company:  e.Company,
			Headline: e.Headline,
		})
	}
	return contacts, nil
}

// SearchJobs queries job postings matching the query. Descriptions are not
// included; fetch them per posting with JobDescription.
func (c *Client) SearchJobs(ctx context.Context, query session.JobQuery) ([]session.JobPosting, error) {
	params := url.Values{"keywords": {strings.Join(query.Keywords, " ")}}
	if query.Location != "" {
		params.Set("location", query.Location)
	}
	if query.EasyApplyOnly {
		params.Set("f_AL", "true")
	}

	var body struct {
		Elements []struct {
			ID        string `json:"id"`
			Title     string `json:"title"`
			Company   string `json:"company"`
			Location  string `json:"location"`
			ApplyURL  string `json:"applyUrl"`
			EasyApply bool   `json:"easyApply"`
		} `json:"elements"`
	}
	if err := c.get(ctx, "/v2/jobSearch", params, &body); err != nil {
		return nil, err
	}

	jobs := make([]session.JobPosting, 0, len(body.Elements))
	for _, e := range body.Elements {
		jobs = append(jobs, session.JobPosting{
			ID:        e.ID,
			Title:     e.Title,
			Company:   e.Company,
			Location:  e.Location,
			ApplyURL:  e.ApplyURL,
			EasyApply: e.EasyApply,
		})
	}
	return jobs, nil
}

// JobDescription fetches a posting's description as plain text.
func (c *Client) JobDescription(ctx context.Context, jobID string) (string, error) {
	var body struct {
		Description string `json:"description"`
	}
	if err := c.get(ctx, "/v2/jobs/"+url.PathEscape(jobID), nil, &body); err != nil {
		return "", err
	}
	return stripMarkup(body.Description), nil
}

// SendMessage delivers a direct message to a connection.
func (c *Client) SendMessage(ctx context.Context, contactID, text string) error {
	return c.post(ctx, "/v2/messages", map[string]any{
		"recipient": contactID,
		"body":      text,
	}, nil)
}

// ApplyToJob submits an application for the posting. coverNote may be empty.
func (c *Client) ApplyToJob(ctx context.Context, jobID, resumeID, coverNote string) error {
	return c.post(ctx, "/v2/jobs/"+url.PathEscape(jobID)+"/applications", map[string]any{
		"resumeId":  resumeID,
		"coverNote": coverNote,
	}, nil)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if err := checkSignals(resp); err != nil {
		return err
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return session.ErrNotAuthenticated
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// checkSignals maps throttling and security-challenge responses to their
// sentinel errors. The challenge check runs first: a checkpoint page can
// arrive under any status code.
func checkSignals(resp *http.Response) error {
	if resp.Header.Get(challengeHeader) != "" {
		return session.ErrChallenge
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return session.ErrRateLimited
	}
	return nil
}
