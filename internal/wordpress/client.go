// Package wordpress publishes posts through the WordPress REST API.
package wordpress

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

	"github.com/rs/zerolog"
)

const (
	AuthApplicationPassword = "application_password"
	AuthJWT                 = "jwt"

	maxExcerptRunes = 300
)

// Auth carries the credentials for one of the supported auth methods.
type Auth struct {
	Method   string
	User     string
	Password string
	JWTToken string
}

// Client publishes posts and resolves categories against one WordPress site.
// Category ids are cached per client by normalized name.
type Client struct {
	baseURL string
	auth    Auth
	client  *http.Client
	logger  zerolog.Logger

	categoryCache map[string]int
}

// PublishRequest is one post to publish.
type PublishRequest struct {
	Title           string
	ContentHTML     string
	MetaDescription string
	CategoryName    string
	Slug            string
}

// Post is the published result. ID is always set; Slug and Link are whatever
// the backend reported.
type Post struct {
	ID   int
	Slug string
	Link string
}

// NewClient builds a publisher for the site at baseURL. Credential
// misconfiguration is a startup failure.
func NewClient(baseURL string, auth Auth, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("wordpress base url is required")
	}

	method := strings.ToLower(strings.TrimSpace(auth.Method))
	if method == "" {
		method = AuthApplicationPassword
	}
	switch method {
	case AuthApplicationPassword:
		if strings.TrimSpace(auth.User) == "" || strings.TrimSpace(auth.Password) == "" {
			return nil, fmt.Errorf("wordpress user and password are required for application_password auth")
		}
	case AuthJWT:
		if strings.TrimSpace(auth.JWTToken) == "" {
			return nil, fmt.Errorf("wordpress jwt token is required for jwt auth")
		}
	default:
		return nil, fmt.Errorf("unsupported wordpress auth method: %s", auth.Method)
	}
	auth.Method = method

	return &Client{
		baseURL: base,
		auth:    auth,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:        logger,
		categoryCache: make(map[string]int),
	}, nil
}

// BaseURL returns the normalized site URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type postPayload struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Excerpt    string `json:"excerpt,omitempty"`
	Slug       string `json:"slug,omitempty"`
	Categories []int  `json:"categories,omitempty"`
}

type postResponse struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Link string `json:"link"`
}

// PublishPost creates one published post. Category resolution failures are
// logged and drop the category; they never fail the post itself.
func (c *Client) PublishPost(ctx context.Context, req PublishRequest) (*Post, error) {
	payload := postPayload{
		Title:   req.Title,
		Content: req.ContentHTML,
		Status:  "publish",
	}
	if excerpt := strings.TrimSpace(req.MetaDescription); excerpt != "" {
		payload.Excerpt = truncateRunes(excerpt, maxExcerptRunes)
	}
	if slug := strings.TrimSpace(req.Slug); slug != "" {
		payload.Slug = slug
	}
	if name := strings.TrimSpace(req.CategoryName); name != "" {
		if id, ok := c.ensureCategory(ctx, name); ok {
			payload.Categories = []int{id}
		}
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/posts", payload)
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}

	var parsed postResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode publish response: %w", err)
	}
	if parsed.ID == 0 {
		return nil, fmt.Errorf("publish response missing post id")
	}

	c.logger.Info().Int("post_id", parsed.ID).Str("slug", parsed.Slug).Msg("post published")
	return &Post{
		ID:   parsed.ID,
		Slug: parsed.Slug,
		Link: parsed.Link,
	}, nil
}

// ensureCategory resolves a category name to an id, looking it up first and
// creating it when absent. Failures yield "no category".
func (c *Client) ensureCategory(ctx context.Context, name string) (int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if id, ok := c.categoryCache[normalized]; ok {
		return id, true
	}

	if id, ok := c.findCategory(ctx, normalized); ok {
		c.categoryCache[normalized] = id
		return id, true
	}

	id, ok := c.createCategory(ctx, name)
	if ok {
		c.categoryCache[normalized] = id
	}
	return id, ok
}

func (c *Client) findCategory(ctx context.Context, normalizedName string) (int, bool) {
	endpoint := fmt.Sprintf(
		"%s/wp-json/wp/v2/categories?search=%s&per_page=1",
		c.baseURL,
		url.QueryEscape(normalizedName),
	)
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error().Err(err).Str("category", normalizedName).Msg("category lookup failed")
		return 0, false
	}

	var items []struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		c.logger.Error().Err(err).Str("category", normalizedName).Msg("category lookup response invalid")
		return 0, false
	}
	if len(items) == 0 || items[0].ID == 0 {
		return 0, false
	}
	return items[0].ID, true
}

func (c *Client) createCategory(ctx context.Context, name string) (int, bool) {
	payload := map[string]string{"name": strings.TrimSpace(name)}
	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/categories", payload)
	if err != nil {
		c.logger.Error().Err(err).Str("category", name).Msg("category create failed")
		return 0, false
	}

	var created struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == 0 {
		c.logger.Error().Str("category", name).Msg("category create response invalid")
		return 0, false
	}
	return created.ID, true
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal wordpress request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build wordpress request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth.Method == AuthJWT {
		req.Header.Set("Authorization", "Bearer "+c.auth.JWTToken)
	} else {
		req.SetBasicAuth(c.auth.User, c.auth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send wordpress request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read wordpress response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wordpress api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// PostURL composes a canonical post URL from the site base URL and a slug,
// joined with exactly one separator. Either side empty yields empty.
func PostURL(baseURL, slug string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	cleanSlug := strings.TrimLeft(strings.TrimSpace(slug), "/")
	if base == "" || cleanSlug == "" {
		return ""
	}
	return base + "/" + cleanSlug
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
