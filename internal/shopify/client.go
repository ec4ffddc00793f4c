package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	APIVersion string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client executes Admin GraphQL calls against a shop. OAuth and billing
// mutations stay with Shopify's own flows; this client only reads state the
// embedded admin UI needs.
type Client struct {
	httpClient *http.Client
	apiVersion string
}

func NewClient(opts Options) *Client {
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = "2025-07"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: client, apiVersion: version}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// Execute runs one GraphQL query against the shop's Admin API.
func (c *Client) Execute(ctx context.Context, shopDomain, accessToken, query string, variables map[string]any) (json.RawMessage, error) {
	if c == nil {
		return nil, errors.New("shopify: client not configured")
	}
	shopDomain = normalizeDomain(shopDomain)
	if shopDomain == "" {
		return nil, errors.New("shopify: shop domain required")
	}
	if accessToken == "" {
		return nil, errors.New("shopify: access token required")
	}

	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.apiVersion)
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify: http %d from admin api", resp.StatusCode)
	}
	var out graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("shopify: graphql error: %s", out.Errors[0].Message)
	}
	return out.Data, nil
}

// Subscription is the slice of an app subscription the admin UI cares about.
type Subscription struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

const activeSubscriptionsQuery = `
query {
  currentAppInstallation {
    activeSubscriptions {
      name
      status
    }
  }
}`

// ActiveSubscriptions returns the shop's active app subscriptions.
func (c *Client) ActiveSubscriptions(ctx context.Context, shopDomain, accessToken string) ([]Subscription, error) {
	data, err := c.Execute(ctx, shopDomain, accessToken, activeSubscriptionsQuery, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		CurrentAppInstallation struct {
			ActiveSubscriptions []Subscription `json:"activeSubscriptions"`
		} `json:"currentAppInstallation"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload.CurrentAppInstallation.ActiveSubscriptions, nil
}

func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}
