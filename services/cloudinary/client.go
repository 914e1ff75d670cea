package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the requested resource does not exist
var ErrNotFound = errors.New("cloudinary: resource not found")

// Resource is the subset of a Cloudinary resource description we use
type Resource struct {
	PublicID     string    `json:"public_id"`
	SecureURL    string    `json:"secure_url"`
	ResourceType string    `json:"resource_type"`
	Format       string    `json:"format"`
	Bytes        int64     `json:"bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

type listResponse struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"next_cursor"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Cloudinary upload and admin APIs
type Client struct {
	client    *resty.Client
	apiURL    string
	cloudName string
	apiKey    string
	apiSecret string
	now       func() time.Time
}

// NewClient creates a new Cloudinary client. apiURL is the versioned API root,
// e.g. https://api.cloudinary.com/v1_1
func NewClient(apiURL, cloudName, apiKey, apiSecret string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetTimeout(timeout)

	return &Client{
		client:    client,
		apiURL:    strings.TrimRight(apiURL, "/"),
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		now:       time.Now,
	}
}

// UploadRaw uploads data as a raw resource under publicID, replacing any previous version
func (c *Client) UploadRaw(ctx context.Context, publicID string, data []byte, contentType string) (*Resource, error) {
	params := map[string]string{
		"public_id":  publicID,
		"overwrite":  "true",
		"invalidate": "true",
		"timestamp":  strconv.FormatInt(c.now().Unix(), 10),
	}
	params["signature"] = Sign(params, c.apiSecret)
	params["api_key"] = c.apiKey
	params["file"] = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(params).
		Post(fmt.Sprintf("%s/%s/raw/upload", c.apiURL, c.cloudName))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", publicID, err)
	}
	if resp.IsError() {
		return nil, statusError("upload", resp)
	}

	var res Resource
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, fmt.Errorf("upload %s: decode response: %w", publicID, err)
	}
	return &res, nil
}

// Resource looks up one uploaded resource through the admin API
func (c *Client) Resource(ctx context.Context, resourceType, publicID string) (*Resource, error) {
	resp, err := c.admin(ctx).
		Get(fmt.Sprintf("%s/%s/resources/%s/upload/%s", c.apiURL, c.cloudName, resourceType, publicID))
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", publicID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, statusError("resource", resp)
	}

	var res Resource
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, fmt.Errorf("resource %s: decode response: %w", publicID, err)
	}
	return &res, nil
}

// ListResources lists uploaded resources under prefix, newest first
func (c *Client) ListResources(ctx context.Context, resourceType, prefix string, maxResults int) ([]Resource, error) {
	query := url.Values{}
	query.Set("prefix", prefix)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("direction", "-1")

	resp, err := c.admin(ctx).
		SetQueryParamsFromValues(query).
		Get(fmt.Sprintf("%s/%s/resources/%s/upload", c.apiURL, c.cloudName, resourceType))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	if resp.IsError() {
		return nil, statusError("list", resp)
	}

	var list listResponse
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("list %s: decode response: %w", prefix, err)
	}
	return list.Resources, nil
}

// Download fetches the content behind a delivery URL
func (c *Client) Download(ctx context.Context, deliveryURL string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(deliveryURL)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, statusError("download", resp)
	}
	return resp.Body(), nil
}

func (c *Client) admin(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetBasicAuth(c.apiKey, c.apiSecret)
}

// Sign computes the upload API signature: the sorted key=value pairs joined
// by '&', followed by the API secret, hashed with SHA-1.
func Sign(params map[string]string, apiSecret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + apiSecret))
	return hex.EncodeToString(sum[:])
}

func statusError(op string, resp *resty.Response) error {
	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), body.Error.Message)
	}
	return fmt.Errorf("%s: status %d", op, resp.StatusCode())
}
