package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/auth"
)

// Resource is a collection of the remote REST API.
type Resource string

const (
	Categories Resource = "categories"
	Courses    Resource = "courses"
	Lessons    Resource = "lessons"
	Questions  Resource = "questions"
	Quizzes    Resource = "quizzes"
	Users      Resource = "users"
)

// APIError is a non-2xx answer of the remote API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote api: %d %s", e.Status, e.Message)
}

// UserMessage is the server-provided explanation, if any.
func (e *APIError) UserMessage() string { return e.Message }

// IsUnauthorized reports whether the remote API refused the bearer token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// envelope is the common shape of the remote API answers.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the remote REST API of the learning platform.
type Client struct {
	baseURL   string
	loginPath string
	http      *http.Client
	logger    core.Logger
}

var _ auth.Authenticator = (*Client)(nil)

func NewClient(conf core.RestAPIConfig, logger core.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(conf.BaseURL, "/"),
		loginPath: conf.LoginPath,
		http:      &http.Client{Timeout: conf.Timeout},
		logger:    logger,
	}
}

// do performs the request and returns the raw response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(respBody, &env) == nil {
			apiErr.Message = env.Message
		}
		c.logger.Debug(fmt.Sprintf("%s %s: %d", method, path, resp.StatusCode))
		return nil, apiErr
	}
	return respBody, nil
}

// unwrap returns the `data` member of an enveloped answer, or the whole answer otherwise.
func unwrap(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if body[0] == '{' {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Data != nil {
			return env.Data
		}
	}
	return json.RawMessage(body)
}

func (c *Client) call(ctx context.Context, method, path, token string, query url.Values, body json.RawMessage) (json.RawMessage, error) {
	respBody, err := c.do(ctx, method, path, token, query, body)
	if err != nil {
		return nil, err
	}
	return unwrap(respBody), nil
}

func resourcePath(res Resource, id ...string) string {
	p := "/" + string(res)
	if len(id) > 0 && id[0] != "" {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

func (c *Client) List(ctx context.Context, token string, res Resource, query url.Values) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, resourcePath(res), token, query, nil)
}

// ListOf lists the `res` children of a parent record, e.g. the lessons of a course.
func (c *Client) ListOf(ctx context.Context, token string, parent Resource, parentID string, res Resource) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, resourcePath(parent, parentID)+"/"+string(res), token, nil, nil)
}

func (c *Client) Get(ctx context.Context, token string, res Resource, id string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, resourcePath(res, id), token, nil, nil)
}

func (c *Client) Create(ctx context.Context, token string, res Resource, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, resourcePath(res), token, nil, body)
}

func (c *Client) Update(ctx context.Context, token string, res Resource, id string, body json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPut, resourcePath(res, id), token, nil, body)
}

func (c *Client) Delete(ctx context.Context, token string, res Resource, id string) error {
	_, err := c.do(ctx, http.MethodDelete, resourcePath(res, id), token, nil, nil)
	return err
}
