// Package apiclient is the REST client for the GestoreBinder backend. Every
// read fails with a *FetchError on a non-2xx answer, every write with a
// *MutationError, and transport failures surface as *NetworkError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gestorebinder/internal/core"
	applog "gestorebinder/internal/log"
)

const (
	requestTimeout = 15 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

// Paths of the REST interface.
const (
	LoginPath        = "/api/login"
	LogoutPath       = "/api/logout"
	BindersPath      = "/api/binders"
	CategoriesPath   = "/api/categories"
	TransactionsPath = "/api/transactions"
)

func BinderPath(id int64) string {
	return BindersPath + "/" + strconv.FormatInt(id, 10)
}

func BinderCategoriesPath(binderID int64) string {
	return BinderPath(binderID) + "/categories"
}

func CategoryPath(id int64) string {
	return CategoriesPath + "/" + strconv.FormatInt(id, 10)
}

func CategoryTransactionsPath(categoryID int64) string {
	return CategoryPath(categoryID) + "/transactions"
}

func TransactionPath(id int64) string {
	return TransactionsPath + "/" + strconv.FormatInt(id, 10)
}

// Client talks to the backend with a cookie jar so the session cookie set by
// Login is replayed on every following request.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *applog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is kept when
// set, otherwise a fresh one is installed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTransport routes requests through rt, e.g. the offline cache.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

func WithLogger(logger *applog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:   base,
		http:   &http.Client{},
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("apiclient: creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	c.logger = c.logger.WithComponent(applog.ComponentAPIClient)
	return c, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Cookies returns the session cookies currently held for the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// SetCookies restores previously saved session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.base, cookies)
}

// Login posts the credentials. A rejection yields an *AuthError carrying the
// server message, or DefaultLoginMessage when there is none.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload := map[string]string{"username": username, "password": password}
	status, body, err := c.do(ctx, http.MethodPost, LoginPath, payload)
	if err != nil {
		return err
	}
	if !success(status) {
		msg := serverMessage(body)
		if msg == "" {
			msg = DefaultLoginMessage
		}
		c.logger.Warn("Login rejected", applog.FieldStatusCode, status)
		return &AuthError{Status: status, Message: msg}
	}
	c.logger.Info("Login succeeded", applog.FieldOperation, applog.OpLogin)
	return nil
}

// Logout asks the server to drop the session. The local cookie jar is
// cleared regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearCookies()
	return c.mutate(ctx, http.MethodPost, LogoutPath, struct{}{}, nil)
}

func (c *Client) clearCookies() {
	expired := make([]*http.Cookie, 0)
	for _, ck := range c.http.Jar.Cookies(c.base) {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	if len(expired) > 0 {
		c.http.Jar.SetCookies(c.base, expired)
	}
}

// Probe reports whether the session is authenticated by reading the
// protected binder listing. Any failure counts as unauthenticated.
func (c *Client) Probe(ctx context.Context) bool {
	var binders []core.Binder
	if err := c.GetJSON(ctx, BindersPath, &binders); err != nil {
		c.logger.Debug("Probe failed", applog.FieldOperation, applog.OpProbe, applog.FieldError, err)
		return false
	}
	return true
}

// GetJSON reads path and decodes the JSON answer into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !success(status) {
		return &FetchError{Path: path, Status: status, Message: serverMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apiclient: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) ListBinders(ctx context.Context) ([]core.Binder, error) {
	var binders []core.Binder
	if err := c.GetJSON(ctx, BindersPath, &binders); err != nil {
		return nil, err
	}
	return binders, nil
}

func (c *Client) GetBinder(ctx context.Context, id int64) (core.Binder, error) {
	var b core.Binder
	err := c.GetJSON(ctx, BinderPath(id), &b)
	return b, err
}

func (c *Client) CreateBinder(ctx context.Context, name string) (core.Binder, error) {
	var b core.Binder
	err := c.mutate(ctx, http.MethodPost, BindersPath, nameBody{Name: name}, &b)
	return b, err
}

func (c *Client) UpdateBinder(ctx context.Context, id int64, name string) (core.Binder, error) {
	var b core.Binder
	err := c.mutate(ctx, http.MethodPut, BinderPath(id), nameBody{Name: name}, &b)
	return b, err
}

func (c *Client) DeleteBinder(ctx context.Context, id int64) error {
	return c.mutate(ctx, http.MethodDelete, BinderPath(id), nil, nil)
}

func (c *Client) ListCategories(ctx context.Context, binderID int64) ([]core.Category, error) {
	var cats []core.Category
	if err := c.GetJSON(ctx, BinderCategoriesPath(binderID), &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var cat core.Category
	err := c.GetJSON(ctx, CategoryPath(id), &cat)
	return cat, err
}

func (c *Client) CreateCategory(ctx context.Context, binderID int64, name string) (core.Category, error) {
	var cat core.Category
	body := struct {
		Name     string `json:"name"`
		BinderID int64  `json:"binderId"`
	}{Name: name, BinderID: binderID}
	err := c.mutate(ctx, http.MethodPost, CategoriesPath, body, &cat)
	return cat, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error) {
	var cat core.Category
	err := c.mutate(ctx, http.MethodPut, CategoryPath(id), nameBody{Name: name}, &cat)
	return cat, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.mutate(ctx, http.MethodDelete, CategoryPath(id), nil, nil)
}

func (c *Client) ListTransactions(ctx context.Context, categoryID int64) (core.TransactionList, error) {
	var list core.TransactionList
	err := c.GetJSON(ctx, CategoryTransactionsPath(categoryID), &list)
	return list, err
}

func (c *Client) CreateTransaction(ctx context.Context, categoryID int64, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	body := struct {
		core.TransactionInput
		CategoryID int64 `json:"categoryId"`
	}{TransactionInput: in, CategoryID: categoryID}
	err := c.mutate(ctx, http.MethodPost, TransactionsPath, body, &tx)
	return tx, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	err := c.mutate(ctx, http.MethodPut, TransactionPath(id), in, &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.mutate(ctx, http.MethodDelete, TransactionPath(id), nil, nil)
}

type nameBody struct {
	Name string `json:"name"`
}

func (c *Client) mutate(ctx context.Context, method, path string, payload, out any) error {
	status, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if !success(status) {
		return &MutationError{Method: method, Path: path, Status: status, Message: serverMessage(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("apiclient: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// do performs one request and returns the status and the (bounded) body.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("apiclient: encoding body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", applog.FieldMethod, method, applog.FieldPath, path, applog.FieldError, err)
		return 0, nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	if len(body) > maxBodySize {
		return resp.StatusCode, nil, fmt.Errorf("apiclient: %s %s: %w (limit %d bytes)", method, path, ErrResponseTooLarge, maxBodySize)
	}
	c.logger.Debug("Request completed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// serverMessage extracts the "message" field of a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}
