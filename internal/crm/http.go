package crm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient implements Client against the CRM's rest.php endpoint.
type HTTPClient struct {
	BaseURL         string
	ValidateTimeout time.Duration // session validation calls
	CallTimeout     time.Duration // everything else

	httpClient *http.Client
}

// NewHTTPClient builds a client with the given per-call timeouts.
func NewHTTPClient(baseURL string, validateTimeout, callTimeout time.Duration) *HTTPClient {
	if validateTimeout <= 0 {
		validateTimeout = 5 * time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &HTTPClient{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		ValidateTimeout: validateTimeout,
		CallTimeout:     callTimeout,
		httpClient:      &http.Client{},
	}
}

// Authenticate logs in with the CRM's md5-hashed password scheme.
func (c *HTTPClient) Authenticate(ctx context.Context, username, password string) (SessionID, error) {
	sum := md5.Sum([]byte(password))
	payload := map[string]interface{}{
		"user_auth": map[string]string{
			"user_name": username,
			"password":  hex.EncodeToString(sum[:]),
		},
		"application_name": "caseflow",
	}

	var resp struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.call(ctx, "login", payload, c.CallTimeout, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" || resp.ID == "-1" {
		return "", fmt.Errorf("crm: login rejected: %s %s", resp.Name, resp.Description)
	}
	return SessionID(resp.ID), nil
}

// ValidateSession checks the session with a short timeout so a dead CRM
// fails the caller quickly instead of hanging a worker.
func (c *HTTPClient) ValidateSession(ctx context.Context, id SessionID) (bool, error) {
	payload := map[string]interface{}{"session": string(id)}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "seamless_login", payload, c.ValidateTimeout, &resp); err != nil {
		return false, err
	}
	return resp.ID != "" && resp.ID != "-1", nil
}

// UpdateEntity sets fields on a remote record via set_entry.
func (c *HTTPClient) UpdateEntity(ctx context.Context, id SessionID, module, entityID string, fields map[string]string) (string, error) {
	nameValues := make([]map[string]string, 0, len(fields)+1)
	nameValues = append(nameValues, map[string]string{"name": "id", "value": entityID})
	for k, v := range fields {
		nameValues = append(nameValues, map[string]string{"name": k, "value": v})
	}
	payload := map[string]interface{}{
		"session":         string(id),
		"module_name":     module,
		"name_value_list": nameValues,
	}

	var resp json.RawMessage
	if err := c.call(ctx, "set_entry", payload, c.CallTimeout, &resp); err != nil {
		return "", err
	}
	return string(resp), nil
}

// call POSTs a form-encoded legacy REST request and decodes the JSON reply.
func (c *HTTPClient) call(ctx context.Context, method string, payload interface{}, timeout time.Duration, out interface{}) error {
	restData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm: marshal %s payload: %w", method, err)
	}

	form := url.Values{}
	form.Set("method", method)
	form.Set("input_type", "JSON")
	form.Set("response_type", "JSON")
	form.Set("rest_data", string(restData))

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("crm: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("crm: read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crm: %s returned HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("crm: decode %s response: %w", method, err)
	}
	return nil
}
