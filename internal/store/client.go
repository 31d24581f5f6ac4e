// Package store is the HTTP client for the bill API
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/Ginzoh/bill-app-MK/internal/bill"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Client talks to the bill API. It implements bill.Store.
type Client struct {
	apiURL     string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client for the API at apiURL. Credentials are sent as
// basic auth when username is set.
func NewClient(apiURL, username, password string) *Client {
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Create uploads a receipt as multipart form data (file and email parts)
func (c *Client) Create(ctx context.Context, req bill.CreateRequest) (*bill.CreateResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	contentType := req.File.ContentType
	if contentType == "" {
		contentType = bill.ContentTypeFor(req.File.Name)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.File.Name)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(req.File.Data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := writer.WriteField("email", req.Email); err != nil {
		return nil, fmt.Errorf("writing email field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var result bill.CreateResult
	if err := c.do(ctx, http.MethodPost, "/api/bills", writer.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update persists b. A bill without ID is created.
func (c *Client) Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding bill: %w", err)
	}

	method, path := http.MethodPut, "/api/bills/"+url.PathEscape(b.ID)
	if b.ID == "" {
		method, path = http.MethodPost, "/api/bills"
	}

	var saved bill.Bill
	if err := c.do(ctx, method, path, "application/json", bytes.NewReader(data), &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Get fetches one bill
func (c *Client) Get(ctx context.Context, id string) (*bill.Bill, error) {
	var b bill.Bill
	if err := c.do(ctx, http.MethodGet, "/api/bills/"+url.PathEscape(id), "", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// List fetches the bills of email, or all bills when email is empty
func (c *Client) List(ctx context.Context, email string) ([]*bill.Bill, error) {
	path := "/api/bills"
	if email != "" {
		path += "?" + url.Values{"email": {email}}.Encode()
	}

	var bills []*bill.Bill
	if err := c.do(ctx, http.MethodGet, path, "", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// Delete removes a bill and its receipt
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/bills/"+url.PathEscape(id), "", nil, nil)
}

// do sends a request and decodes a JSON response into out. Non-2xx responses
// become *bill.StatusError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) != nil {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		return &bill.StatusError{Code: resp.StatusCode, Detail: apiErr.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
