/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pagebuilder/internal/domain"
)

// Client is a minimal HTTP client for the publish API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. A trailing slash on baseURL is
// dropped; timeout <= 0 means 10s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method, Path string
	Code         int
	Message      string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

// Is maps 404 and 409 onto ErrNotFound and ErrConflict.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Message: e.Error}
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// TokenResponse is the answer of POST /api/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// RequestToken asks the server for a bearer token and stores it on c.
func (c *Client) RequestToken(ctx context.Context, subject string, ttl time.Duration) (TokenResponse, error) {
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var tr TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", req, nil, &tr); err != nil {
		return TokenResponse{}, err
	}
	if tr.Token == "" {
		return TokenResponse{}, errors.New("server returned an empty token")
	}
	c.Token = tr.Token
	return tr, nil
}

// ListPages returns the published pages.
func (c *Client) ListPages(ctx context.Context) ([]PageSummary, error) {
	var list []PageSummary
	if err := c.do(ctx, http.MethodGet, "/api/pages", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetPage fetches the latest published version of a page.
func (c *Client) GetPage(ctx context.Context, id string) (PageRecord, error) {
	var rec PageRecord
	if err := c.do(ctx, http.MethodGet, "/api/pages/"+url.PathEscape(id), nil, nil, &rec); err != nil {
		return PageRecord{}, err
	}
	return rec, nil
}

// PublishPage uploads doc as the page's next version. ifVersion > 0 makes the
// write conditional on the server still holding that version.
func (c *Client) PublishPage(ctx context.Context, doc domain.Document, ifVersion int64) (PageRecord, error) {
	if doc.ID == "" {
		return PageRecord{}, errors.New("page has no id")
	}
	var h http.Header
	if ifVersion > 0 {
		h = http.Header{"If-Match": []string{strconv.Quote(strconv.FormatInt(ifVersion, 10))}}
	}
	var rec PageRecord
	if err := c.do(ctx, http.MethodPut, "/api/pages/"+url.PathEscape(doc.ID), doc, h, &rec); err != nil {
		return PageRecord{}, err
	}
	return rec, nil
}

// PageVersions lists the published versions of a page.
func (c *Client) PageVersions(ctx context.Context, id string) ([]PageSummary, error) {
	var list []PageSummary
	if err := c.do(ctx, http.MethodGet, "/api/pages/"+url.PathEscape(id)+"/versions", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
