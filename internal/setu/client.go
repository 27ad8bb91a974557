// Package setu is the HTTP client for the Setu account-aggregator platform:
// consent-grant URLs, data-fetch sessions, session payload retrieval and the
// FIP master list.
package setu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"finagg/internal/config"
)

type Client struct {
	baseURL           string
	clientID          string
	clientSecret      string
	productInstanceID string
	http              *http.Client
}

func NewClient(cfg config.SetuConfig) *Client {
	return &Client{
		baseURL:           cfg.BaseURL,
		clientID:          cfg.ClientID,
		clientSecret:      cfg.ClientSecret,
		productInstanceID: cfg.ProductInstanceID,
		http:              &http.Client{Timeout: cfg.Timeout},
	}
}

type ConsentParams struct {
	VUA           string    `json:"vua"`
	FITypes       []string  `json:"fiTypes"`
	FetchType     string    `json:"fetchType"`
	DataRangeFrom time.Time `json:"dataRangeFrom"`
	DataRangeTo   time.Time `json:"dataRangeTo"`
	ConsentExpiry time.Time `json:"consentExpiry"`
	PurposeCode   string    `json:"purposeCode"`
	PurposeText   string    `json:"purposeText"`
	TraceID       string    `json:"traceId"`
}

type ConsentResponse struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Status  string   `json:"status"`
	FITypes []string `json:"fiTypes"`
}

type SessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type FIP struct {
	FIPID           string `json:"fipId"`
	Name            string `json:"name"`
	InstitutionType string `json:"institutionType"`
}

func (c *Client) CreateConsent(ctx context.Context, params ConsentParams) (ConsentResponse, error) {
	var resp ConsentResponse
	if err := c.post(ctx, "/consents", params, &resp); err != nil {
		return ConsentResponse{}, err
	}
	return resp, nil
}

func (c *Client) CreateDataSession(ctx context.Context, consentID string, from, to time.Time) (SessionResponse, error) {
	body := map[string]any{
		"consentId": consentID,
		"dataRange": map[string]string{
			"from": from.UTC().Format("2006-01-02T15:04:05Z"),
			"to":   to.UTC().Format("2006-01-02T15:04:05Z"),
		},
		"format": "json",
	}
	var resp SessionResponse
	if err := c.post(ctx, "/sessions", body, &resp); err != nil {
		return SessionResponse{}, err
	}
	return resp, nil
}

// FetchSessionData returns the raw session payload bytes so the fetcher can
// persist the aggregator's JSON verbatim.
func (c *Client) FetchSessionData(ctx context.Context, sessionID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("setu: fetch session %s: %w", sessionID, err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("setu: read session %s: %w", sessionID, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("setu: fetch session %s: status %d", sessionID, res.StatusCode)
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("setu: fetch session %s: response is not JSON", sessionID)
	}
	return payload, nil
}

func (c *Client) ListFIPs(ctx context.Context) ([]FIP, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fips", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("setu: list fips: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("setu: list fips: status %d", res.StatusCode)
	}
	var parsed struct {
		FIPs []FIP `json:"fips"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("setu: list fips: %w", err)
	}
	return parsed.FIPs, nil
}

// VerifyPAN calls the PAN verification product. The aggregator answers with a
// verification string; anything other than success/failed is an upstream
// error.
func (c *Client) VerifyPAN(ctx context.Context, pan string) (bool, error) {
	body := map[string]string{
		"pan":     pan,
		"consent": "Y",
		"reason":  "For user PAN verification",
	}
	var resp struct {
		Verification string `json:"verification"`
	}
	if err := c.post(ctx, "/api/verify/pan", body, &resp); err != nil {
		return false, err
	}
	switch resp.Verification {
	case "success", "SUCCESS":
		return true, nil
	case "failed", "FAILED":
		return false, nil
	}
	return false, fmt.Errorf("setu: unexpected verification status %q", resp.Verification)
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("setu: %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("setu: %s: status %d", path, res.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return fmt.Errorf("setu: %s: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-product-instance-id", c.productInstanceID)
	req.Header.Set("Content-Type", "application/json")
}
