package cli

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
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) LoanOffers(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/loans/offers", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListLoans(ctx context.Context, accessToken string, all bool) (map[string]any, error) {
	path := "/v1/loans"
	if all {
		path = "/v1/loans?all=1"
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) QuoteLoan(ctx context.Context, accessToken, loanType string, amountCents int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans/quote", accessToken, map[string]any{
		"type":         loanType,
		"amount_cents": amountCents,
	}, &out, "")
	return out, err
}

func (c *Client) TakeLoan(ctx context.Context, accessToken, loanType string, amountCents int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/loans/take", accessToken, map[string]any{
		"type":         loanType,
		"amount_cents": amountCents,
	}, &out, idem)
	return out, err
}

func (c *Client) RepayLoan(ctx context.Context, accessToken string, loanID, amountCents int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/loans/%d/repay", loanID), accessToken, map[string]any{
		"amount_cents": amountCents,
	}, &out, idem)
	return out, err
}

func (c *Client) ListCompanies(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/companies", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CreateCompany(ctx context.Context, accessToken, name, industry, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/companies", accessToken, map[string]any{
		"name":     name,
		"industry": industry,
	}, &out, idem)
	return out, err
}

func (c *Client) UpgradeCompany(ctx context.Context, accessToken string, companyID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/companies/%d/upgrade", companyID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) TradeVentureShares(ctx context.Context, accessToken string, companyID int64, side string, pct float64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/companies/%d/shares/trade", companyID), accessToken, map[string]any{
		"side": side,
		"pct":  pct,
	}, &out, idem)
	return out, err
}

func (c *Client) ListMarket(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) MarketDetail(ctx context.Context, accessToken, ticker string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market/"+url.PathEscape(ticker), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) TradeRealShares(ctx context.Context, accessToken, ticker, side string, pct float64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/"+url.PathEscape(ticker)+"/trade", accessToken, map[string]any{
		"side": side,
		"pct":  pct,
	}, &out, idem)
	return out, err
}

func (c *Client) StudioCatalog(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/studio/catalog", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListProjects(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/studio/projects", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) StartProduction(ctx context.Context, accessToken string, companyID int64, title, genre, projectType string, budgetCents int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/studio/projects", accessToken, map[string]any{
		"company_id":   companyID,
		"title":        title,
		"genre":        genre,
		"type":         projectType,
		"budget_cents": budgetCents,
	}, &out, idem)
	return out, err
}

func (c *Client) AutoSettings(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/studio/auto-settings", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) SaveAutoSettings(ctx context.Context, accessToken string, settings map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPut, "/v1/studio/auto-settings", accessToken, settings, &out, "")
	return out, err
}

func (c *Client) AutoPlan(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/studio/auto-plan", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListSaves(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/saves", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) WriteSave(ctx context.Context, accessToken, slotID, name string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPut, "/v1/saves/"+url.PathEscape(slotID), accessToken, map[string]any{
		"name": name,
	}, &out, "")
	return out, err
}

func (c *Client) DeleteSave(ctx context.Context, accessToken, slotID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, "/v1/saves/"+url.PathEscape(slotID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
