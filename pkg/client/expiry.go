package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// ExpiryClient wraps the /api/v1/expiry routes.
type ExpiryClient struct {
	client *Client
}

type productList struct {
	Products []WorkItem `json:"products"`
	Count    int        `json:"count"`
}

type historyList struct {
	Items []HistoryItem `json:"items"`
	Count int           `json:"count"`
}

type noteBody struct {
	Note string `json:"note,omitempty"`
}

type dateChangeBody struct {
	NewExpiryDate string `json:"newExpiryDate,omitempty"`
	Note          string `json:"note,omitempty"`
}

type removeBody struct {
	ExcludeFromCheck bool   `json:"excludeFromCheck"`
	NewExpiryDate    string `json:"newExpiryDate,omitempty"`
	Note             string `json:"note,omitempty"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func (e *ExpiryClient) CriticalProducts(ctx context.Context) ([]WorkItem, error) {
	var out productList
	if err := e.client.get(ctx, apiPrefix+"/critical-products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (e *ExpiryClient) WarningProducts(ctx context.Context) ([]WorkItem, error) {
	var out productList
	if err := e.client.get(ctx, apiPrefix+"/warning-products", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// Worklist returns both bands with completion summaries. includeProcessed
// keeps items already handled today.
func (e *ExpiryClient) Worklist(ctx context.Context, includeProcessed bool) (*Worklist, error) {
	q := url.Values{}
	if includeProcessed {
		q.Set("include_processed", "true")
	}
	var out Worklist
	if err := e.client.get(ctx, apiPrefix+"/worklist", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) Status(ctx context.Context, productID string) (*WorkItem, error) {
	var out WorkItem
	if err := e.client.get(ctx, apiPrefix+"/status/"+url.PathEscape(productID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) History(ctx context.Context, opts HistoryOptions) ([]HistoryItem, error) {
	q := url.Values{}
	if !opts.Date.IsZero() {
		q.Set("date", opts.Date.Format(dateLayout))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Latest {
		q.Set("latest", "true")
	}
	var out historyList
	if err := e.client.get(ctx, apiPrefix+"/history", q, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (e *ExpiryClient) Settings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := e.client.get(ctx, apiPrefix+"/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	var out Settings
	if err := e.client.replace(ctx, apiPrefix+"/settings", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) Label(ctx context.Context, productID, note string) (*Action, error) {
	var out Action
	if err := e.client.post(ctx, apiPrefix+"/label/"+url.PathEscape(productID), nil, noteBody{Note: note}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) Remove(ctx context.Context, productID string, opts RemoveOptions) (*Action, error) {
	body := removeBody{ExcludeFromCheck: opts.ExcludeFromCheck, NewExpiryDate: formatDate(opts.NewExpiryDate), Note: opts.Note}
	var out Action
	if err := e.client.post(ctx, apiPrefix+"/remove/"+url.PathEscape(productID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveCritical removes a critical product. A nil newDate clears its date.
func (e *ExpiryClient) RemoveCritical(ctx context.Context, productID string, newDate *time.Time, note string) (*Action, error) {
	return e.dateChange(ctx, "/remove-critical/", productID, newDate, note)
}

func (e *ExpiryClient) Deactivate(ctx context.Context, productID string, newDate *time.Time, note string) (*Action, error) {
	return e.dateChange(ctx, "/deactivate/", productID, newDate, note)
}

func (e *ExpiryClient) dateChange(ctx context.Context, route, productID string, newDate *time.Time, note string) (*Action, error) {
	var out Action
	body := dateChangeBody{NewExpiryDate: formatDate(newDate), Note: note}
	if err := e.client.post(ctx, apiPrefix+route+url.PathEscape(productID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) UpdateExpiryDate(ctx context.Context, productID string, newDate time.Time, note string) (*Action, error) {
	var out Action
	body := dateChangeBody{NewExpiryDate: newDate.Format(dateLayout), Note: note}
	if err := e.client.put(ctx, apiPrefix+"/update-date/"+url.PathEscape(productID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) Undo(ctx context.Context, actionID string) (*UndoResult, error) {
	var out UndoResult
	if err := e.client.post(ctx, apiPrefix+"/undo/"+url.PathEscape(actionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DailyReminder is a GET on the wire but delivers a notification, so it is
// sent once.
func (e *ExpiryClient) DailyReminder(ctx context.Context) (*NotifyResult, error) {
	var out NotifyResult
	if err := e.client.do(ctx, http.MethodGet, apiPrefix+"/daily-reminder", nil, nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) CheckAndNotify(ctx context.Context) (*NotifyResult, error) {
	var out NotifyResult
	if err := e.client.post(ctx, apiPrefix+"/check-and-notify", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *ExpiryClient) Archive(ctx context.Context, day time.Time) (*ArchiveResult, error) {
	var out ArchiveResult
	q := url.Values{"date": {day.Format(dateLayout)}}
	if err := e.client.post(ctx, apiPrefix+"/archive", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
