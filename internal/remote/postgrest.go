package remote

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

	"staffsync/internal/model"
	"staffsync/internal/staff"
)

// PostgRESTRemote talks to a PostgREST (or Supabase) table over HTTP:
//
//	GET    /rest/v1/<table>?select=*&order=created_at.desc
//	POST   /rest/v1/<table>               Prefer: return=representation
//	PATCH  /rest/v1/<table>?id=eq.<id>    Prefer: return=representation
//	DELETE /rest/v1/<table>?id=eq.<id>    Prefer: return=representation
//
// PostgREST answers PATCH and DELETE that match nothing with an empty array,
// which is reported as staff.ErrNotFound.
type PostgRESTRemote struct {
	baseURL string
	table   string
	apiKey  string
	client  *http.Client
}

var _ staff.RemoteService = (*PostgRESTRemote)(nil)

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote error: status=%d body=%s", e.StatusCode, e.Body)
}

// NewPostgRESTRemote creates a client for table at baseURL. Every request is
// bounded by timeout.
func NewPostgRESTRemote(baseURL, table, apiKey string, timeout time.Duration) (*PostgRESTRemote, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url %q must be http or https", baseURL)
	}
	if table == "" {
		return nil, fmt.Errorf("remote table must be set")
	}

	return &PostgRESTRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		table:   table,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// List returns all records, newest first.
func (p *PostgRESTRemote) List(ctx context.Context) ([]model.Record, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}

	var out []model.Record
	if err := p.do(ctx, http.MethodGet, q, nil, &out); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if out == nil {
		out = []model.Record{}
	}
	return out, nil
}

// Get returns the record with the given id.
func (p *PostgRESTRemote) Get(ctx context.Context, id string) (*model.Record, error) {
	q := url.Values{"select": {"*"}, "id": {"eq." + id}}

	var out []model.Record
	if err := p.do(ctx, http.MethodGet, q, nil, &out); err != nil {
		return nil, fmt.Errorf("getting record %s: %w", id, err)
	}
	return single(id, out)
}

// Insert creates a record; the server assigns id and created_at.
func (p *PostgRESTRemote) Insert(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	var out []model.Record
	if err := p.do(ctx, http.MethodPost, nil, in, &out); err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("inserting record: empty representation")
	}
	return &out[0], nil
}

// Patch overwrites the attributes of the record with the given id.
func (p *PostgRESTRemote) Patch(ctx context.Context, id string, in model.RecordInput) (*model.Record, error) {
	q := url.Values{"id": {"eq." + id}}

	var out []model.Record
	if err := p.do(ctx, http.MethodPatch, q, in, &out); err != nil {
		return nil, fmt.Errorf("patching record %s: %w", id, err)
	}
	return single(id, out)
}

// Delete removes the record with the given id.
func (p *PostgRESTRemote) Delete(ctx context.Context, id string) error {
	q := url.Values{"id": {"eq." + id}}

	var out []model.Record
	if err := p.do(ctx, http.MethodDelete, q, nil, &out); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	if _, err := single(id, out); err != nil {
		return err
	}
	return nil
}

// Ping issues a minimal read to check that the service is reachable.
func (p *PostgRESTRemote) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	if err := p.do(ctx, http.MethodGet, q, nil, nil); err != nil {
		return fmt.Errorf("pinging remote: %w", err)
	}
	return nil
}

func single(id string, out []model.Record) (*model.Record, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("record %s: %w", id, staff.ErrNotFound)
	}
	return &out[0], nil
}

func (p *PostgRESTRemote) endpoint(q url.Values) string {
	u := p.baseURL + "/rest/v1/" + url.PathEscape(p.table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (p *PostgRESTRemote) do(ctx context.Context, method string, q url.Values, body any, out any) error {
	var r io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding body: %w", err)
		}
		r = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, p.endpoint(q), r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
