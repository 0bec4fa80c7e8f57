package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/domain"
)

// CredentialSource supplies the bearer credential of the current session, if any.
type CredentialSource interface {
	BearerToken() string
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func() string

func (f CredentialFunc) BearerToken() string { return f() }

// MutationResult carries the value the server confirmed for the mutated field.
// Confirmed is false when the endpoint answered 2xx without that field.
type MutationResult struct {
	Field     string
	Value     string
	Confirmed bool
}

// Gateway talks to the backing event-ticketing API.
type Gateway struct {
	baseURL string
	client  *Client
	creds   CredentialSource
}

func NewGateway(baseURL string, client *Client, creds CredentialSource) *Gateway {
	if client == nil {
		client = NewClient(DefaultClientConfig())
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		creds:   creds,
	}
}

type endpoint struct {
	method string
	path   string // fmt pattern taking the record id
}

// Resource is the typed gateway for one resource type.
type Resource[T domain.Record] struct {
	g        *Gateway
	kind     domain.ResourceType
	listPath string
	ops      map[domain.Operation]endpoint
}

func (g *Gateway) Events() *Resource[domain.Event] {
	return &Resource[domain.Event]{
		g:        g,
		kind:     domain.ResourceEvents,
		listPath: "/events",
		ops: map[domain.Operation]endpoint{
			domain.OpToggleStatus: {http.MethodPatch, "/events/%s/toggle"},
			domain.OpDelete:       {http.MethodDelete, "/events/%s"},
		},
	}
}

func (g *Gateway) Users() *Resource[domain.User] {
	return &Resource[domain.User]{
		g:        g,
		kind:     domain.ResourceUsers,
		listPath: "/admin/users",
		ops: map[domain.Operation]endpoint{
			domain.OpChangeRole: {http.MethodPut, "/admin/users/%s/role"},
			domain.OpDelete:     {http.MethodDelete, "/admin/users/%s"},
		},
	}
}

func (r *Resource[T]) Kind() domain.ResourceType { return r.kind }

// List fetches the full collection, forwarding the server-side filters.
func (r *Resource[T]) List(ctx context.Context, filters domain.ListFilters) (domain.Collection[T], error) {
	u, err := url.Parse(r.g.baseURL + r.listPath)
	if err != nil {
		return domain.Collection[T]{}, malformed("bad base url: %v", err)
	}
	q := url.Values{}
	if filters.Status != "" {
		q.Set("status", filters.Status)
	}
	if filters.Category != "" {
		q.Set("category", filters.Category)
	}
	if filters.Limit > 0 {
		q.Set("limit", strconv.Itoa(filters.Limit))
	}
	u.RawQuery = q.Encode()

	status, body, err := r.g.send(ctx, http.MethodGet, u.String(), nil)
	if err == nil && !isSuccess(status) {
		err = statusError(status, body)
	}
	if err != nil {
		observe(string(r.kind), "list", err)
		return domain.Collection[T]{}, err
	}

	coll, err := decodeCollection[T](body)
	observe(string(r.kind), "list", err)
	return coll, err
}

// Mutate applies op to one record. payload, when non-nil, is sent as JSON.
func (r *Resource[T]) Mutate(ctx context.Context, id domain.ID, op domain.Operation, payload any) (MutationResult, error) {
	ep, ok := r.ops[op]
	if !ok || op == domain.OpDelete {
		return MutationResult{}, &domain.GatewayError{
			Kind:    domain.GatewayServerError,
			Message: fmt.Sprintf("%s does not support %s", r.kind, op),
		}
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return MutationResult{}, malformed("encode payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	status, respBody, err := r.g.send(ctx, ep.method, r.g.baseURL+fmt.Sprintf(ep.path, url.PathEscape(string(id))), body)
	if err == nil && !isSuccess(status) {
		err = statusError(status, respBody)
	}
	if err != nil {
		observe(string(r.kind), string(op), err)
		return MutationResult{}, err
	}

	res, err := decodeMutation(op.Field(), respBody)
	observe(string(r.kind), string(op), err)
	return res, err
}

// Remove deletes one record. Any 2xx counts as success, body ignored.
func (r *Resource[T]) Remove(ctx context.Context, id domain.ID) error {
	ep := r.ops[domain.OpDelete]
	status, body, err := r.g.send(ctx, ep.method, r.g.baseURL+fmt.Sprintf(ep.path, url.PathEscape(string(id))), nil)
	if err == nil && !isSuccess(status) {
		err = statusError(status, body)
	}
	observe(string(r.kind), string(domain.OpDelete), err)
	return err
}

// Metrics fetches the admin KPI summary.
func (g *Gateway) Metrics(ctx context.Context) (*domain.Metrics, error) {
	status, body, err := g.send(ctx, http.MethodGet, g.baseURL+"/admin/metrics", nil)
	if err == nil && !isSuccess(status) {
		err = statusError(status, body)
	}
	if err != nil {
		observe("metrics", "get", err)
		return nil, err
	}

	var wrapper struct {
		OK *bool `json:"ok"`
		domain.Metrics
		Totals *domain.MetricTotals `json:"totals"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &wrapper); err != nil {
		err = malformed("metrics: %v", err)
		observe("metrics", "get", err)
		return nil, err
	}
	if wrapper.OK != nil && !*wrapper.OK {
		err = &domain.GatewayError{Kind: domain.GatewayServerError, StatusCode: status, Message: "metrics not ok"}
		observe("metrics", "get", err)
		return nil, err
	}
	if wrapper.Totals == nil {
		err = malformed("metrics without totals")
		observe("metrics", "get", err)
		return nil, err
	}

	m := wrapper.Metrics
	m.Totals = *wrapper.Totals
	if m.Categories == nil {
		m.Categories = map[string]int{}
	}
	observe("metrics", "get", nil)
	return &m, nil
}

func (g *Gateway) send(ctx context.Context, method, rawURL string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return 0, nil, malformed("build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.creds != nil {
		if token := strings.TrimSpace(g.creds.BearerToken()); token != "" {
			if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = "Bearer " + token
			}
			req.Header.Set("Authorization", token)
		}
	}
	return g.client.Do(ctx, req)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Supports reports whether the resource has an endpoint for op.
func (r *Resource[T]) Supports(op domain.Operation) bool {
	_, ok := r.ops[op]
	return ok
}
