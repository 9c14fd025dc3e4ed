package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rentdynamics/rd-client-go/internal/transport"
	"github.com/rentdynamics/rd-client-go/payload"
	"github.com/rentdynamics/rd-client-go/query"
)

// Get fetches endpoint with params serialized into the query string. The
// signature covers the endpoint path only.
func (c *Client) Get(ctx context.Context, endpoint string, params query.Params) (json.RawMessage, error) {
	endpoint = normalizePath(endpoint)
	headers, err := c.Headers(endpoint, nil)
	if err != nil {
		return nil, err
	}

	c.logger.V(1).Info("request", "method", http.MethodGet, "endpoint", endpoint, "signed", len(headers) > 0)
	resp, err := c.http.Get(ctx, endpoint, params.Encode(), headers)
	if err != nil {
		return nil, err
	}
	return transport.ParseResponse(resp)
}

// Delete deletes the resource at endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) (json.RawMessage, error) {
	endpoint = normalizePath(endpoint)
	headers, err := c.Headers(endpoint, nil)
	if err != nil {
		return nil, err
	}

	c.logger.V(1).Info("request", "method", http.MethodDelete, "endpoint", endpoint, "signed", len(headers) > 0)
	resp, err := c.http.Delete(ctx, endpoint, headers)
	if err != nil {
		return nil, err
	}
	return transport.ParseResponse(resp)
}

// Put sends body as JSON to endpoint. body may be any value payload.FromAny
// accepts, including structs with json tags, or nil for no body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPut, endpoint, body)
}

// Post sends body as JSON to endpoint. body may be any value payload.FromAny
// accepts, including structs with json tags.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, endpoint, body)
}

// send signs the normalized form of body but transmits body as given. A nil
// body sends no payload; pass payload.Null() to send an explicit null.
func (c *Client) send(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	endpoint = normalizePath(endpoint)

	var (
		signed *payload.Value
		data   []byte
	)
	if body != nil {
		v, err := payload.FromAny(body)
		if err != nil {
			return nil, &ValidationError{Field: "body", Message: err.Error()}
		}
		data, err = v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("rentdynamics: marshalling request body: %w", err)
		}
		signed = &v
	}

	headers, err := c.Headers(endpoint, signed)
	if err != nil {
		return nil, err
	}

	c.logger.V(1).Info("request", "method", method, "endpoint", endpoint, "signed", len(headers) > 0, "bytes", len(data))
	do := c.http.Post
	if method == http.MethodPut {
		do = c.http.Put
	}
	resp, err := do(ctx, endpoint, headers, data)
	if err != nil {
		return nil, err
	}
	return transport.ParseResponse(resp)
}

// Decode unmarshals the result of a request method into T, passing errors
// through:
//
//	units, err := client.Decode[[]Unit](c.Get(ctx, "/units", query.Params{}))
func Decode[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("rentdynamics: parsing response: %w", err)
	}
	return out, nil
}
