package apiclient

import (
	"context"
	"net/http"
)

// ============================================================================
// Generic API Client Helpers
// ============================================================================
//
// These helpers wrap Client.Execute with type-safe generics for the common
// authenticated verbs. Each decodes the unwrapped response body into a fresh
// T and returns a pointer to it.

// Get performs an authenticated GET and decodes the response into T.
//
// Example:
//
//	orders, err := apiclient.Get[[]Order](ctx, c, "/api/v1/orders")
func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.Execute(ctx, path, &RequestOptions{Method: http.MethodGet}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Post performs an authenticated POST with body and decodes the response
// into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.Execute(ctx, path, &RequestOptions{Method: http.MethodPost, Body: body}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Put performs an authenticated PUT with body and decodes the response
// into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.Execute(ctx, path, &RequestOptions{Method: http.MethodPut, Body: body}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Patch performs an authenticated PATCH with body and decodes the response
// into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.Execute(ctx, path, &RequestOptions{Method: http.MethodPatch, Body: body}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete performs an authenticated DELETE, discarding any response body.
func Delete(ctx context.Context, c *Client, path string) error {
	return c.Execute(ctx, path, &RequestOptions{Method: http.MethodDelete}, nil)
}
