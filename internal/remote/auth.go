package remote

import (
	"context"
	"fmt"
	"sync"

	"connectrpc.com/connect"
)

// TokenSource provides the bearer token sent with every call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token. An empty
// token sends no Authorization header.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Refresher obtains a new token after the backend rejected the current one.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type RefresherFunc func(ctx context.Context) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

// authInterceptor adds the bearer token to outgoing requests and, when the
// backend answers Unauthenticated, refreshes the token once and retries.
type authInterceptor struct {
	source    TokenSource
	refresher Refresher

	mu        sync.Mutex
	refreshed string
}

func newAuthInterceptor(source TokenSource, refresher Refresher) *authInterceptor {
	return &authInterceptor{source: source, refresher: refresher}
}

func (i *authInterceptor) token(ctx context.Context) (string, error) {
	i.mu.Lock()
	refreshed := i.refreshed
	i.mu.Unlock()
	if refreshed != "" {
		return refreshed, nil
	}
	if i.source == nil {
		return "", nil
	}
	return i.source.Token(ctx)
}

func setBearer(req connect.AnyRequest, token string) {
	if token == "" {
		req.Header().Del("Authorization")
		return
	}
	req.Header().Set("Authorization", "Bearer "+token)
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		token, err := i.token(ctx)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("failed to get token: %w", err))
		}
		setBearer(req, token)
		resp, err := next(ctx, req)
		if i.refresher == nil || connect.CodeOf(err) != connect.CodeUnauthenticated {
			return resp, err
		}

		token, rerr := i.refresher.Refresh(ctx)
		if rerr != nil || token == "" {
			return resp, err
		}
		i.mu.Lock()
		i.refreshed = token
		i.mu.Unlock()
		setBearer(req, token)
		return next(ctx, req)
	}
}

func (i *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
