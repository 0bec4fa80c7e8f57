package middleware

import "context"

// SetRequestIDForTest puts a request id in ctx without running RequestID.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// SetPrincipalForTest authenticates ctx without a signed token.
func SetPrincipalForTest(ctx context.Context, p Principal, bearer string) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	return context.WithValue(ctx, BearerTokenKey, bearer)
}
