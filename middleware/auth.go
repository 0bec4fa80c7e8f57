package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	PrincipalKey   contextKey = "principal"
	BearerTokenKey contextKey = "bearer_token"
)

// Principal is who a verified bearer token speaks for.
type Principal struct {
	UserID string
	Role   string
}

// Auth verifies an HS256 bearer token and stores the principal in context.
// Requests without a valid token pass through anonymous; RequireAuth rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				next.ServeHTTP(w, r)
				return
			}

			p, ok := principalFromClaims(claims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			ctx = context.WithValue(ctx, BearerTokenKey, authHeader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// principalFromClaims reads the identity either from a structured subject
// ({"id": 7, "role": "admin"}) or from flat uid/sub and role claims.
func principalFromClaims(claims jwt.MapClaims) (Principal, bool) {
	var p Principal

	if sub, ok := claims["sub"].(map[string]interface{}); ok {
		p.UserID = scalar(sub["id"])
		p.Role = scalar(sub["role"])
	}
	if p.UserID == "" {
		p.UserID = scalar(claims["uid"])
	}
	if p.UserID == "" {
		p.UserID = scalar(claims["sub"])
	}
	if p.Role == "" {
		p.Role = scalar(claims["role"])
	}
	p.Role = strings.ToLower(p.Role)
	return p, p.UserID != ""
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	case json.Number:
		return t.String()
	}
	return ""
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetPrincipal(r.Context()); !ok {
			writeError(w, r, "unauthorized", "missing or invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects principals whose role is not one of roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				writeError(w, r, "unauthorized", "missing or invalid bearer token", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, "forbidden", "insufficient role", http.StatusForbidden)
		})
	}
}

func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

func GetUserID(ctx context.Context) string {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}

func GetBearerToken(ctx context.Context) string {
	token, ok := ctx.Value(BearerTokenKey).(string)
	if !ok {
		return ""
	}
	return token
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id,omitempty"`
		} `json:"error"`
	}
	body.Error.Code = code
	body.Error.Message = message
	body.Error.RequestID = GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
