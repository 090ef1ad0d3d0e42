package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fhuszti/property-media-ms-go/internal/api_context"
	"github.com/fhuszti/property-media-ms-go/internal/handler/api"
	"github.com/fhuszti/property-media-ms-go/internal/logger"
	"github.com/golang-jwt/jwt/v4"
)

// Expected claims of the delegated service tokens minted by the core platform.
const (
	Issuer   = "core"
	Audience = "property-media"

	// how far in the future an iat may be before the token is refused
	maxIssuedAtSkew = 30 * time.Second
)

// caller is who a delegated service token speaks for.
type caller struct {
	subject string
	roles   []string
}

type dstVerifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
	now    func() time.Time
}

// WithDSTAuth only lets requests through with a valid RS256 delegated service
// token. The caller's subject and roles land on the request context, where the
// logger picks the subject up as uid. An empty key turns the check off.
func WithDSTAuth(jwtPublicKeyPEM string) func(http.Handler) http.Handler {
	if jwtPublicKeyPEM == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(jwtPublicKeyPEM))
	if err != nil {
		panic(fmt.Sprintf("invalid Core RSA public key: %v", err))
	}
	// claims are checked by verify so the iat skew applies
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithoutClaimsValidation(),
	)
	v := &dstVerifier{key: key, parser: parser, now: time.Now}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, reason := v.verify(r.Header.Get("Authorization"))
			if reason != "" {
				logger.Warnf(r.Context(), "⚠️  refused service token on %s %s: %s", r.Method, r.URL.Path, reason)
				api.WriteError(w, http.StatusUnauthorized, reason, nil)
				return
			}

			ctx := context.WithValue(r.Context(), api_context.AuthUserIDKey, c.subject)
			ctx = context.WithValue(ctx, api_context.AuthRolesKey, c.roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verify returns the caller of a bearer header, or why it was refused.
func (v *dstVerifier) verify(header string) (caller, string) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return caller{}, "missing bearer token"
	}

	claims := jwt.MapClaims{}
	tok, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodRS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil || !tok.Valid {
		return caller{}, "unauthorized"
	}

	now := v.now()
	switch {
	case !claims.VerifyIssuer(Issuer, true):
		return caller{}, "bad issuer"
	case !claims.VerifyAudience(Audience, true):
		return caller{}, "bad audience"
	case !claims.VerifyExpiresAt(now.Unix(), true):
		return caller{}, "token expired"
	case !claims.VerifyNotBefore(now.Unix(), false):
		return caller{}, "unauthorized"
	}
	if iat, ok := asInt64(claims["iat"]); ok && time.Unix(iat, 0).After(now.Add(maxIssuedAtSkew)) {
		return caller{}, "invalid iat"
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return caller{}, "missing sub"
	}
	return caller{subject: sub, roles: toStringSlice(claims["roles"])}, ""
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
