package rpc

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"idregistry/native/registry"
	"idregistry/observability/logging"
)

// AuthConfig configures bearer token validation for mutating calls.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

// Authenticator resolves the calling account from an HS256 bearer token. The
// token's subject claim is the caller's native account.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

// NewAuthenticator constructs an authenticator. An empty secret rejects every
// token.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Caller returns the account bound to the request's bearer token.
func (a *Authenticator) Caller(r *http.Request) (registry.AccountID, *RPCError) {
	if a == nil || len(a.secret) == 0 {
		return "", &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	tokenString := extractBearer(header)
	if tokenString == "" {
		return "", &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	subject, err := a.parseSubject(tokenString)
	if err != nil {
		return "", &RPCError{Code: codeUnauthorized, Message: "invalid bearer token", Data: err.Error()}
	}
	caller := registry.AccountID(subject)
	if err := caller.Validate(); err != nil {
		return "", &RPCError{Code: codeUnauthorized, Message: "token subject is not a valid account", Data: err.Error()}
	}
	return caller, nil
}

func (a *Authenticator) parseSubject(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("subject claim required")
	}
	return subject, nil
}

// IssueToken mints an HS256 token binding subject as the caller account.
func IssueToken(secret, issuer, audience string, subject registry.AccountID, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("rpc: signing secret required")
	}
	if err := subject.Validate(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(subject),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

// rejectUnauthenticated logs the failed credential check with the
// Authorization header masked and answers 401.
func (s *Server) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, req *RPCRequest, authErr *RPCError) {
	s.logger.Debug("rpc authentication failed",
		slog.String("request_id", requestIDFrom(r.Context())),
		slog.String("method", req.Method),
		slog.String("reason", authErr.Message),
		logging.MaskField("authorization", r.Header.Get("Authorization")))
	writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
}

func extractBearer(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
