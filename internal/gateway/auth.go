package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Connection roles.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
)

var ErrInvalidToken = errors.New("invalid_token")

// Claims identify one dashboard viewer.
type Claims struct {
	TenantID string
	UserID   string
	Role     string
}

// SignToken issues a compact HMAC-signed token: b64(tenant|user|role).b64(mac).
func SignToken(secret string, claims Claims) string {
	payload := strings.Join([]string{claims.TenantID, claims.UserID, claims.Role}, "|")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + sign(secret, encoded)
}

// VerifyToken validates the signature and returns the claims.
func VerifyToken(secret, token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sign(secret, parts[0])), []byte(parts[1])) {
		return Claims{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	fields := strings.Split(string(raw), "|")
	if len(fields) != 3 || fields[0] == "" || fields[1] == "" {
		return Claims{}, ErrInvalidToken
	}

	role := fields[2]
	if role != RoleOperator {
		role = RoleViewer
	}
	return Claims{TenantID: fields[0], UserID: fields[1], Role: role}, nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
