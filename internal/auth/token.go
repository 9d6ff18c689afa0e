package auth

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Token is a parsed quota token of the form "quota|uuid|signature". The
// signature is a URL-safe base64 RSA-PSS signature over "quota|uuid" that only
// the server can check.
type Token struct {
	Quota     int
	ID        uuid.UUID
	Signature string
}

// String renders the token in its wire form.
func (t Token) String() string {
	return strconv.Itoa(t.Quota) + "|" + t.ID.String() + "|" + t.Signature
}

// TokenError represents a specific kind of token parse failure.
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

// TokenErrorType categorizes token parse failures.
type TokenErrorType int

const (
	// ErrTypeNoToken indicates the input was empty or a URL without a token.
	ErrTypeNoToken TokenErrorType = iota
	// ErrTypeMalformed indicates the token does not have three parts.
	ErrTypeMalformed
	// ErrTypeBadQuota indicates the quota part is not a non-negative integer.
	ErrTypeBadQuota
	// ErrTypeBadID indicates the middle part is not a UUID.
	ErrTypeBadID
	// ErrTypeBadSignature indicates the signature is not URL-safe base64.
	ErrTypeBadSignature
)

func (e *TokenError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// ParseToken accepts a bare token or a link carrying it in the "token" query
// parameter, as handed out by the token generator.
func ParseToken(raw string) (Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Token{}, &TokenError{Type: ErrTypeNoToken, Message: "token is empty"}
	}

	tok := raw
	if raw[0] < '0' || raw[0] > '9' {
		u, err := url.Parse(raw)
		if err != nil {
			return Token{}, &TokenError{Type: ErrTypeNoToken, Message: "token link is malformed", Err: err}
		}
		tok = u.Query().Get("token")
		if tok == "" {
			return Token{}, &TokenError{Type: ErrTypeNoToken, Message: "link does not contain a token"}
		}
	}

	parts := strings.Split(tok, "|")
	if len(parts) != 3 {
		return Token{}, &TokenError{Type: ErrTypeMalformed, Message: "token must have the form quota|uuid|signature"}
	}

	quota, err := strconv.Atoi(parts[0])
	if err != nil || quota < 0 {
		return Token{}, &TokenError{Type: ErrTypeBadQuota, Message: "token quota is not a non-negative integer", Err: err}
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Token{}, &TokenError{Type: ErrTypeBadID, Message: "token id is not a UUID", Err: err}
	}
	if _, err := base64.URLEncoding.DecodeString(parts[2]); err != nil || parts[2] == "" {
		return Token{}, &TokenError{Type: ErrTypeBadSignature, Message: "token signature is not URL-safe base64", Err: err}
	}

	return Token{Quota: quota, ID: id, Signature: parts[2]}, nil
}
