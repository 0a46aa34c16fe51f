package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CredentialState is the validity of the live credential at a point in time.
type CredentialState int

const (
	CredentialAbsent CredentialState = iota
	CredentialValid
	CredentialExpired
)

func (s CredentialState) String() string {
	switch s {
	case CredentialValid:
		return "valid"
	case CredentialExpired:
		return "expired"
	default:
		return "absent"
	}
}

// Credential is the TikTok OAuth credential persisted in the token file.
// ExpiresAt is seconds since the Unix epoch.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Present reports whether both tokens are set.
func (c *Credential) Present() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != ""
}

func (c *Credential) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// StateAt computes the credential state relative to now. A nil credential is absent.
func (c *Credential) StateAt(now time.Time) CredentialState {
	if !c.Present() {
		return CredentialAbsent
	}
	if now.Unix() < c.ExpiresAt {
		return CredentialValid
	}
	return CredentialExpired
}

// NewCredentialFromGrant builds a credential from a token grant that reports a relative lifetime.
func NewCredentialFromGrant(accessToken, refreshToken string, expiresIn int64, now time.Time) Credential {
	return Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Unix() + expiresIn,
	}
}

// ParseCredentialPayload validates a pasted credential payload. All three fields are
// required; expires_at may be a JSON number or a numeric string.
func ParseCredentialPayload(data []byte) (*Credential, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", ErrInteractiveAuthMalformed, err)
	}
	for _, key := range []string{"access_token", "refresh_token", "expires_at"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInteractiveAuthMalformed, key)
		}
	}

	cred := &Credential{}
	if err := json.Unmarshal(raw["access_token"], &cred.AccessToken); err != nil || cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token must be a non-empty string", ErrInteractiveAuthMalformed)
	}
	if err := json.Unmarshal(raw["refresh_token"], &cred.RefreshToken); err != nil || cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token must be a non-empty string", ErrInteractiveAuthMalformed)
	}
	expiresAt, err := parseEpochSeconds(raw["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at: %v", ErrInteractiveAuthMalformed, err)
	}
	cred.ExpiresAt = expiresAt
	return cred, nil
}

func parseEpochSeconds(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if strErr := json.Unmarshal(raw, &s); strErr != nil {
			return 0, fmt.Errorf("not a number")
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number")
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("out of range")
	}
	return int64(f), nil
}
