package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAuthAbsent               = errors.New("auth absent: no credential established")
	ErrAuthExpiredUnrefreshable = errors.New("auth expired: no usable refresh token")
	ErrRefreshFailed            = errors.New("token refresh failed")
	ErrInteractiveAuthMalformed = errors.New("interactive auth payload malformed")
	ErrNaming                   = errors.New("artifact name carries no part number")
	ErrMetadataMissing          = errors.New("metadata missing")
	ErrPersistence              = errors.New("credential persistence failed")
)

// Error kinds recorded on failed upload results.
const (
	KindAuthAbsent               = "AuthAbsent"
	KindAuthExpiredUnrefreshable = "AuthExpiredUnrefreshable"
	KindRefreshFailed            = "RefreshFailed"
	KindInteractiveAuthMalformed = "InteractiveAuthMalformed"
	KindNaming                   = "NamingError"
	KindMetadataMissing          = "MetadataMissing"
	KindPlatformAPI              = "PlatformAPIError"
	KindPersistence              = "PersistenceError"
	KindCanceled                 = "Canceled"
	KindUnknown                  = "Unknown"
)

// PlatformAPIError is a non-success HTTP status returned by a platform protocol step.
type PlatformAPIError struct {
	Platform   Platform
	Step       string
	StatusCode int
	Body       string
}

func (e *PlatformAPIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s failed with status %d", e.Platform, e.Step, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Platform, e.Step, e.StatusCode, e.Body)
}

// ErrorKind maps an error onto the upload failure taxonomy.
func ErrorKind(err error) string {
	var apiErr *PlatformAPIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInteractiveAuthMalformed):
		return KindInteractiveAuthMalformed
	case errors.Is(err, ErrAuthExpiredUnrefreshable):
		return KindAuthExpiredUnrefreshable
	case errors.Is(err, ErrAuthAbsent):
		return KindAuthAbsent
	case errors.Is(err, ErrRefreshFailed):
		return KindRefreshFailed
	case errors.As(err, &apiErr):
		return KindPlatformAPI
	case errors.Is(err, ErrNaming):
		return KindNaming
	case errors.Is(err, ErrMetadataMissing):
		return KindMetadataMissing
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}
