package repository

import (
	"context"

	"shorts-publisher/domain/model"
)

// ICredentialStore persists the single TikTok credential.
// Load returns (nil, nil) when no usable credential is stored.
type ICredentialStore interface {
	Load(ctx context.Context) (*model.Credential, error)
	Save(ctx context.Context, cred model.Credential) error
}

// ITokenRefresher exchanges a refresh token for a new credential at the provider.
type ITokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*model.Credential, error)
}

// ICredentialPrompt obtains a credential payload from the operator. It blocks until a
// payload arrives or ctx is done.
type ICredentialPrompt interface {
	RequestCredential(ctx context.Context, loginURL string) ([]byte, error)
}
