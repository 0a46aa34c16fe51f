package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"
)

// CredentialFileStore keeps the TikTok credential in a single JSON file.
// It never caches: every Load re-reads the file and every Save overwrites it.
type CredentialFileStore struct {
	path string
}

func NewCredentialFileStore(path string) *CredentialFileStore {
	return &CredentialFileStore{path: path}
}

func (s *CredentialFileStore) Path() string { return s.path }

func (s *CredentialFileStore) Load(ctx context.Context) (*model.Credential, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file %s: %w", s.path, err)
	}

	var cred model.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		logger.GetLogger().WithField("path", s.path).WithField("error", err).Warn("Token file is not valid JSON, treating as absent")
		return nil, nil
	}
	if !cred.Present() || cred.ExpiresAt == 0 {
		logger.GetLogger().WithField("path", s.path).Warn("Token file is missing required fields, treating as absent")
		return nil, nil
	}
	return &cred, nil
}

func (s *CredentialFileStore) Save(ctx context.Context, cred model.Credential) error {
	data, err := encodeCredential(cred)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", model.ErrPersistence, err)
	}
	if err := writeFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	logger.GetLogger().WithField("path", s.path).WithField("expires_at", cred.ExpiresAt).Debug("Token file saved")
	return nil
}

func encodeCredential(cred model.Credential) ([]byte, error) {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes to a temp file in the target directory and renames it into place,
// so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	committed = true
	return nil
}
