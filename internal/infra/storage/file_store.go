package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"grade_watchdog/internal/domain/result"
	"grade_watchdog/internal/domain/session"
)

// FileStore keeps cookies, history and notification targets in three JSON
// files. Writes replace the file atomically.
type FileStore struct {
	cookiesPath string
	historyPath string
	usersPath   string
}

func NewFileStore(cookiesPath, historyPath, usersPath string) *FileStore {
	return &FileStore{
		cookiesPath: cookiesPath,
		historyPath: historyPath,
		usersPath:   usersPath,
	}
}

func (s *FileStore) LoadHistory(_ context.Context) (result.Snapshot, error) {
	raw, err := readOptional(s.historyPath)
	if err != nil {
		return result.Snapshot{}, err
	}
	return decodeHistory(raw)
}

func (s *FileStore) SaveHistory(_ context.Context, snapshot result.Snapshot) error {
	raw, err := encodeState(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return writeAtomic(s.historyPath, raw)
}

func (s *FileStore) LoadTargets(_ context.Context) (result.Targets, error) {
	raw, err := readOptional(s.usersPath)
	if err != nil {
		return result.Targets{}, err
	}
	return decodeTargets(raw)
}

func (s *FileStore) LoadCookies(_ context.Context) ([]session.Cookie, error) {
	raw, err := readOptional(s.cookiesPath)
	if err != nil {
		return nil, err
	}
	return decodeCookies(raw)
}

func (s *FileStore) SaveCookies(_ context.Context, cookies []session.Cookie) error {
	if cookies == nil {
		cookies = []session.Cookie{}
	}
	raw, err := encodeState(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	return writeAtomic(s.cookiesPath, raw)
}

// readOptional returns nil content for a file that does not exist yet.
func readOptional(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
