package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// EnableEncryption encrypts every CSV and JSON file under the data directory
// and turns on encryption for later writes
func (s *Storage) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return errors.New("encryption is already enabled")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := sealBytes([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(verifyPath, sealed, 0644); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}

	files, err := s.collect(func(path string, data []byte) bool {
		ext := strings.ToLower(filepath.Ext(path))
		return (ext == ".csv" || ext == ".json") && !isAgeEncrypted(data)
	})
	if err != nil {
		os.Remove(verifyPath)
		return fmt.Errorf("failed to scan files: %w", err)
	}

	seal := func(data []byte) ([]byte, error) { return sealBytes(data, recipient) }
	for i, path := range files {
		if err := rewriteFile(path, seal); err != nil {
			// best effort: put back what was already sealed
			open := func(data []byte) ([]byte, error) { return openBytes(data, identity) }
			for _, done := range files[:i] {
				rewriteFile(done, open)
			}
			os.Remove(verifyPath)
			return fmt.Errorf("failed to encrypt %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0644); err != nil {
		return fmt.Errorf("failed to create marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption decrypts all data files in place (requires the current
// password)
func (s *Storage) DisableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return errors.New("encryption is not enabled")
	}

	identity, err := s.verifyPassword(password)
	if err != nil {
		return err
	}

	files, err := s.collect(func(_ string, data []byte) bool {
		return isAgeEncrypted(data)
	})
	if err != nil {
		return fmt.Errorf("failed to scan files: %w", err)
	}

	open := func(data []byte) ([]byte, error) { return openBytes(data, identity) }
	for _, path := range files {
		if err := rewriteFile(path, open); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}

// collect walks the data directory and returns the files keep accepts,
// skipping dotfiles
func (s *Storage) collect(keep func(path string, data []byte) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || shouldSkipEncryption(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable files are left alone
		}
		if keep(path, data) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// rewriteFile replaces a file's content with transform(content)
func rewriteFile(path string, transform func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := transform(data)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return atomicWrite(path, out, info.Mode().Perm())
}
