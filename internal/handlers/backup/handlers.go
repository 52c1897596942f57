// Package backup serves the operational endpoints: health, version, storage
// unlock/lock, and zip export/import of the data directory.
package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fininsight/internal/config"
	apphttp "fininsight/internal/http"
	"fininsight/internal/logger"
	"fininsight/internal/services/storage"
	"fininsight/internal/version"
)

// maxRestoreSize caps uploaded backup archives
const maxRestoreSize = 50 << 20

var (
	cfg   *config.Config
	store *storage.Storage
)

// Initialize sets up the backup package with required dependencies
func Initialize(c *config.Config, s *storage.Storage) {
	cfg = c
	store = s
}

// RegisterRoutes registers the /api routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/api/version", HandleVersion)
	r.Post("/api/unlock", HandleUnlock)
	r.Post("/api/lock", HandleLock)
	r.Get("/api/backup", HandleBackup)
	r.Post("/api/restore", HandleRestore)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"encrypted": store.IsEncrypted(),
		"unlocked":  store.IsUnlocked(),
	})
}

func HandleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, version.Get())
}

// HandleUnlock takes {"password": "..."} and unlocks encrypted storage
func HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apphttp.ErrorResponse(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := store.Unlock(body.Password); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrWrongPassword) {
			status = http.StatusUnauthorized
		}
		apphttp.ErrorResponse(w, r, err.Error(), status)
		return
	}
	log := logger.FromContext(r.Context())
	log.Info().Msg("storage unlocked")
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func HandleLock(w http.ResponseWriter, r *http.Request) {
	store.Lock()
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "locked"})
}

// HandleBackup streams a zip of every CSV and JSON file under the data
// directory. Entries are always written decrypted for portability.
func HandleBackup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if store.IsEncrypted() && !store.IsUnlocked() {
		apphttp.ErrorResponse(w, r, storage.ErrLocked.Error(), http.StatusLocked)
		return
	}

	var files []string
	dataDir := cfg.DataDirectory
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if isBackupFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		apphttp.ErrorResponse(w, r, "error reading data directory", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("fininsight_backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, path := range files {
		relPath, err := filepath.Rel(dataDir, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("backup entry")
			return
		}

		data, err := store.ReadFile(path)
		if err != nil {
			// headers are already sent, so the archive is truncated instead
			log.Error().Err(err).Str("file", relPath).Msg("backup entry")
			return
		}

		f, err := zw.Create(filepath.ToSlash(relPath))
		if err != nil {
			log.Error().Err(err).Str("file", relPath).Msg("backup entry")
			return
		}
		if _, err := f.Write(data); err != nil {
			log.Error().Err(err).Str("file", relPath).Msg("backup entry")
			return
		}
	}
	log.Info().Int("files", len(files)).Msg("backup written")
}

// HandleRestore accepts a multipart "file" zip. CSV entries go to the data
// directory and JSON entries to the settings directory, written through
// storage so they are encrypted when encryption is on.
func HandleRestore(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxRestoreSize); err != nil {
		apphttp.ErrorResponse(w, r, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.ErrorResponse(w, r, "error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		apphttp.ErrorResponse(w, r, "only ZIP backup files are allowed", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		apphttp.ErrorResponse(w, r, "error reading file", http.StatusInternalServerError)
		return
	}

	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		apphttp.ErrorResponse(w, r, "invalid ZIP file", http.StatusBadRequest)
		return
	}

	restored := 0
	for _, zipFile := range zipReader.File {
		if zipFile.FileInfo().IsDir() {
			continue
		}

		// base name only, to prevent path traversal
		baseName := filepath.Base(zipFile.Name)
		if !isBackupFile(baseName) || strings.HasPrefix(baseName, ".") {
			continue
		}

		data, err := readZipEntry(zipFile)
		if err != nil {
			log.Warn().Err(err).Str("entry", zipFile.Name).Msg("skipping zip entry")
			continue
		}

		dest := filepath.Join(cfg.DataDirectory, baseName)
		if strings.EqualFold(filepath.Ext(baseName), ".json") {
			dest = filepath.Join(cfg.SettingsDirectory, baseName)
		}
		if err := store.WriteFile(dest, data, 0600); err != nil {
			if errors.Is(err, storage.ErrLocked) {
				apphttp.ErrorResponse(w, r, err.Error(), http.StatusLocked)
				return
			}
			log.Warn().Err(err).Str("file", dest).Msg("restore write failed")
			continue
		}
		restored++
	}

	if restored == 0 {
		apphttp.ErrorResponse(w, r, "no CSV or JSON files found in backup", http.StatusBadRequest)
		return
	}

	log.Info().Int("files", restored).Msg("restore complete")
	apphttp.WriteJSON(w, http.StatusOK, map[string]int{"restored": restored})
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isBackupFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".json":
		return true
	}
	return false
}
