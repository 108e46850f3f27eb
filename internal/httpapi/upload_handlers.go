package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"campusshare.org/internal/audit"
)

const maxUploadBytes = 25 << 20

// MIME types acceptable for uploaded study material.
var allowedMIME = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-powerpoint":                                           true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
}

type uploadResponse struct {
	FileKey string `json:"fileKey"`
	FileURL string `json:"fileUrl"`
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, kindInvalidArgument, "file exceeds 25 MiB limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, kindInvalidArgument, "file exceeds 25 MiB limit")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mime := strings.TrimSpace(strings.Split(contentType, ";")[0]); !allowedMIME[mime] {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument,
			fmt.Sprintf("unsupported file type %q", mime))
		return
	}

	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(header.Filename))
	if err := a.blobs.Save(r.Context(), key, file, header.Size); err != nil {
		writeError(w, r, http.StatusInternalServerError, kindInternal, "file storage failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "upload.stored", map[string]any{
		"file_key": key,
		"size":     header.Size,
	})

	writeJSON(w, http.StatusCreated, uploadResponse{
		FileKey: key,
		FileURL: "/api/files/" + key,
	})
}

// sanitizeFilename strips directories and replaces anything outside a safe
// character set.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
