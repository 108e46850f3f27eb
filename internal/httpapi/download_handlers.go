package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"campusshare.org/internal/audit"
	"campusshare.org/internal/blob"
	"campusshare.org/internal/download"
	"campusshare.org/internal/obs"
	"campusshare.org/internal/resource"
)

func (a *API) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.resources.Get(r.Context(), id); err != nil {
		handleResourceError(w, r, err)
		return
	}

	sig, ts, expiresAt := a.signer.Sign(id)
	url := fmt.Sprintf("%s://%s/api/resources/%s/download?sig=%s&t=%d",
		requestScheme(r), r.Host, id, sig, ts)

	writeJSON(w, http.StatusOK, map[string]any{
		"downloadUrl": url,
		"expiresAt":   expiresAt,
	})
}

// handleDownload authorizes by signature when sig/t are supplied and falls
// back to the referer allow list otherwise. The download counter increments
// exactly once per authorized call, before any bytes move, and is not rolled
// back if the stream later fails.
func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	sig, ts := q.Get("sig"), q.Get("t")

	switch {
	case sig != "" && ts != "":
		if err := a.signer.Validate(id, sig, ts); err != nil {
			msg := "invalid signature"
			if errors.Is(err, download.ErrExpired) {
				msg = "download link expired"
			}
			writeError(w, r, http.StatusForbidden, kindForbidden, msg)
			return
		}
	default:
		if !a.referers.Allow(r.Header.Get("Referer")) {
			writeError(w, r, http.StatusForbidden, kindForbidden, "downloads are not allowed from this origin")
			return
		}
	}

	res, err := a.resources.Get(r.Context(), id)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	if _, err := a.resources.IncrementDownloads(r.Context(), id); err != nil {
		handleResourceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "download.served", map[string]any{
		"resource_id": id,
	})

	if url, ok, err := a.blobs.RedirectURL(r.Context(), res.FileKey); err == nil && ok {
		obs.CountDownload("redirect")
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	rc, err := a.blobs.Open(r.Context(), res.FileKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, kindNotFound, "file not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, kindInternal, "file storage failed")
		return
	}
	defer rc.Close()

	obs.CountDownload("stream")
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", downloadName(res)))
	// A failed copy here usually means the client went away mid stream;
	// nothing to do but stop.
	_, _ = io.Copy(w, rc)
}

func downloadName(res *resource.Resource) string {
	key := res.FileKey
	// strip the timestamp prefix added at upload time
	if i := strings.IndexByte(key, '-'); i > 0 && i < len(key)-1 {
		if allDigits(key[:i]) {
			key = key[i+1:]
		}
	}
	if key == "" {
		return "download"
	}
	return key
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
