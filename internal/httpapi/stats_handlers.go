package httpapi

import (
	"net/http"

	"campusshare.org/internal/resource"
)

type contributorView struct {
	User      map[string]any `json:"user"`
	Downloads int64          `json:"downloads"`
	Upvotes   int            `json:"upvotes"`
	Downvotes int            `json:"downvotes"`
	Net       int            `json:"net"`
}

func (a *API) handleTopContributors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parsePositiveInt(q.Get("limit"), 10, 1, resource.MaxPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "limit "+err.Error())
		return
	}
	by := q.Get("by")
	switch by {
	case "":
		by = resource.ByDownloads
	case resource.ByDownloads, resource.ByUpvotes, resource.ByNet:
	default:
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument,
			`by must be "downloads", "upvotes" or "net"`)
		return
	}

	totals, err := a.resources.TopContributors(r.Context(), by, limit)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	out := make([]contributorView, 0, len(totals))
	for _, t := range totals {
		view := contributorView{
			Downloads: t.Downloads,
			Upvotes:   t.Upvotes,
			Downvotes: t.Downvotes,
			Net:       t.Net,
		}
		// Uploaders removed since their last upload still rank; show
		// what identity we have.
		if u, err := a.users.FindByID(r.Context(), t.UserID); err == nil {
			view.User = u.Public()
		} else {
			view.User = map[string]any{"id": t.UserID}
		}
		out = append(out, view)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"by":           by,
		"contributors": out,
	})
}
