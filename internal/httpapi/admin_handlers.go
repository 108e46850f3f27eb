package httpapi

import (
	"net/http"
	"time"

	"campusshare.org/internal/audit"
	"campusshare.org/internal/auth"
	"campusshare.org/internal/resource"
)

// adminResourceView additionally exposes the voter identities.
type adminResourceView struct {
	resourceView
	Upvoters   []string `json:"upvoters"`
	Downvoters []string `json:"downvoters"`
}

func adminViewOf(r *resource.Resource) adminResourceView {
	return adminResourceView{
		resourceView: viewOf(r, nil),
		Upvoters:     r.Upvoters,
		Downvoters:   r.Downvoters,
	}
}

func (a *API) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	totalResources, err := a.resources.Count(r.Context())
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	totalUsers, err := a.users.Count(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	totalDownloads, err := a.resources.TotalDownloads(r.Context())
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	recent, _, err := a.resources.List(r.Context(), resource.ListParams{
		Sort: resource.SortNew, Page: 1, Limit: 5,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	topDownloaded, _, err := a.resources.List(r.Context(), resource.ListParams{
		Sort: resource.SortDownloads, Page: 1, Limit: 5,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalResources": totalResources,
		"totalUsers":     totalUsers,
		"totalDownloads": totalDownloads,
		"recent":         viewsOf(recent, nil),
		"topDownloaded":  viewsOf(topDownloaded, nil),
	})
}

// Admin sort names map onto the feed sort keys.
var adminSorts = map[string]string{
	"":                resource.SortNew,
	"newest":          resource.SortNew,
	"oldest":          resource.SortOld,
	"most_downloaded": resource.SortDownloads,
	"most_upvoted":    resource.SortTop,
}

func (a *API) handleAdminListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1<<30)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "page "+err.Error())
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), resource.DefaultPageSize, 1, resource.MaxPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "limit "+err.Error())
		return
	}
	sortKey, ok := adminSorts[q.Get("sort")]
	if !ok {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "unknown sort")
		return
	}

	items, total, err := a.resources.List(r.Context(), resource.ListParams{
		Sort: sortKey, Page: page, Limit: limit,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	views := make([]adminResourceView, 0, len(items))
	for _, res := range items {
		views = append(views, adminViewOf(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources":  views,
		"pagination": resource.NewPagination(page, limit, total),
	})
}

func (a *API) handleAdminGetResource(w http.ResponseWriter, r *http.Request) {
	res, err := a.resources.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": adminViewOf(res)})
}

func (a *API) handleAdminDeleteResource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := a.resources.Get(r.Context(), id)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if err := a.resources.Delete(r.Context(), id); err != nil {
		handleResourceError(w, r, err)
		return
	}
	if res.FileKey != "" {
		_ = a.blobs.Delete(r.Context(), res.FileKey)
	}

	_ = audit.LogEvent(r.Context(), "admin.resource.deleted", map[string]any{
		"resource_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1<<30)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "page "+err.Error())
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), 20, 1, resource.MaxPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "limit "+err.Error())
		return
	}
	role := q.Get("role")
	if role != "" && !auth.ValidRole(role) {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "unknown role")
		return
	}

	users, total, err := a.users.List(r.Context(), auth.ListParams{
		Role: role, Page: page, Limit: limit,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":      out,
		"pagination": resource.NewPagination(page, limit, total),
	})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleAdminUpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	id := r.PathValue("id")

	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
		return
	}
	if !auth.ValidRole(req.Role) {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, `role must be "user" or "admin"`)
		return
	}
	if id == actor.ID {
		writeError(w, r, http.StatusForbidden, kindForbidden, "admins cannot change their own role")
		return
	}

	user, err := a.users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "admin.user.role_updated", map[string]any{
		"target_user_id": id,
		"role":           req.Role,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

func (a *API) handleDownloadsOverTime(w http.ResponseWriter, r *http.Request) {
	days, err := parsePositiveInt(r.URL.Query().Get("days"), 30, 1, 365)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "days "+err.Error())
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	points, err := a.resources.DownloadsOverTime(r.Context(), since)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if points == nil {
		points = []resource.DownloadPoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"points": points,
	})
}
