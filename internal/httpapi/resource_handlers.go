package httpapi

import (
	"net/http"

	"campusshare.org/internal/audit"
	"campusshare.org/internal/auth"
	"campusshare.org/internal/obs"
	"campusshare.org/internal/resource"
)

type createResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Subject     string `json:"subject"`
	Semester    int    `json:"semester"`
	FileKey     string `json:"fileKey"`
	ExternalKey string `json:"externalKey"`
}

type voteRequest struct {
	Type string `json:"type"`
}

// resourceView is the public rendering of a resource: vote sets collapse to
// counts plus the caller's own membership flags.
type resourceView struct {
	*resource.Resource
	Upvotes          int  `json:"upvotes"`
	Downvotes        int  `json:"downvotes"`
	UserHasUpvoted   bool `json:"userHasUpvoted"`
	UserHasDownvoted bool `json:"userHasDownvoted"`
}

func viewOf(r *resource.Resource, viewer *auth.User) resourceView {
	v := resourceView{
		Resource:  r,
		Upvotes:   len(r.Upvoters),
		Downvotes: len(r.Downvoters),
	}
	if viewer != nil {
		v.UserHasUpvoted = r.HasUpvoted(viewer.ID)
		v.UserHasDownvoted = r.HasDownvoted(viewer.ID)
	}
	return v
}

func viewsOf(items []*resource.Resource, viewer *auth.User) []resourceView {
	views := make([]resourceView, 0, len(items))
	for _, r := range items {
		views = append(views, viewOf(r, viewer))
	}
	return views
}

type listResponse struct {
	Resources  []resourceView      `json:"resources"`
	Pagination resource.Pagination `json:"pagination"`
}

func (a *API) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req createResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
		return
	}

	res, err := resource.New(req.Title, req.Description, req.Department, req.Subject,
		req.Semester, req.FileKey, req.ExternalKey, resource.Uploader{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Department: user.Department,
		})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if err := a.resources.Create(r.Context(), res); err != nil {
		handleResourceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "resource.created", map[string]any{
		"resource_id": res.ID,
		"title":       res.Title,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"resource": viewOf(res, user)})
}

func (a *API) handleListResources(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.UserFromContext(r.Context())
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
	semester, err := parsePositiveInt(q.Get("semester"), 0, 1, 20)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, "semester "+err.Error())
		return
	}

	params := resource.NormalizeListParams(resource.ListParams{
		Department: q.Get("department"),
		Subject:    q.Get("subject"),
		Semester:   semester,
		Sort:       q.Get("sort"),
		Page:       page,
		Limit:      limit,
	})

	items, total, err := a.resources.List(r.Context(), params)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Resources:  viewsOf(items, viewer),
		Pagination: resource.NewPagination(params.Page, params.Limit, total),
	})
}

func (a *API) handleSearchResources(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.UserFromContext(r.Context())
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

	items, total, err := a.resources.Search(r.Context(), resource.SearchParams{
		Query: q.Get("q"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		handleResourceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Resources:  viewsOf(items, viewer),
		Pagination: resource.NewPagination(page, limit, total),
	})
}

func (a *API) handleGetResource(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.UserFromContext(r.Context())
	res, err := a.resources.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": viewOf(res, viewer)})
}

func (a *API) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	id := r.PathValue("id")

	res, err := a.resources.Get(r.Context(), id)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	if res.UploadedBy.ID != user.ID && !user.IsAdmin() {
		writeError(w, r, http.StatusForbidden, kindForbidden, "only the owner or an admin may delete a resource")
		return
	}

	if err := a.resources.Delete(r.Context(), id); err != nil {
		handleResourceError(w, r, err)
		return
	}
	// Blob removal is best effort: the metadata row is the source of truth.
	if res.FileKey != "" {
		_ = a.blobs.Delete(r.Context(), res.FileKey)
	}

	_ = audit.LogEvent(r.Context(), "resource.deleted", map[string]any{
		"resource_id": id,
	})

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, err.Error())
		return
	}

	direction := resource.Direction(req.Type)
	if !direction.Valid() {
		writeError(w, r, http.StatusBadRequest, kindInvalidArgument, `vote type must be "up" or "down"`)
		return
	}

	result, err := a.resources.ApplyVote(r.Context(), r.PathValue("id"), user.ID, direction)
	if err != nil {
		handleResourceError(w, r, err)
		return
	}
	obs.CountVote(string(direction))

	writeJSON(w, http.StatusOK, result)
}
