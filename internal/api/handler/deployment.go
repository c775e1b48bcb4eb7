package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/shipstatic/internal/api/request"
	"github.com/edvin/shipstatic/internal/api/response"
	"github.com/edvin/shipstatic/internal/core"
	"github.com/edvin/shipstatic/internal/intake"
	"github.com/edvin/shipstatic/internal/model"
)

// Submitter accepts a repository reference and returns the new deployment
// id. *intake.Service satisfies this interface.
type Submitter interface {
	Submit(ctx context.Context, sourceRef string) (string, error)
}

// StatusReader reads the authoritative deployment status. queue.Queue
// satisfies this interface.
type StatusReader interface {
	GetStatus(ctx context.Context, id string) (string, error)
}

// Catalog reads the supplemental deployment catalog.
// *core.DeploymentService satisfies this interface.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*model.Deployment, error)
	List(ctx context.Context, limit int, cursor string) ([]model.Deployment, bool, error)
}

type Deployment struct {
	intake     Submitter
	statuses   StatusReader
	catalog    Catalog // optional
	baseDomain string
}

func NewDeployment(intakeSvc Submitter, statuses StatusReader, catalog Catalog, baseDomain string) *Deployment {
	return &Deployment{
		intake:     intakeSvc,
		statuses:   statuses,
		catalog:    catalog,
		baseDomain: baseDomain,
	}
}

// Submit accepts a repository URL and answers with the deployment id as
// soon as the source is uploaded and the job is queued. The build itself is
// asynchronous; callers poll Status.
func (h *Deployment) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitDeployment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.intake.Submit(r.Context(), req.SourceRef)
	if err != nil {
		if errors.Is(err, intake.ErrSourceFetch) {
			response.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Status reports the live status for an id. Unknown ids are not an error;
// they answer with the unknown sentinel so pollers can treat status as a
// plain key/value lookup.
func (h *Deployment) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.statuses.GetStatus(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := statusResponse{ID: id, Status: status}
	if status == model.StatusDeployed {
		resp.URL = fmt.Sprintf("http://%s.%s", id, h.baseDomain)
	}
	if h.catalog != nil && (status == model.StatusBuildFailed || status == model.StatusDeploymentFailed) {
		if d, err := h.catalog.GetByID(r.Context(), id); err == nil {
			resp.Error = d.Error
		}
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

// List pages through the deployment catalog, oldest id first.
func (h *Deployment) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		response.WriteError(w, http.StatusServiceUnavailable, "deployment catalog not configured")
		return
	}

	p := request.ParsePagination(r)
	deployments, hasMore, err := h.catalog.List(r.Context(), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nextCursor := ""
	if hasMore && len(deployments) > 0 {
		nextCursor = deployments[len(deployments)-1].ID
	}
	if deployments == nil {
		deployments = []model.Deployment{}
	}
	response.WritePaginated(w, http.StatusOK, deployments, nextCursor, hasMore)
}

// Get returns the full catalog record for an id.
func (h *Deployment) Get(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		response.WriteError(w, http.StatusServiceUnavailable, "deployment catalog not configured")
		return
	}

	d, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, d)
}
