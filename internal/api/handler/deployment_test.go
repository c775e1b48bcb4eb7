package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/shipstatic/internal/api/response"
	"github.com/edvin/shipstatic/internal/core"
	"github.com/edvin/shipstatic/internal/intake"
	"github.com/edvin/shipstatic/internal/model"
)

type fakeSubmitter struct {
	id  string
	err error

	gotSourceRef string
}

func (s *fakeSubmitter) Submit(ctx context.Context, sourceRef string) (string, error) {
	s.gotSourceRef = sourceRef
	return s.id, s.err
}

type fakeStatusReader struct {
	statuses map[string]string
	err      error
}

func (s *fakeStatusReader) GetStatus(ctx context.Context, id string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if status, ok := s.statuses[id]; ok {
		return status, nil
	}
	return model.StatusUnknown, nil
}

type fakeCatalog struct {
	deployments map[string]*model.Deployment
	listErr     error
}

func (c *fakeCatalog) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	if d, ok := c.deployments[id]; ok {
		return d, nil
	}
	return nil, core.ErrNotFound
}

func (c *fakeCatalog) List(ctx context.Context, limit int, cursor string) ([]model.Deployment, bool, error) {
	if c.listErr != nil {
		return nil, false, c.listErr
	}
	var all []model.Deployment
	for i := 0; i < 3; i++ {
		all = append(all, model.Deployment{ID: fmt.Sprintf("deploy%04d", i), Status: model.StatusDeployed})
	}
	var out []model.Deployment
	for _, d := range all {
		if cursor == "" || d.ID > cursor {
			out = append(out, d)
		}
	}
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

const testBaseDomain = "shipstatic.test"

func TestSubmitAccepted(t *testing.T) {
	submitter := &fakeSubmitter{id: "abc123defg"}
	h := NewDeployment(submitter, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequest(http.MethodPost, "/deploy", map[string]string{
		"source_ref": "https://git.example/org/site",
	}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "https://git.example/org/site", submitter.gotSourceRef)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "abc123defg", body["id"])
}

func TestSubmitInvalidJSON(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequestRaw(http.MethodPost, "/deploy", "{not json"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorResponse(rec)["error"], "invalid JSON")
}

func TestSubmitMissingSourceRef(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequest(http.MethodPost, "/deploy", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitNotAURL(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequest(http.MethodPost, "/deploy", map[string]string{
		"source_ref": "not a url",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitCloneFailure(t *testing.T) {
	submitter := &fakeSubmitter{err: fmt.Errorf("%w: repository not found", intake.ErrSourceFetch)}
	h := NewDeployment(submitter, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequest(http.MethodPost, "/deploy", map[string]string{
		"source_ref": "https://git.example/org/missing",
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitInternalError(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("storage unavailable")}
	h := NewDeployment(submitter, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.Submit(rec, newRequest(http.MethodPost, "/deploy", map[string]string{
		"source_ref": "https://git.example/org/site",
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusDeployedIncludesURL(t *testing.T) {
	statuses := &fakeStatusReader{statuses: map[string]string{"abc123defg": model.StatusDeployed}}
	h := NewDeployment(&fakeSubmitter{}, statuses, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	r := withChiURLParam(newRequest(http.MethodGet, "/deployment/abc123defg/status", nil), "id", "abc123defg")
	h.Status(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusDeployed, body.Status)
	assert.Equal(t, "http://abc123defg.shipstatic.test", body.URL)
	assert.Empty(t, body.Error)
}

func TestStatusUnknownID(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	r := withChiURLParam(newRequest(http.MethodGet, "/deployment/nosuchid99/status", nil), "id", "nosuchid99")
	h.Status(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusUnknown, body.Status)
	assert.Empty(t, body.URL)
}

func TestStatusFailureIncludesCatalogError(t *testing.T) {
	statuses := &fakeStatusReader{statuses: map[string]string{"abc123defg": model.StatusBuildFailed}}
	catalog := &fakeCatalog{deployments: map[string]*model.Deployment{
		"abc123defg": {ID: "abc123defg", Status: model.StatusBuildFailed, Error: "build produced no dist directory"},
	}}
	h := NewDeployment(&fakeSubmitter{}, statuses, catalog, testBaseDomain)
	rec := httptest.NewRecorder()

	r := withChiURLParam(newRequest(http.MethodGet, "/deployment/abc123defg/status", nil), "id", "abc123defg")
	h.Status(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusBuildFailed, body.Status)
	assert.Equal(t, "build produced no dist directory", body.Error)
	assert.Empty(t, body.URL)
}

func TestListPagination(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, &fakeCatalog{}, testBaseDomain)
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/deployments?limit=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body response.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.HasMore)
	assert.Equal(t, "deploy0001", body.NextCursor)
}

func TestListWithoutCatalog(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, nil, testBaseDomain)
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/deployments", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetNotFound(t *testing.T) {
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, &fakeCatalog{}, testBaseDomain)
	rec := httptest.NewRecorder()

	r := withChiURLParam(newRequest(http.MethodGet, "/deployments/nosuchid99", nil), "id", "nosuchid99")
	h.Get(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReturnsCatalogRecord(t *testing.T) {
	now := time.Now()
	catalog := &fakeCatalog{deployments: map[string]*model.Deployment{
		"abc123defg": {ID: "abc123defg", SourceRef: "https://git.example/org/site", Status: model.StatusDeployed, CreatedAt: now},
	}}
	h := NewDeployment(&fakeSubmitter{}, &fakeStatusReader{}, catalog, testBaseDomain)
	rec := httptest.NewRecorder()

	r := withChiURLParam(newRequest(http.MethodGet, "/deployments/abc123defg", nil), "id", "abc123defg")
	h.Get(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body model.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://git.example/org/site", body.SourceRef)
}
