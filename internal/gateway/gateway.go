// Package gateway serves published deployment artifacts by subdomain. The
// first label of the Host header selects the deployment; the request path
// selects the artifact under dist/{id}/.
package gateway

import (
	"errors"
	"io"
	"net"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	mw "github.com/edvin/shipstatic/internal/api/middleware"
	"github.com/edvin/shipstatic/internal/blob"
	"github.com/edvin/shipstatic/internal/model"
)

// deployLabelRe matches a DNS label that can name a deployment. Generated
// ids always match; the check exists for hand-crafted Host headers.
var deployLabelRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

type Gateway struct {
	logger zerolog.Logger
	blobs  blob.Store
}

func New(logger zerolog.Logger, blobs blob.Store) *Gateway {
	return &Gateway{
		logger: logger.With().Str("component", "gateway").Logger(),
		blobs:  blobs,
	}
}

// Router builds the catch-all artifact router. Everything that is not a
// resolvable artifact is a plain 404; the gateway never explains failures
// to the client.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(g.logger))
	r.Use(middleware.Recoverer)
	// Every path belongs to deployed sites; health and metrics live on the
	// separate operational listener.
	r.Get("/*", g.serveArtifact)
	return r
}

func (g *Gateway) serveArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := deploymentID(r.Host)
	if !ok {
		g.logger.Debug().Str("host", r.Host).Msg("unresolvable host")
		http.NotFound(w, r)
		return
	}

	rel, ok := artifactPath(r.URL.Path)
	if !ok {
		g.logger.Debug().Str("path", r.URL.Path).Msg("rejected request path")
		http.NotFound(w, r)
		return
	}

	key := model.DistKeyPrefix(id) + rel
	rc, err := g.blobs.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			g.logger.Error().Err(err).Str("key", key).Msg("artifact fetch failed")
		}
		http.NotFound(w, r)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", blob.ContentTypeFor(rel))
	w.Header().Set("Cache-Control", blob.CacheControl)
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already out; all that is left is to log.
		g.logger.Warn().Err(err).Str("key", key).Msg("artifact stream aborted")
	}
}

// deploymentID extracts the deployment id from the first Host label.
func deploymentID(host string) (string, bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	label, _, found := strings.Cut(host, ".")
	if !found {
		return "", false
	}
	if !deployLabelRe.MatchString(label) {
		return "", false
	}
	return label, true
}

// artifactPath normalizes the request path to a store-relative key suffix.
// The root path serves index.html; anything that climbs out of the
// deployment prefix is rejected.
func artifactPath(p string) (string, bool) {
	if p == "/" || p == "" {
		return "index.html", true
	}
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") || strings.Contains(cleaned, "..") {
		return "", false
	}
	return strings.TrimPrefix(cleaned, "/"), true
}
