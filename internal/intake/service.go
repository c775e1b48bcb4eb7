// Package intake accepts repository references and turns them into queued
// build jobs backed by an uploaded source tree.
package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/shipstatic/internal/blob"
	"github.com/edvin/shipstatic/internal/model"
	"github.com/edvin/shipstatic/internal/platform"
	"github.com/edvin/shipstatic/internal/queue"
	"github.com/edvin/shipstatic/internal/source"
)

// ErrSourceFetch marks submissions that failed because the repository could
// not be cloned. No job is enqueued and no status is ever observable for
// the id in that case.
var ErrSourceFetch = errors.New("fetch source")

// Recorder persists deployment catalog rows. *core.DeploymentService
// satisfies this interface.
type Recorder interface {
	Create(ctx context.Context, d *model.Deployment) error
}

// Service implements deployment intake: allocate an id, materialize the
// source tree into the artifact store, then hand the job to the queue.
type Service struct {
	logger      zerolog.Logger
	blobs       blob.Store
	queue       queue.Queue
	catalog     Recorder // optional
	workspace   *source.Workspace
	cloner      source.Cloner
	concurrency int
}

func NewService(logger zerolog.Logger, blobs blob.Store, q queue.Queue, catalog Recorder, ws *source.Workspace, cloner source.Cloner, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		logger:      logger.With().Str("component", "intake").Logger(),
		blobs:       blobs,
		queue:       q,
		catalog:     catalog,
		workspace:   ws,
		cloner:      cloner,
		concurrency: concurrency,
	}
}

// Submit clones sourceRef, uploads every file under source/{id}/, records
// the deployment, sets status uploaded, and pushes the job. The status is
// written before the push so a worker that claims the job immediately can
// never be overwritten back to uploaded.
func (s *Service) Submit(ctx context.Context, sourceRef string) (string, error) {
	id := platform.NewDeployID()

	dir, err := s.workspace.Prepare(id)
	if err != nil {
		return "", fmt.Errorf("prepare workspace: %w", err)
	}
	// Intake keeps no local state; the worker re-hydrates from the store.
	defer func() {
		if err := s.workspace.Remove(id); err != nil {
			s.logger.Warn().Err(err).Str("deployment_id", id).Msg("failed to remove workspace")
		}
	}()

	if err := s.cloner.Clone(ctx, sourceRef, dir); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}

	files, err := source.ListFiles(dir)
	if err != nil {
		return "", fmt.Errorf("enumerate source files: %w", err)
	}

	if err := s.uploadSource(ctx, id, dir, files); err != nil {
		return "", fmt.Errorf("upload source tree: %w", err)
	}

	if s.catalog != nil {
		now := time.Now()
		record := &model.Deployment{
			ID:        id,
			SourceRef: sourceRef,
			Status:    model.StatusUploaded,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.catalog.Create(ctx, record); err != nil {
			// The queue's status map is authoritative; a catalog miss only
			// degrades listing.
			s.logger.Warn().Err(err).Str("deployment_id", id).Msg("failed to record deployment")
		}
	}

	if err := s.queue.SetStatus(ctx, id, model.StatusUploaded); err != nil {
		return "", fmt.Errorf("set status: %w", err)
	}
	if err := s.queue.Push(ctx, id); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info().
		Str("deployment_id", id).
		Str("source_ref", sourceRef).
		Int("files", len(files)).
		Msg("deployment submitted")

	return id, nil
}

// uploadSource uploads every file, preserving relative paths exactly. The
// first failure aborts the whole submission; a partially uploaded source
// tree must never be built.
func (s *Service) uploadSource(ctx context.Context, id, dir string, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	prefix := model.SourceKeyPrefix(id)
	for _, rel := range files {
		g.Go(func() error {
			f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("open %s: %w", rel, err)
			}
			defer f.Close()
			return s.blobs.Put(gctx, prefix+rel, f, blob.PutOptions{})
		})
	}
	return g.Wait()
}
