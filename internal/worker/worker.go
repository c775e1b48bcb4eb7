// Package worker consumes queued deployment ids, runs the build toolchain
// against the uploaded source tree, and publishes the output.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/shipstatic/internal/blob"
	"github.com/edvin/shipstatic/internal/model"
	"github.com/edvin/shipstatic/internal/platform"
	"github.com/edvin/shipstatic/internal/queue"
	"github.com/edvin/shipstatic/internal/source"
)

// StatusRecorder mirrors status transitions into the deployment catalog.
// *core.DeploymentService satisfies this interface.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, id, status, message string) error
}

// Config holds the build policy for one worker instance.
type Config struct {
	InstallCommand    string
	BuildCommand      string
	OutputDir         string
	BuildTimeout      time.Duration
	UploadConcurrency int
}

// Worker is a long-lived loop popping one job at a time. Multiple instances
// may run against the same queue; the blocking pop guarantees each job is
// claimed exactly once.
type Worker struct {
	logger    zerolog.Logger
	queue     queue.Queue
	blobs     blob.Store
	catalog   StatusRecorder // optional
	workspace *source.Workspace
	cfg       Config
}

func New(logger zerolog.Logger, q queue.Queue, blobs blob.Store, catalog StatusRecorder, ws *source.Workspace, cfg Config) *Worker {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "dist"
	}
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}
	return &Worker{
		logger: logger.With().
			Str("component", "worker").
			Str("worker_id", platform.NewInstanceID()).
			Logger(),
		queue:     q,
		blobs:     blobs,
		catalog:   catalog,
		workspace: ws,
		cfg:       cfg,
	}
}

// Run pops and processes jobs until ctx is canceled. A failure in one job
// never terminates the loop; it is translated into a terminal status and
// the next job is popped.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker started")
	for {
		id, err := w.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("worker stopping")
				return ctx.Err()
			}
			w.logger.Error().Err(err).Msg("failed to pop job")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		w.processJob(ctx, id)
	}
}

func (w *Worker) processJob(ctx context.Context, id string) {
	logger := w.logger.With().Str("deployment_id", id).Logger()
	start := time.Now()
	buildJobsInProgress.Inc()
	defer buildJobsInProgress.Dec()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("panic while processing job")
			w.setStatus(ctx, id, model.StatusDeploymentFailed, fmt.Sprintf("internal error: %v", r))
			buildJobsTotal.WithLabelValues(model.StatusDeploymentFailed).Inc()
		}
	}()

	logger.Info().Msg("claimed job")
	w.setStatus(ctx, id, model.StatusBuilding, "")

	dir, err := w.hydrate(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("failed to hydrate source")
		w.setStatus(ctx, id, model.StatusDeploymentFailed, err.Error())
		buildJobsTotal.WithLabelValues(model.StatusDeploymentFailed).Inc()
		return
	}
	defer func() {
		if err := w.workspace.Remove(id); err != nil {
			logger.Warn().Err(err).Msg("failed to remove workspace")
		}
	}()

	spec := LoadBuildSpec(dir, BuildSpec{
		Install: w.cfg.InstallCommand,
		Build:   w.cfg.BuildCommand,
		Output:  w.cfg.OutputDir,
	})

	if err := w.runBuild(ctx, dir, spec, logger); err != nil {
		logger.Error().Err(err).Msg("build did not complete")
		w.setStatus(ctx, id, model.StatusBuildFailed, err.Error())
		buildJobsTotal.WithLabelValues(model.StatusBuildFailed).Inc()
		return
	}

	// The only success signal the pipeline trusts is the presence of the
	// output directory; build tools have nonstandard exit-code conventions.
	outDir := filepath.Join(dir, filepath.FromSlash(spec.Output))
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		logger.Warn().Str("output_dir", spec.Output).Msg("build produced no output directory")
		w.setStatus(ctx, id, model.StatusBuildFailed, fmt.Sprintf("build produced no %s directory", spec.Output))
		buildJobsTotal.WithLabelValues(model.StatusBuildFailed).Inc()
		return
	}

	count, err := w.publish(ctx, id, outDir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to publish artifacts")
		w.setStatus(ctx, id, model.StatusDeploymentFailed, err.Error())
		buildJobsTotal.WithLabelValues(model.StatusDeploymentFailed).Inc()
		return
	}

	// Deployed only after every upload has completed, so clients polling
	// status never see deployed for a partial artifact set.
	w.setStatus(ctx, id, model.StatusDeployed, "")
	buildJobsTotal.WithLabelValues(model.StatusDeployed).Inc()
	buildDuration.Observe(time.Since(start).Seconds())
	logger.Info().Int("files", count).Dur("duration", time.Since(start)).Msg("deployment complete")
}

// hydrate downloads source/{id}/ from the artifact store into a fresh
// working directory. Workers never share a filesystem with intake, so a
// worker can run on any host.
func (w *Worker) hydrate(ctx context.Context, id string) (string, error) {
	prefix := model.SourceKeyPrefix(id)
	keys, err := w.blobs.List(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("list source: %w", err)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no source uploaded under %s", prefix)
	}

	dir, err := w.workspace.Prepare(id)
	if err != nil {
		return "", fmt.Errorf("prepare workspace: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.UploadConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			rel := strings.TrimPrefix(key, prefix)
			return w.download(gctx, key, filepath.Join(dir, filepath.FromSlash(rel)))
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("download source: %w", err)
	}
	return dir, nil
}

func (w *Worker) download(ctx context.Context, key, dest string) error {
	rc, err := w.blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// runBuild invokes the install and build commands as subprocesses in the
// source directory. A non-zero exit code is logged but not treated as
// failure; only a timeout is. The output-directory check decides success.
func (w *Worker) runBuild(ctx context.Context, dir string, spec BuildSpec, logger zerolog.Logger) error {
	bctx := ctx
	if w.cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, w.cfg.BuildTimeout)
		defer cancel()
	}

	for _, cmdline := range []string{spec.Install, spec.Build} {
		if cmdline == "" {
			continue
		}
		cmd := exec.CommandContext(bctx, "sh", "-c", cmdline)
		cmd.Dir = dir
		output, err := cmd.CombinedOutput()
		logger.Debug().Str("command", cmdline).Str("output", string(output)).Msg("build command finished")
		if errors.Is(bctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("build timed out after %s", w.cfg.BuildTimeout)
		}
		if err != nil {
			logger.Warn().Err(err).Str("command", cmdline).Msg("build command exited non-zero")
		}
	}
	return nil
}

// publish uploads every file under outDir to dist/{id}/ with an
// extension-derived content type and a long-lived cache-control. The first
// failure aborts; the deployment is then recorded as deployment-failed.
func (w *Worker) publish(ctx context.Context, id, outDir string) (int, error) {
	files, err := source.ListFiles(outDir)
	if err != nil {
		return 0, fmt.Errorf("enumerate output: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.UploadConcurrency)
	prefix := model.DistKeyPrefix(id)
	for _, rel := range files {
		g.Go(func() error {
			f, err := os.Open(filepath.Join(outDir, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("open %s: %w", rel, err)
			}
			defer f.Close()
			return w.blobs.Put(gctx, prefix+rel, f, blob.PutOptions{
				ContentType:  blob.ContentTypeFor(rel),
				CacheControl: blob.CacheControl,
			})
		})
	}
	return len(files), g.Wait()
}

// setStatus writes the authoritative queue status and mirrors it into the
// catalog best-effort.
func (w *Worker) setStatus(ctx context.Context, id, status, message string) {
	if err := w.queue.SetStatus(ctx, id, status); err != nil {
		w.logger.Error().Err(err).Str("deployment_id", id).Str("status", status).Msg("failed to set status")
	}
	if w.catalog != nil {
		if err := w.catalog.RecordStatus(ctx, id, status, message); err != nil {
			w.logger.Warn().Err(err).Str("deployment_id", id).Msg("failed to record status in catalog")
		}
	}
}
