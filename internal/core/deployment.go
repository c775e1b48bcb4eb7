package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/shipstatic/internal/model"
)

// DB defines the database operations used by catalog services.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrNotFound is returned when no catalog row exists for an id.
var ErrNotFound = errors.New("deployment not found")

// DeploymentService maintains the deployment catalog. The queue's status map
// stays authoritative for live status; the catalog supplements it with the
// source ref, error detail, and listing.
type DeploymentService struct {
	db DB
}

func NewDeploymentService(db DB) *DeploymentService {
	return &DeploymentService{db: db}
}

func (s *DeploymentService) Create(ctx context.Context, d *model.Deployment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, source_ref, status, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.SourceRef, d.Status, d.Error, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// RecordStatus mirrors a status transition into the catalog. Terminal
// statuses also stamp completed_at.
func (s *DeploymentService) RecordStatus(ctx context.Context, id, status, message string) error {
	var err error
	if model.IsTerminal(status) {
		_, err = s.db.Exec(ctx,
			`UPDATE deployments SET status = $1, error = $2, updated_at = $3, completed_at = $3 WHERE id = $4`,
			status, message, time.Now(), id,
		)
	} else {
		_, err = s.db.Exec(ctx,
			`UPDATE deployments SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
			status, message, time.Now(), id,
		)
	}
	if err != nil {
		return fmt.Errorf("record status %s for deployment %s: %w", status, id, err)
	}
	return nil
}

func (s *DeploymentService) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	var d model.Deployment
	err := s.db.QueryRow(ctx,
		`SELECT id, source_ref, status, error, created_at, updated_at, completed_at
		 FROM deployments WHERE id = $1`, id,
	).Scan(&d.ID, &d.SourceRef, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return &d, nil
}

// List returns up to limit deployments after the cursor id, newest ids
// first, and whether more rows remain.
func (s *DeploymentService) List(ctx context.Context, limit int, cursor string) ([]model.Deployment, bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_ref, status, error, created_at, updated_at, completed_at
		 FROM deployments
		 WHERE ($1 = '' OR id > $1)
		 ORDER BY id
		 LIMIT $2`, cursor, limit+1,
	)
	if err != nil {
		return nil, false, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		var d model.Deployment
		if err := rows.Scan(&d.ID, &d.SourceRef, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt); err != nil {
			return nil, false, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate deployments: %w", err)
	}

	hasMore := len(deployments) > limit
	if hasMore {
		deployments = deployments[:limit]
	}
	return deployments, hasMore, nil
}
