package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Enqueue consumes one credit and inserts the job atomically. On entitlement
// failure the returned snapshot reflects the untouched balance.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, job *domain.Job) (*domain.CreditSnapshot, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QEnqueueTryOnJob,
		job.ShopDomain,
		job.PersonImageKey,
		job.ClothingImageKey,
		job.ClothingImageURL,
		job.WebhookURL,
		job.ProductID,
		job.ProductTitle,
		job.CustomerID,
		job.CustomerEmail,
		job.AspectRatio,
	)

	var (
		jobID      *string
		active     *bool
		oldBalance *int
		plan       *string
		newBalance *int
	)
	if err := row.Scan(&jobID, &active, &oldBalance, &plan, &newBalance); err != nil {
		return nil, err
	}

	snapshot := &domain.CreditSnapshot{}
	if plan != nil {
		snapshot.Plan = domain.ShopPlan(*plan)
	}

	if jobID != nil {
		job.ID = *jobID
		job.Status = domain.JobStatusPending
		if newBalance != nil {
			snapshot.Balance = *newBalance
		}
		return snapshot, nil
	}

	if active == nil {
		return nil, domain.ErrNotFound
	}
	if !*active {
		return nil, domain.ErrShopInactive
	}
	if oldBalance != nil {
		snapshot.Balance = *oldBalance
	}
	if snapshot.Balance <= 0 {
		return snapshot, domain.ErrInsufficientCredits
	}
	return nil, fmt.Errorf("enqueue returned no job for shop %s", job.ShopDomain)
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, jobID)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.ShopDomain,
		&job.Status,
		&job.PersonImageKey,
		&job.ClothingImageKey,
		&job.ClothingImageURL,
		&job.ImageURL,
		&job.ErrorCode,
		&job.ErrorMessage,
		&job.WebhookURL,
		&job.ProductID,
		&job.ProductTitle,
		&job.CustomerID,
		&job.CustomerEmail,
		&job.AspectRatio,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Claim flips the oldest pending job to processing and returns it.
func (r *JobRepositoryPG) Claim(ctx context.Context) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QWorkerClaimJob)
	job := domain.Job{Status: domain.JobStatusProcessing}
	if err := row.Scan(
		&job.ID,
		&job.ShopDomain,
		&job.PersonImageKey,
		&job.ClothingImageKey,
		&job.ClothingImageURL,
		&job.WebhookURL,
		&job.ProductID,
		&job.ProductTitle,
		&job.CustomerID,
		&job.CustomerEmail,
		&job.AspectRatio,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Requeue returns an interrupted processing job to the pending queue.
func (r *JobRepositoryPG) Requeue(ctx context.Context, jobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QRequeueJob, jobID)
	return err
}

// MarkCompleted records the result image; a no-op on already terminal rows.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID, imageURL string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, jobID, imageURL)
	return err
}

// MarkFailed records the carried error; a no-op on already terminal rows.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFailJob, jobID, jobErr.Code, jobErr.Message)
	return err
}

// ListCompletedByShop returns the most recent completed jobs for a shop.
func (r *JobRepositoryPG) ListCompletedByShop(ctx context.Context, shopDomain string, limit int) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCompletedJobsForShop, shopDomain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job := domain.Job{Status: domain.JobStatusCompleted}
		if err := rows.Scan(
			&job.ID,
			&job.ShopDomain,
			&job.ImageURL,
			&job.ProductID,
			&job.ProductTitle,
			&job.AspectRatio,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
