package domain

import "context"

// JobRepository defines persistence for try-on jobs.
type JobRepository interface {
	// Enqueue atomically consumes one shop credit and inserts a pending job.
	// Returns ErrInsufficientCredits (with the shop untouched) when the
	// balance is zero, ErrShopInactive for uninstalled shops.
	Enqueue(ctx context.Context, job *Job) (*CreditSnapshot, error)
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// Claim flips the oldest pending job to processing and returns it, or
	// ErrNotFound when no work is available.
	Claim(ctx context.Context) (*Job, error)
	// Requeue flips a processing job back to pending so another claim can
	// pick it up. Used when the worker is interrupted mid-job.
	Requeue(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID, imageURL string) error
	MarkFailed(ctx context.Context, jobID string, jobErr JobError) error
	ListCompletedByShop(ctx context.Context, shopDomain string, limit int) ([]Job, error)
}

// ShopRepository defines persistence for installed shops.
type ShopRepository interface {
	GetByDomain(ctx context.Context, domain string) (*Shop, error)
	Upsert(ctx context.Context, shop *Shop) error
	Deactivate(ctx context.Context, domain string) error
	GrantCredits(ctx context.Context, domain string, amount int) (*CreditSnapshot, error)
}

// PixelRepository persists storefront analytics events.
type PixelRepository interface {
	Insert(ctx context.Context, event *PixelEvent) error
	Summary24h(ctx context.Context, shopDomain string) (*PixelSummary, error)
}
