package port

import "context"

// Notifier delivers a message to a user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID, message, link string) error
}

// ApproverDirectory resolves which users may decide on requests
type ApproverDirectory interface {
	ListApprovers(ctx context.Context) ([]string, error)
	IsApprover(ctx context.Context, userID string) (bool, error)
}

// CategoryLookup resolves a category reference (numeric id or name) to its id
type CategoryLookup interface {
	ResolveCategory(ctx context.Context, ref string) (int64, error)
}
