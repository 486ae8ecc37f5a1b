// Package cleanup purges accounts that never completed verification.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/go-accounts/internal/database/models"
	"github.com/hugh/go-accounts/internal/store"
)

const DefaultRetentionDays = 2

// ErrPartialPurge is returned when the store deleted a different number of
// rows than requested. The transaction is rolled back.
var ErrPartialPurge = errors.New("purge deleted an unexpected number of users")

type Policy struct {
	users         store.Users
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Policy)

func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

func NewPolicy(users store.Users, retentionDays int, logger *slog.Logger, opts ...Option) *Policy {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	p := &Policy{
		users:         users,
		retentionDays: retentionDays,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type Result struct {
	Deleted int64
	Emails  []string
}

// FindStaleUnverified returns unverified users created more than
// retentionDays ago.
func (p *Policy) FindStaleUnverified(ctx context.Context, retentionDays int) ([]models.User, error) {
	cutoff := p.now().AddDate(0, 0, -retentionDays)
	return p.users.FindUnverifiedOlderThan(ctx, cutoff)
}

// Purge deletes users as a single unit. Either all of them are removed or
// none are. A user verified since it was selected is never deleted and fails
// the purge with ErrPartialPurge.
func (p *Policy) Purge(ctx context.Context, users []models.User) (int64, error) {
	var deleted int64
	err := p.users.InTx(ctx, func(tx store.UserStore) error {
		n, err := purge(ctx, tx, users)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func purge(ctx context.Context, tx store.UserStore, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}

	n, err := tx.BulkDelete(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n != int64(len(ids)) {
		return 0, fmt.Errorf("%w: expected %d, deleted %d", ErrPartialPurge, len(ids), n)
	}
	return n, nil
}

// Run finds and purges stale accounts using the configured retention. The
// selection and the delete share one transaction.
func (p *Policy) Run(ctx context.Context) (*Result, error) {
	cutoff := p.now().AddDate(0, 0, -p.retentionDays)

	var stale []models.User
	var deleted int64
	err := p.users.InTx(ctx, func(tx store.UserStore) error {
		var err error
		stale, err = tx.FindUnverifiedOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		deleted, err = purge(ctx, tx, stale)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(stale) == 0 {
		p.logger.InfoContext(ctx, "no stale unverified users", "retention_days", p.retentionDays)
		return result, nil
	}

	result.Deleted = deleted
	for i := range stale {
		result.Emails = append(result.Emails, stale[i].Email)
		p.logger.InfoContext(ctx, "deleted unverified user",
			"email", stale[i].Email,
			"created_at", stale[i].CreatedAt,
		)
	}
	p.logger.InfoContext(ctx, "cleanup completed", "deleted", deleted, "retention_days", p.retentionDays)

	return result, nil
}
