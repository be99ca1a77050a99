package loan

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository is the persistence boundary for loans. Load returns the loan with
// its installments; Save persists every mutation of a loaded loan atomically and
// fails with apperrors.ErrConflict when the stored version moved on. A successful
// Save increments loan.Version.
type Repository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)

	Load(ctx context.Context, loanID int64) (*Loan, error)

	Save(ctx context.Context, loan *Loan) error

	FindByNumber(ctx context.Context, number string) (*Loan, error)

	ListByClient(ctx context.Context, clientID int64) ([]*Loan, error)

	ListByStatus(ctx context.Context, status Status) ([]*Loan, error)

	ListActiveIDs(ctx context.Context) ([]int64, error)

	SumOutstandingByStatus(ctx context.Context, status Status) (decimal.Decimal, error)
}

// Locker serializes mutations of a single loan. The returned release func must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, loanID int64) (release func(), err error)
}
