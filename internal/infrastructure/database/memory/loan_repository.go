package memory

import (
	"context"
	"fmt"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// LoanRepository keeps loans in process memory. Every read and write goes
// through a deep copy, so callers never share state with the store.
type LoanRepository struct {
	mu       sync.RWMutex
	nextID   int64
	loans    map[int64]*loan.Loan
	byNumber map[string]int64
	logger   *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(logger *slog.Logger) *LoanRepository {
	return &LoanRepository{
		loans:    make(map[int64]*loan.Loan),
		byNumber: make(map[string]int64),
		logger:   logger.With("component", "MemoryLoanRepository"),
	}
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: loan cannot be nil", apperrors.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[l.Number]; exists {
		return nil, fmt.Errorf("%w: loan number %s already exists", apperrors.ErrConflict, l.Number)
	}

	r.nextID++
	stored := l.Clone()
	stored.ID = r.nextID
	stored.Version = 1
	for i := range stored.Installments {
		stored.Installments[i].LoanID = stored.ID
	}

	r.loans[stored.ID] = stored
	r.byNumber[stored.Number] = stored.ID

	r.logger.DebugContext(ctx, "Loan created", "loanID", stored.ID, "number", stored.Number)
	return stored.Clone(), nil
}

func (r *LoanRepository) Load(ctx context.Context, loanID int64) (*loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
	}
	return stored.Clone(), nil
}

func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) error {
	if l == nil {
		return fmt.Errorf("%w: loan cannot be nil", apperrors.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.loans[l.ID]
	if !ok {
		return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, l.ID)
	}
	if stored.Version != l.Version {
		return fmt.Errorf("%w: loan %d was modified concurrently (version %d, stored %d)",
			apperrors.ErrConflict, l.ID, l.Version, stored.Version)
	}

	l.Version++
	updated := l.Clone()
	for i := range updated.Installments {
		updated.Installments[i].LoanID = updated.ID
	}
	r.loans[l.ID] = updated

	r.logger.DebugContext(ctx, "Loan saved", "loanID", l.ID, "version", l.Version, "status", string(l.Status))
	return nil
}

func (r *LoanRepository) FindByNumber(ctx context.Context, number string) (*loan.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("%w: loan number %s", apperrors.ErrNotFound, number)
	}
	return r.loans[id].Clone(), nil
}

// ListByClient returns the client's loans, newest start date first.
func (r *LoanRepository) ListByClient(ctx context.Context, clientID int64) ([]*loan.Loan, error) {
	loans := r.filter(func(l *loan.Loan) bool { return l.ClientID == clientID })
	sort.SliceStable(loans, func(i, j int) bool {
		if loans[i].StartDate.Equal(loans[j].StartDate) {
			return loans[i].ID > loans[j].ID
		}
		return loans[i].StartDate.After(loans[j].StartDate)
	})
	return loans, nil
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status loan.Status) ([]*loan.Loan, error) {
	return r.filter(func(l *loan.Loan) bool { return l.Status == status }), nil
}

func (r *LoanRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	active := r.filter(func(l *loan.Loan) bool { return l.Status == loan.StatusActive })
	ids := make([]int64, len(active))
	for i, l := range active {
		ids[i] = l.ID
	}
	return ids, nil
}

func (r *LoanRepository) SumOutstandingByStatus(ctx context.Context, status loan.Status) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := decimal.Zero
	for _, l := range r.loans {
		if l.Status == status {
			total = total.Add(l.OutstandingPrincipal)
		}
	}
	return total, nil
}

// filter returns matching loans ordered by ID, without installments.
func (r *LoanRepository) filter(match func(*loan.Loan) bool) []*loan.Loan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*loan.Loan, 0)
	for _, l := range r.loans {
		if match(l) {
			c := l.Clone()
			c.Installments = nil
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
