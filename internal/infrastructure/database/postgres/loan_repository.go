package postgres

import (
	"context"
	"errors"
	"fmt"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const loanColumns = `id, number, client_id, loan_type, principal, annual_rate, term_months, periodic_installment,
        outstanding_principal, status, start_date, disbursement_date, cancellation_reason, version, created_at, updated_at`

var installmentColumns = []string{
	"loan_id", "sequence_number", "due_date", "interest_portion", "principal_portion", "paid", "paid_date",
}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) (created *loan.Loan, err error) {
	defer r.observe("CreateLoan", time.Now(), &err)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, apperrors.WrapRepositoryError(err, "begin transaction")
	}
	defer r.rollbackOnError(ctx, tx, &err)

	query := `
        INSERT INTO loans (number, client_id, loan_type, principal, annual_rate, term_months, periodic_installment,
            outstanding_principal, status, start_date, disbursement_date, cancellation_reason, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, NOW(), NOW())
        RETURNING id, version, created_at, updated_at`

	created = l.Clone()
	err = tx.QueryRow(ctx, query,
		l.Number, l.ClientID, l.Type, toNumeric(l.Principal), toNumeric(l.AnnualRate), l.TermMonths,
		toNumeric(l.PeriodicInstallment), toNumeric(l.OutstandingPrincipal), string(l.Status), l.StartDate,
		l.DisbursementDate, toText(l.CancellationReason),
	).Scan(&created.ID, &created.Version, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "number", l.Number, "error", err)
		return nil, r.translateError(err, "insert loan")
	}

	if len(created.Installments) > 0 {
		if err = r.copyInstallments(ctx, tx, created.ID, created.Installments); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "loan_id", created.ID, "error", err)
		return nil, apperrors.WrapRepositoryError(err, "commit loan creation")
	}

	for i := range created.Installments {
		created.Installments[i].LoanID = created.ID
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID, "number", created.Number)
	return created, nil
}

func (r *LoanRepository) Load(ctx context.Context, loanID int64) (l *loan.Loan, err error) {
	defer r.observe("LoadLoan", time.Now(), &err)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	l, err = scanLoan(r.db.QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, r.translateError(err, "load loan")
	}

	if l.Installments, err = r.loadInstallments(ctx, loanID); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LoanRepository) FindByNumber(ctx context.Context, number string) (l *loan.Loan, err error) {
	defer r.observe("FindLoanByNumber", time.Now(), &err)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE number = $1`

	l, err = scanLoan(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "number", number)
			return nil, fmt.Errorf("%w: loan number %s", apperrors.ErrNotFound, number)
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by number", "number", number, "error", err)
		return nil, r.translateError(err, "find loan by number")
	}

	if l.Installments, err = r.loadInstallments(ctx, l.ID); err != nil {
		return nil, err
	}
	return l, nil
}

// Save writes the loan row guarded by its version, persists the schedule the
// first time one exists and marks newly paid installments, all in one
// transaction.
func (r *LoanRepository) Save(ctx context.Context, l *loan.Loan) (err error) {
	defer r.observe("SaveLoan", time.Now(), &err)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return apperrors.WrapRepositoryError(err, "begin transaction")
	}
	defer r.rollbackOnError(ctx, tx, &err)

	updateSQL := `
        UPDATE loans
        SET outstanding_principal = $1, status = $2, disbursement_date = $3, cancellation_reason = $4,
            version = version + 1, updated_at = $5
        WHERE id = $6 AND version = $7`

	tag, err := tx.Exec(ctx, updateSQL,
		toNumeric(l.OutstandingPrincipal), string(l.Status), l.DisbursementDate, toText(l.CancellationReason),
		l.UpdatedAt, l.ID, l.Version,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return r.translateError(err, "update loan")
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, tx, l)
	}

	if len(l.Installments) > 0 {
		var persisted int
		countSQL := `SELECT COUNT(*) FROM loan_installments WHERE loan_id = $1`
		if err = tx.QueryRow(ctx, countSQL, l.ID).Scan(&persisted); err != nil {
			r.logger.ErrorContext(ctx, "Failed to count installments", "loan_id", l.ID, "error", err)
			return r.translateError(err, "count installments")
		}
		if persisted == 0 {
			if err = r.copyInstallments(ctx, tx, l.ID, l.Installments); err != nil {
				return err
			}
		}
	}

	if err = r.markPaid(ctx, tx, l); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "loan_id", l.ID, "error", err)
		return apperrors.WrapRepositoryError(err, "commit loan update")
	}

	l.Version++
	r.logger.DebugContext(ctx, "Loan saved", "loan_id", l.ID, "version", l.Version, "status", string(l.Status))
	return nil
}

func (r *LoanRepository) ListByClient(ctx context.Context, clientID int64) (loans []*loan.Loan, err error) {
	defer r.observe("ListLoansByClient", time.Now(), &err)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE client_id = $1 ORDER BY start_date DESC, id DESC`
	return r.queryLoans(ctx, "list loans by client", query, clientID)
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status loan.Status) (loans []*loan.Loan, err error) {
	defer r.observe("ListLoansByStatus", time.Now(), &err)

	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY id ASC`
	return r.queryLoans(ctx, "list loans by status", query, string(status))
}

func (r *LoanRepository) ListActiveIDs(ctx context.Context) (ids []int64, err error) {
	defer r.observe("ListActiveLoanIDs", time.Now(), &err)

	query := `SELECT id FROM loans WHERE status = $1 ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, string(loan.StatusActive))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query active loan IDs", "error", err)
		return nil, r.translateError(err, "list active loan ids")
	}
	defer rows.Close()

	ids = make([]int64, 0)
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan ID", "error", err)
			return nil, r.translateError(err, "scan loan id")
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating active loan IDs", "error", err)
		return nil, r.translateError(err, "iterate loan ids")
	}

	return ids, nil
}

func (r *LoanRepository) SumOutstandingByStatus(ctx context.Context, status loan.Status) (total decimal.Decimal, err error) {
	defer r.observe("SumOutstanding", time.Now(), &err)

	query := `SELECT COALESCE(SUM(outstanding_principal), 0) FROM loans WHERE status = $1`

	var sum pgtype.Numeric
	if err = r.db.QueryRow(ctx, query, string(status)).Scan(&sum); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum outstanding principal", "status", string(status), "error", err)
		return decimal.Zero, r.translateError(err, "sum outstanding principal")
	}
	return fromNumeric(sum), nil
}

func (r *LoanRepository) queryLoans(ctx context.Context, op, query string, args ...any) ([]*loan.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "op", op, "error", err)
		return nil, r.translateError(err, op)
	}
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "op", op, "error", err)
			return nil, r.translateError(err, op)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "op", op, "error", err)
		return nil, r.translateError(err, op)
	}

	return loans, nil
}

func (r *LoanRepository) loadInstallments(ctx context.Context, loanID int64) ([]loan.Installment, error) {
	query := `
        SELECT loan_id, sequence_number, due_date, interest_portion, principal_portion, paid, paid_date
        FROM loan_installments
        WHERE loan_id = $1
        ORDER BY sequence_number ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query installments", "loan_id", loanID, "error", err)
		return nil, r.translateError(err, "load installments")
	}
	defer rows.Close()

	installments := make([]loan.Installment, 0)
	for rows.Next() {
		var (
			inst                pgxInstallment
			interest, principal pgtype.Numeric
		)
		err := rows.Scan(&inst.LoanID, &inst.SequenceNumber, &inst.DueDate, &interest, &principal, &inst.Paid, &inst.paidDate)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan installment row", "loan_id", loanID, "error", err)
			return nil, r.translateError(err, "scan installment")
		}
		inst.InterestPortion = fromNumeric(interest)
		inst.PrincipalPortion = fromNumeric(principal)
		inst.PaidDate = fromTimestamptz(inst.paidDate)
		installments = append(installments, inst.Installment)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating installment rows", "loan_id", loanID, "error", err)
		return nil, r.translateError(err, "iterate installments")
	}

	return installments, nil
}

func (r *LoanRepository) copyInstallments(ctx context.Context, tx pgx.Tx, loanID int64, installments []loan.Installment) error {
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"loan_installments"},
		installmentColumns,
		pgx.CopyFromSlice(len(installments), func(i int) ([]any, error) {
			inst := installments[i]
			return []any{
				loanID, inst.SequenceNumber, inst.DueDate,
				toNumeric(inst.InterestPortion), toNumeric(inst.PrincipalPortion),
				inst.Paid, inst.PaidDate,
			}, nil
		}),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to copy installments", "loan_id", loanID, "error", err)
		return r.translateError(err, "insert installments")
	}
	if copied != int64(len(installments)) {
		return apperrors.WrapRepositoryError(
			fmt.Errorf("copied %d of %d installments", copied, len(installments)), "insert installments")
	}

	r.logger.InfoContext(ctx, "Loan schedule stored", "loan_id", loanID, "num_entries", copied)
	return nil
}

// markPaid flips paid installments that are still unpaid in storage. The
// paid = FALSE guard keeps the flag monotonic.
func (r *LoanRepository) markPaid(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	var (
		sequences []int32
		paidDates []time.Time
	)
	for _, inst := range l.Installments {
		if inst.Paid && inst.PaidDate != nil {
			sequences = append(sequences, int32(inst.SequenceNumber))
			paidDates = append(paidDates, *inst.PaidDate)
		}
	}
	if len(sequences) == 0 {
		return nil
	}

	query := `
        UPDATE loan_installments AS li
        SET paid = TRUE, paid_date = u.paid_date
        FROM unnest($2::int[], $3::timestamptz[]) AS u(seq, paid_date)
        WHERE li.loan_id = $1 AND li.sequence_number = u.seq AND li.paid = FALSE`

	if _, err := tx.Exec(ctx, query, l.ID, sequences, paidDates); err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark installments paid", "loan_id", l.ID, "error", err)
		return r.translateError(err, "mark installments paid")
	}
	return nil
}

func (r *LoanRepository) missingOrStale(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loans WHERE id = $1)`, l.ID).Scan(&exists); err != nil {
		return r.translateError(err, "check loan exists")
	}
	if !exists {
		return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, l.ID)
	}
	r.logger.WarnContext(ctx, "Stale loan version", "loan_id", l.ID, "version", l.Version)
	return fmt.Errorf("%w: loan %d was modified concurrently (version %d)", apperrors.ErrConflict, l.ID, l.Version)
}

func (r *LoanRepository) rollbackOnError(ctx context.Context, tx pgx.Tx, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", rbErr)
	}
}

func (r *LoanRepository) observe(queryName string, start time.Time, err *error) {
	status := "success"
	if *err != nil && !errors.Is(*err, apperrors.ErrNotFound) {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(start))
}

func (r *LoanRepository) translateError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		r.logger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName)
	}
	return apperrors.WrapRepositoryError(err, op)
}

type pgxInstallment struct {
	loan.Installment
	paidDate pgtype.Timestamptz
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var (
		l                                         loan.Loan
		principal, rate, installment, outstanding pgtype.Numeric
		disbursed                                 pgtype.Timestamptz
		reason                                    pgtype.Text
	)
	err := row.Scan(
		&l.ID, &l.Number, &l.ClientID, &l.Type, &principal, &rate, &l.TermMonths, &installment,
		&outstanding, &l.Status, &l.StartDate, &disbursed, &reason, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Principal = fromNumeric(principal)
	l.AnnualRate = fromNumeric(rate)
	l.PeriodicInstallment = fromNumeric(installment)
	l.OutstandingPrincipal = fromNumeric(outstanding)
	l.DisbursementDate = fromTimestamptz(disbursed)
	l.CancellationReason = reason.String
	return &l, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
