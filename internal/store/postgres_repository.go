/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed to manage the three ledger tables: `accounts`,
 * `movements`, and `customer_projections`.
 *
 * Concurrency contract: the account row is the unit of mutual exclusion. Balance
 * mutations are compare-and-swapped on the `version` column rather than taking a
 * row lock, so concurrent writers on the same account fail fast with
 * ErrVersionConflict and retry in the application layer. Movements on different
 * accounts never contend.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrMovementNotFound        = errors.New("movement not found")
	ErrProjectionNotFound      = errors.New("customer projection not found")
	ErrVersionConflict         = errors.New("account version conflict")
	ErrDuplicateTransactionID  = errors.New("duplicate transaction id")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrMovementAlreadyReversed = errors.New("movement already reversed")
)

const pgUniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `account_number, customer_id, customer_name, category, balance, active, version, created_at, updated_at`

// CreateAccount inserts a new account and returns it with its store-generated
// account number and timestamps filled in.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (customer_id, customer_name, category, balance, active, version)
		VALUES ($1, $2, $3, 0, TRUE, 1)
		RETURNING ` + accountColumns
	created, err := scanAccount(r.db.QueryRow(ctx, query, account.CustomerID, account.CustomerName, account.Category))
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

// FindAccountByNumber retrieves an account by its account number.
func (r *PostgresRepository) FindAccountByNumber(ctx context.Context, accountNumber int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindAccountsByCustomerID retrieves every account owned by the given customer.
func (r *PostgresRepository) FindAccountsByCustomerID(ctx context.Context, customerID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY account_number`
	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// DeactivateAccount flips the active flag off. The version bump keeps any
// in-flight optimistic writer from committing against the deactivated account.
func (r *PostgresRepository) DeactivateAccount(ctx context.Context, accountNumber int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET active = FALSE, version = version + 1, updated_at = NOW() WHERE account_number = $1`,
		accountNumber,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteAccountCascade removes the account's movements and then the account
// itself inside a single transaction.
func (r *PostgresRepository) DeleteAccountCascade(ctx context.Context, accountNumber int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	movementsTag, err := tx.Exec(ctx, `DELETE FROM movements WHERE account_number = $1`, accountNumber)
	if err != nil {
		return 0, fmt.Errorf("delete movements: %w", err)
	}

	accountTag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE account_number = $1`, accountNumber)
	if err != nil {
		return 0, fmt.Errorf("delete account: %w", err)
	}
	if accountTag.RowsAffected() == 0 {
		return 0, ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return movementsTag.RowsAffected(), nil
}

const movementColumns = `id, account_number, kind, amount, balance_before, balance_after, description, reference,
		transaction_id, idempotency_key, reversed, reversed_movement_id, correlation_id, created_at`

// FindMovementByID retrieves a movement by its identifier.
func (r *PostgresRepository) FindMovementByID(ctx context.Context, movementID uuid.UUID) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	return r.findMovement(ctx, query, movementID)
}

// FindMovementByTransactionID retrieves a movement by its caller-supplied
// transaction identifier. Used by the idempotency pre-check.
func (r *PostgresRepository) FindMovementByTransactionID(ctx context.Context, transactionID string) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE transaction_id = $1`
	return r.findMovement(ctx, query, transactionID)
}

// FindMovementByIdempotencyKey retrieves a movement by its optional idempotency key.
func (r *PostgresRepository) FindMovementByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE idempotency_key = $1`
	return r.findMovement(ctx, query, idempotencyKey)
}

func (r *PostgresRepository) findMovement(ctx context.Context, query string, arg interface{}) (*domain.Movement, error) {
	movement, err := scanMovement(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMovementNotFound
		}
		return nil, err
	}
	return movement, nil
}

// ApplyMovement persists one movement as a single atomic unit:
//  1. compare-and-swap the account balance on the expected version,
//  2. insert the movement row,
//  3. for reversals, flag the reversed movement and link it to the reversal.
//
// Any failure rolls back the whole unit. A failed version guard surfaces as
// ErrVersionConflict; a violated uniqueness constraint surfaces as the matching
// duplicate sentinel so the caller can fetch and return the existing movement.
func (r *PostgresRepository) ApplyMovement(ctx context.Context, movement *domain.Movement, expectedVersion int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	guardTag, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1, version = version + 1, updated_at = NOW()
		 WHERE account_number = $2 AND version = $3`,
		movement.BalanceAfter, movement.AccountNumber, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("guarded account update: %w", err)
	}
	if guardTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`,
			movement.AccountNumber,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrVersionConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO movements (id, account_number, kind, amount, balance_before, balance_after, description, reference,
			transaction_id, idempotency_key, reversed, reversed_movement_id, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12, $13)`,
		movement.ID, movement.AccountNumber, movement.Kind, movement.Amount,
		movement.BalanceBefore, movement.BalanceAfter, movement.Description, movement.Reference,
		movement.TransactionID, movement.IdempotencyKey, movement.ReversedMovementID,
		movement.CorrelationID, movement.CreatedAt,
	)
	if err != nil {
		if dupErr := translateUniqueViolation(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("insert movement: %w", err)
	}

	if movement.Kind == domain.MovementReversal && movement.ReversedMovementID != nil {
		linkTag, err := tx.Exec(ctx,
			`UPDATE movements SET reversed = TRUE, reversed_movement_id = $1
			 WHERE id = $2 AND reversed = FALSE`,
			movement.ID, *movement.ReversedMovementID,
		)
		if err != nil {
			return fmt.Errorf("flag reversed movement: %w", err)
		}
		// Zero rows means another reversal won the race inside its own
		// transaction; abort so the original is only ever reversed once.
		if linkTag.RowsAffected() == 0 {
			return ErrMovementAlreadyReversed
		}
	}

	return tx.Commit(ctx)
}

// ListMovementsByAccount returns the account's movements ordered newest-first.
func (r *PostgresRepository) ListMovementsByAccount(ctx context.Context, accountNumber int64, limit, offset int) ([]domain.Movement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + movementColumns + `
		FROM movements WHERE account_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	return r.listMovements(ctx, query, accountNumber, limit, offset)
}

// ListMovementsByAccountBetween returns the movements inside [start, end],
// ordered newest-first for statement display.
func (r *PostgresRepository) ListMovementsByAccountBetween(ctx context.Context, accountNumber int64, start, end time.Time) ([]domain.Movement, error) {
	query := `SELECT ` + movementColumns + `
		FROM movements WHERE account_number = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC, id DESC`
	return r.listMovements(ctx, query, accountNumber, start, end)
}

func (r *PostgresRepository) listMovements(ctx context.Context, query string, args ...interface{}) ([]domain.Movement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, *movement)
	}
	return movements, rows.Err()
}

// FindCustomerProjection retrieves the consistency-cache entry for a customer.
func (r *PostgresRepository) FindCustomerProjection(ctx context.Context, customerID uuid.UUID) (*domain.CustomerProjection, error) {
	var p domain.CustomerProjection
	query := `
		SELECT customer_id, customer_name, active, last_event_id, last_event_at, updated_at
		FROM customer_projections WHERE customer_id = $1
	`
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&p.CustomerID, &p.CustomerName, &p.Active, &p.LastEventID, &p.LastEventAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectionNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertCustomerProjection writes the projection with last-write-wins semantics
// gated on event recency: the update only lands when the incoming entry is
// strictly newer than the stored one, which drops duplicate and out-of-order
// deliveries in a single round trip.
func (r *PostgresRepository) UpsertCustomerProjection(ctx context.Context, projection *domain.CustomerProjection) (bool, error) {
	query := `
		INSERT INTO customer_projections (customer_id, customer_name, active, last_event_id, last_event_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (customer_id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			active = EXCLUDED.active,
			last_event_id = EXCLUDED.last_event_id,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = NOW()
		WHERE customer_projections.last_event_at < EXCLUDED.last_event_at
		RETURNING customer_id
	`
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		projection.CustomerID, projection.CustomerName, projection.Active,
		projection.LastEventID, projection.LastEventAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.AccountNumber, &a.CustomerID, &a.CustomerName, &a.Category,
		&a.Balance, &a.Active, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanMovement(row rowScanner) (*domain.Movement, error) {
	var m domain.Movement
	err := row.Scan(
		&m.ID, &m.AccountNumber, &m.Kind, &m.Amount, &m.BalanceBefore, &m.BalanceAfter,
		&m.Description, &m.Reference, &m.TransactionID, &m.IdempotencyKey,
		&m.Reversed, &m.ReversedMovementID, &m.CorrelationID, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// translateUniqueViolation maps a 23505 constraint violation on the movements
// table to the matching duplicate sentinel, or returns nil for unrelated errors.
// Constraint violations are never leaked raw past this boundary.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "transaction_id"):
		return ErrDuplicateTransactionID
	case strings.Contains(pgErr.ConstraintName, "idempotency_key"):
		return ErrDuplicateIdempotencyKey
	default:
		return nil
	}
}
