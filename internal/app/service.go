/**
 * @description
 * This file contains the core business logic for the ledger-service. The `Service`
 * struct orchestrates every account and movement operation, coordinating between
 * the database repository, the consistency cache, and the event publisher.
 *
 * Key guarantees:
 * - Exactly-once movement application per transaction id: retried requests get
 *   the original movement back, verbatim.
 * - Atomic balance mutation: the balance update and the movement insert commit
 *   together or not at all, guarded by the account's version counter.
 * - Bounded optimistic retry: a failed version guard retries the whole
 *   read-validate-write cycle a fixed number of times before surfacing
 *   ErrConcurrentModification.
 * - Event emission is strictly post-commit and fire-and-forget; a publish
 *   failure never undoes a committed mutation.
 *
 * @dependencies
 * - context, errors, fmt, log, strconv, time: Standard Go libraries.
 * - github.com/google/uuid: For movement identifiers.
 * - internal/domain, internal/store, internal/telemetry: Models, persistence, counters.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/corebank/ledger-service/internal/domain"
	"github.com/corebank/ledger-service/internal/store"
	"github.com/corebank/ledger-service/internal/telemetry"
	"github.com/google/uuid"
)

const defaultMaxMovementRetries = 3

// DomainEventPublisher is the post-commit notification hook. Implementations
// must never block the caller or report failure into the business path.
type DomainEventPublisher interface {
	AccountCreated(account *domain.Account, correlationID string)
	AccountDeleted(account *domain.Account, hard bool, correlationID string)
	MovementCreated(movement *domain.Movement)
}

// MovementRateLimiter limits movement creation per account. A nil limiter
// disables the check.
type MovementRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the ledger.
type Service struct {
	repo      store.Repository
	cache     *CustomerCache
	publisher DomainEventPublisher
	metrics   *telemetry.Metrics

	maxMovementRetries int

	rateLimiter        MovementRateLimiter
	rateLimitPerMinute int
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, cache *CustomerCache, publisher DomainEventPublisher, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:               repo,
		cache:              cache,
		publisher:          publisher,
		metrics:            metrics,
		maxMovementRetries: defaultMaxMovementRetries,
	}
}

// SetMovementRateLimiter enables distributed per-account rate limiting of
// movement creation.
func (s *Service) SetMovementRateLimiter(limiter MovementRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.rateLimitPerMinute = perMinute
}

// OpenAccount creates a new account for an active customer. Customer existence
// is always confirmed through the live lookup; the consistency cache is not
// trusted for existence at creation time.
func (s *Service) OpenAccount(ctx context.Context, req domain.OpenAccountRequest) (*domain.Account, error) {
	if req.CustomerID == uuid.Nil {
		return nil, ErrMissingCustomerID
	}
	if !domain.ValidCategory(req.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	customer, err := s.cache.ConfirmActiveLive(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	name := req.CustomerName
	if name == "" {
		name = customer.FullName
	}

	account, err := s.repo.CreateAccount(ctx, &domain.Account{
		CustomerID:   req.CustomerID,
		CustomerName: name,
		Category:     req.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	log.Printf("level=info component=ledger msg=\"account opened\" account_number=%d customer_id=%s category=%s", account.AccountNumber, account.CustomerID, account.Category)
	s.publisher.AccountCreated(account, req.CorrelationID)
	return account, nil
}

// GetBalance returns the current balance of an account.
func (s *Service) GetBalance(ctx context.Context, accountNumber int64) (*domain.BalanceResponse, error) {
	account, err := s.repo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return &domain.BalanceResponse{
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Active:        account.Active,
		AsOf:          account.UpdatedAt,
	}, nil
}

// ListMovements returns an account's movements, newest first.
func (s *Service) ListMovements(ctx context.Context, accountNumber int64, limit, offset int) ([]domain.Movement, error) {
	if _, err := s.repo.FindAccountByNumber(ctx, accountNumber); err != nil {
		return nil, err
	}
	return s.repo.ListMovementsByAccount(ctx, accountNumber, limit, offset)
}

// movementSpec is the internal, validated form of a movement to apply. For
// reversals it carries the original movement and the signed direction derived
// from it.
type movementSpec struct {
	accountNumber  int64
	kind           domain.MovementKind
	amount         int64
	direction      int64 // +1 credits the balance, -1 debits it
	transactionID  string
	idempotencyKey *string
	description    string
	reference      string
	correlationID  string
	original       *domain.Movement // set for reversals only
}

// ApplyMovement validates and applies a single CREDIT or DEBIT movement.
// Replaying a transaction id (or idempotency key) returns the original
// movement unchanged. Reversals go through ReverseMovement, which resolves the
// movement being reversed first.
func (s *Service) ApplyMovement(ctx context.Context, cmd domain.MovementCommand) (*domain.Movement, error) {
	var direction int64
	switch cmd.Kind {
	case domain.MovementCredit:
		direction = 1
	case domain.MovementDebit:
		direction = -1
	case domain.MovementReversal:
		return nil, fmt.Errorf("%w: reversals are created through the reverse operation", ErrInvalidKind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, cmd.Kind)
	}

	return s.applyMovement(ctx, movementSpec{
		accountNumber:  cmd.AccountNumber,
		kind:           cmd.Kind,
		amount:         cmd.Amount,
		direction:      direction,
		transactionID:  cmd.TransactionID,
		idempotencyKey: cmd.IdempotencyKey,
		description:    cmd.Description,
		reference:      cmd.Reference,
		correlationID:  cmd.CorrelationID,
	})
}

// ReverseMovement applies a compensating movement for a previously committed
// one: same amount, opposite direction, atomically linked to the original.
func (s *Service) ReverseMovement(ctx context.Context, movementID uuid.UUID, cmd domain.ReversalCommand) (*domain.Movement, error) {
	if cmd.TransactionID == "" {
		return nil, ErrMissingTransactionID
	}

	// Replay of the reversal itself: return the existing reversal movement.
	if existing, err := s.repo.FindMovementByTransactionID(ctx, cmd.TransactionID); err == nil {
		if existing.Kind != domain.MovementReversal || existing.ReversedMovementID == nil || *existing.ReversedMovementID != movementID {
			return nil, ErrIdempotencyConflict
		}
		return existing, nil
	} else if !errors.Is(err, store.ErrMovementNotFound) {
		return nil, err
	}

	original, err := s.repo.FindMovementByID(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if original.Kind == domain.MovementReversal {
		return nil, ErrReversalOfReversal
	}
	if original.Reversed {
		return nil, store.ErrMovementAlreadyReversed
	}

	direction := int64(-1)
	if original.SignedAmount() < 0 {
		direction = 1
	}

	return s.applyMovement(ctx, movementSpec{
		accountNumber:  original.AccountNumber,
		kind:           domain.MovementReversal,
		amount:         original.Amount,
		direction:      direction,
		transactionID:  cmd.TransactionID,
		idempotencyKey: cmd.IdempotencyKey,
		description:    cmd.Description,
		reference:      original.TransactionID,
		correlationID:  cmd.CorrelationID,
		original:       original,
	})
}

func (s *Service) applyMovement(ctx context.Context, spec movementSpec) (*domain.Movement, error) {
	if spec.amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if spec.transactionID == "" {
		return nil, ErrMissingTransactionID
	}

	if err := s.consumeRateLimit(ctx, spec.accountNumber); err != nil {
		return nil, err
	}

	// Idempotency pre-check: an optimization to avoid a doomed insert on normal
	// retry patterns. The unique constraints remain the ultimate guard.
	if existing, err := s.findExistingMovement(ctx, spec); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	for attempt := 0; attempt <= s.maxMovementRetries; attempt++ {
		account, err := s.repo.FindAccountByNumber(ctx, spec.accountNumber)
		if err != nil {
			return nil, err
		}
		if !account.Active {
			return nil, ErrAccountInactive
		}

		// Customer state is checked once per application: the verdict cannot
		// change between optimistic retries of the same request.
		if attempt == 0 {
			if err := s.requireActiveCustomer(ctx, account.CustomerID); err != nil {
				return nil, err
			}
		}

		balanceAfter := account.Balance + spec.direction*spec.amount
		if balanceAfter < 0 {
			return nil, ErrInsufficientFunds
		}

		movement := &domain.Movement{
			ID:             uuid.New(),
			AccountNumber:  account.AccountNumber,
			Kind:           spec.kind,
			Amount:         spec.amount,
			BalanceBefore:  account.Balance,
			BalanceAfter:   balanceAfter,
			Description:    spec.description,
			Reference:      spec.reference,
			TransactionID:  spec.transactionID,
			IdempotencyKey: spec.idempotencyKey,
			CreatedAt:      time.Now().UTC(),
		}
		if spec.correlationID != "" {
			movement.CorrelationID = &spec.correlationID
		}
		if spec.original != nil {
			originalID := spec.original.ID
			movement.ReversedMovementID = &originalID
		}

		err = s.repo.ApplyMovement(ctx, movement, account.Version)
		switch {
		case err == nil:
			s.metrics.RecordMovementApplied(ctx, string(movement.Kind))
			s.publisher.MovementCreated(movement)
			return movement, nil

		case errors.Is(err, store.ErrVersionConflict):
			s.metrics.RecordMovementRetry(ctx)
			log.Printf("level=info component=ledger msg=\"version conflict; retrying movement\" account_number=%d transaction_id=%s attempt=%d", spec.accountNumber, spec.transactionID, attempt+1)
			continue

		case errors.Is(err, store.ErrDuplicateTransactionID), errors.Is(err, store.ErrDuplicateIdempotencyKey):
			// A concurrent replay won the insert race; return its result.
			existing, findErr := s.findExistingMovement(ctx, spec)
			if findErr != nil {
				return nil, findErr
			}
			if existing == nil {
				return nil, err
			}
			return existing, nil

		default:
			return nil, err
		}
	}

	return nil, ErrConcurrentModification
}

// findExistingMovement looks up a prior movement by transaction id or
// idempotency key and verifies the request matches it. A hit with different
// defining fields is a genuine conflict, not a replay.
func (s *Service) findExistingMovement(ctx context.Context, spec movementSpec) (*domain.Movement, error) {
	existing, err := s.repo.FindMovementByTransactionID(ctx, spec.transactionID)
	if err != nil && !errors.Is(err, store.ErrMovementNotFound) {
		return nil, err
	}
	if existing == nil && spec.idempotencyKey != nil && *spec.idempotencyKey != "" {
		existing, err = s.repo.FindMovementByIdempotencyKey(ctx, *spec.idempotencyKey)
		if err != nil && !errors.Is(err, store.ErrMovementNotFound) {
			return nil, err
		}
	}
	if existing == nil {
		return nil, nil
	}
	if existing.AccountNumber != spec.accountNumber || existing.Amount != spec.amount || existing.Kind != spec.kind {
		return nil, ErrIdempotencyConflict
	}
	return existing, nil
}

func (s *Service) requireActiveCustomer(ctx context.Context, customerID uuid.UUID) error {
	status, err := s.cache.Status(ctx, customerID)
	if err != nil {
		return err
	}
	switch status {
	case domain.CustomerActive:
		return nil
	case domain.CustomerInactive:
		return ErrCustomerInactive
	default:
		return ErrCustomerUnavailable
	}
}

func (s *Service) consumeRateLimit(ctx context.Context, accountNumber int64) error {
	if s.rateLimiter == nil || s.rateLimitPerMinute <= 0 {
		return nil
	}
	count, _, err := s.rateLimiter.ConsumeRateLimit(ctx, "movement_create", strconv.FormatInt(accountNumber, 10), s.rateLimitPerMinute, time.Minute)
	if err != nil {
		// The limiter is protective, not load-bearing: on limiter failure the
		// movement is allowed through.
		log.Printf("level=warn component=ledger msg=\"rate limiter unavailable; allowing request\" account_number=%d err=%v", accountNumber, err)
		return nil
	}
	if count > s.rateLimitPerMinute {
		return ErrRateLimited
	}
	return nil
}

// DeleteAccount soft-deletes (deactivates) or hard-deletes an account. A hard
// delete cascades to the account's movements inside one atomic unit.
func (s *Service) DeleteAccount(ctx context.Context, accountNumber int64, hard bool, correlationID string) error {
	account, err := s.repo.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return err
	}

	if hard {
		movementsDeleted, err := s.repo.DeleteAccountCascade(ctx, accountNumber)
		if err != nil {
			return err
		}
		log.Printf("level=info component=ledger msg=\"account hard-deleted\" account_number=%d movements_deleted=%d", accountNumber, movementsDeleted)
	} else {
		if err := s.repo.DeactivateAccount(ctx, accountNumber); err != nil {
			return err
		}
		log.Printf("level=info component=ledger msg=\"account deactivated\" account_number=%d", accountNumber)
	}

	s.publisher.AccountDeleted(account, hard, correlationID)
	return nil
}

// DeleteAccountsByCustomer hard-deletes every account owned by the customer and
// returns how many were deleted. The batch is partial-failure tolerant: one
// account's failure is logged and skipped, never fatal to the rest.
func (s *Service) DeleteAccountsByCustomer(ctx context.Context, customerID uuid.UUID) (int, error) {
	accounts, err := s.repo.FindAccountsByCustomerID(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("list accounts for customer %s: %w", customerID, err)
	}

	deleted := 0
	for i := range accounts {
		account := accounts[i]
		if _, err := s.repo.DeleteAccountCascade(ctx, account.AccountNumber); err != nil {
			log.Printf("level=error component=ledger msg=\"cascade delete failed; continuing batch\" account_number=%d customer_id=%s err=%v", account.AccountNumber, customerID, err)
			continue
		}
		deleted++
		s.publisher.AccountDeleted(&account, true, "")
	}

	log.Printf("level=info component=ledger msg=\"customer cascade complete\" customer_id=%s accounts_deleted=%d accounts_total=%d", customerID, deleted, len(accounts))
	return deleted, nil
}
