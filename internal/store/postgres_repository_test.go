package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "nil for non-pg error",
			err:  errors.New("connection reset"),
			want: nil,
		},
		{
			name: "nil for pg error with other code",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "movements_account_number_fkey"},
			want: nil,
		},
		{
			name: "transaction id constraint",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "movements_transaction_id_key"},
			want: ErrDuplicateTransactionID,
		},
		{
			name: "idempotency key constraint",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "movements_idempotency_key_key"},
			want: ErrDuplicateIdempotencyKey,
		},
		{
			name: "wrapped pg error is still translated",
			err:  fmt.Errorf("insert movement: %w", &pgconn.PgError{Code: "23505", ConstraintName: "movements_transaction_id_key"}),
			want: ErrDuplicateTransactionID,
		},
		{
			name: "unique violation on unrelated constraint",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "accounts_pkey"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateUniqueViolation(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
