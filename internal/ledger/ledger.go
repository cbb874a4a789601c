package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when an account lacks available balance
	// to cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive amount was supplied to a
	// balance-mutating operation.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound indicates the referenced account does not exist
	// or is soft-deleted.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTransactionNotFound indicates the referenced ledger row does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyProcessed guards state transitions: the row has already left
	// the PENDING state, so a second approve/reject/settle must not apply.
	ErrAlreadyProcessed = errors.New("already processed")
)

// Transaction types.
const (
	TypeDeposit  = "DEPOSIT"
	TypeTransfer = "TRANSFER"
)

// Transaction statuses. SUCCESS and REJECTED are terminal.
const (
	StatusPending  = "PENDING"
	StatusSuccess  = "SUCCESS"
	StatusRejected = "REJECTED"
)

// Account holds a customer's balance and activation state. Balances are
// fixed-point decimals and never go negative after a committed operation.
type Account struct {
	ID            string
	UserID        string
	AccountNumber string
	Balance       decimal.Decimal
	Activated     bool
	CreatedAt     time.Time
	DeletedAt     *time.Time
	DeletedBy     *string
}

// Transaction is an append-only ledger row. Amount and type are immutable
// once written; only the status may transition, and only out of PENDING.
type Transaction struct {
	ID                     string
	AccountID              string
	Type                   string
	Amount                 decimal.Decimal
	Status                 string
	RecipientAccountNumber string
	Description            string
	CreatedAt              time.Time
	DeletedAt              *time.Time
	DeletedBy              *string
}

// Store is the contract implemented by ledger backends. Every balance
// mutation is an atomic read-modify-write: two concurrent debits can never
// both pass the balance check against a stale read.
type Store interface {
	CreateAccount(ctx context.Context, account Account) error
	AccountByID(ctx context.Context, id string) (Account, error)
	AccountByUser(ctx context.Context, userID string) (Account, error)
	// AccountByUserAny resolves the account even when soft-deleted. Used by
	// the restore cascade.
	AccountByUserAny(ctx context.Context, userID string) (Account, error)
	AccountByNumber(ctx context.Context, number string) (Account, error)
	SetActivation(ctx context.Context, accountID string, active bool) error

	// Credit adds amount to the account balance. When entry is non-nil the
	// ledger row is written in the same atomic step as the balance change.
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error
	// Debit subtracts amount, failing with ErrInsufficientFunds unless
	// balance >= amount at the moment of the write.
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, entry *Transaction) error

	// RecordPending appends a PENDING ledger row without touching balances.
	RecordPending(ctx context.Context, entry Transaction) error
	// SettleTransfer atomically claims a PENDING transfer row, re-checks and
	// debits the sender, and credits the recipient when one is local
	// (recipientAccountID may be empty for external transfers). A row that
	// already left PENDING yields ErrAlreadyProcessed.
	SettleTransfer(ctx context.Context, txID, senderAccountID, recipientAccountID string, amount decimal.Decimal) error
	// RejectTransaction transitions a PENDING row to REJECTED.
	RejectTransaction(ctx context.Context, txID string) error

	TransactionByID(ctx context.Context, id string) (Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]Transaction, error)

	SoftDeleteAccount(ctx context.Context, accountID string, at time.Time, by string) error
	RestoreAccount(ctx context.Context, accountID string) error
	SoftDeleteTransactions(ctx context.Context, accountID string, at time.Time, by string) error
	RestoreTransactions(ctx context.Context, accountID string) error
}
