package sqlconfig

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

const transactionsTableName = "transactions"

var transactionColumns = []any{
	"id", "account_id", "type", "amount", "currency", "status",
	"provider_ref", "meta", "contact_ref", "created_at", "updated_at",
}

var _ ITransactionTable = (*TransactionsTable)(nil)

type TransactionsTable struct {
	exec bob.Executor
}

func NewTransactionsTable(db *sql.DB) *TransactionsTable {
	return &TransactionsTable{exec: bob.NewDB(db)}
}

// FindByID retrieves a transaction by primary key.
func (t *TransactionsTable) FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	query := psql.Select(
		sm.Columns(transactionColumns...),
		sm.From(transactionsTableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[Transaction]())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert inserts tx, or updates status, provider_ref and meta of an existing row that is still
// PENDING. When the stored row is already terminal the conflict update matches nothing, no row
// comes back from RETURNING and the stored row is read instead.
func (t *TransactionsTable) Upsert(ctx context.Context, tx *Transaction) (*Transaction, error) {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := psql.Insert(
		im.Into(transactionsTableName,
			"id", "account_id", "type", "amount", "currency", "status",
			"provider_ref", "meta", "contact_ref", "created_at", "updated_at"),
		im.Values(
			psql.Arg(tx.ID),
			psql.Arg(tx.AccountID),
			psql.Arg(tx.Type),
			psql.Arg(tx.Amount),
			psql.Arg(tx.Currency),
			psql.Arg(tx.Status),
			psql.Arg(tx.ProviderRef),
			psql.Arg(tx.Meta),
			psql.Arg(tx.ContactRef),
			psql.Arg(createdAt),
			psql.Arg(time.Now().UTC()),
		),
		im.OnConflict("id").DoUpdate(
			im.SetExcluded("status", "provider_ref", "meta", "updated_at"),
			im.Where(psql.Quote(transactionsTableName, "status").EQ(psql.Arg(StatusPending))),
		),
		im.Returning(transactionColumns...),
	)

	row, err := bob.One(ctx, t.exec, query, scan.StructMapper[Transaction]())
	if errors.Is(err, sql.ErrNoRows) {
		return t.FindByID(ctx, tx.ID)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns transactions matching the filter, newest first. Nil filter returns all.
func (t *TransactionsTable) List(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error) {
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(transactionColumns...),
		sm.From(transactionsTableName),
	}
	if filter != nil {
		if filter.AccountID != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("account_id").EQ(psql.Arg(*filter.AccountID))))
		}
		if filter.Status != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("status").EQ(psql.Arg(*filter.Status))))
		}
		if filter.MaxCreationTime != nil {
			queryMods = append(queryMods, sm.Where(psql.Quote("created_at").LTE(psql.Arg(*filter.MaxCreationTime))))
		}
		if filter.Limit > 0 {
			queryMods = append(queryMods, sm.Limit(filter.Limit+1))
		}
		if filter.Offset > 0 {
			queryMods = append(queryMods, sm.Offset(filter.Offset))
		}
	}
	queryMods = append(queryMods,
		sm.OrderBy(psql.Quote("created_at")).Desc(),
		sm.OrderBy(psql.Quote("id")).Desc(),
	)

	rows, err := bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[*Transaction]())
	if err != nil {
		return nil, err
	}
	return rows, nil
}
