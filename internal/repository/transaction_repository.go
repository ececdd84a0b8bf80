package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finboard/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var transactionColumns = []string{"id", "user_id", "amount", "category", "description", "date", "created_at", "updated_at"}

type PostgresTransactionStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresTransactionStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresTransactionStore {
	return &PostgresTransactionStore{
		db:     db,
		logger: logger,
	}
}

func (r *PostgresTransactionStore) Create(ctx context.Context, userID string, fields models.TransactionFields) (string, error) {
	id := uuid.NewString()
	sql, args, err := insertTransactionQuery(id, userID, fields, time.Now()).ToSql()
	if err != nil {
		return "", err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.Debug("Transaction inserted", zap.String("user_id", userID), zap.String("id", id))
	return id, nil
}

func (r *PostgresTransactionStore) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	sql, args, err := getTransactionQuery(userID, id).ToSql()
	if err != nil {
		return nil, err
	}

	var tx models.Transaction
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Category, &tx.Description, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select transaction: %w", err)
	}

	return &tx, nil
}

func (r *PostgresTransactionStore) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	sql, args, err := listTransactionsQuery(userID).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Amount, &tx.Category, &tx.Description, &tx.Date, &tx.CreatedAt, &tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func (r *PostgresTransactionStore) Update(ctx context.Context, userID, id string, fields models.TransactionFields) error {
	if !validID(id) {
		return ErrNotFound
	}
	sql, args, err := updateTransactionQuery(userID, id, fields, time.Now()).ToSql()
	if err != nil {
		return err
	}

	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresTransactionStore) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	sql, args, err := deleteTransactionQuery(userID, id).ToSql()
	if err != nil {
		return err
	}

	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// validID filters ids that could never match the uuid primary key, so they
// surface as not found rather than as a query error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func insertTransactionQuery(id, userID string, f models.TransactionFields, now time.Time) squirrel.InsertBuilder {
	return squirrel.Insert("transactions").
		Columns(transactionColumns...).
		Values(id, userID, f.Amount, string(f.Category), f.Description, f.Date, now, now).
		PlaceholderFormat(squirrel.Dollar)
}

func getTransactionQuery(userID, id string) squirrel.SelectBuilder {
	return squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
}

func listTransactionsQuery(userID string) squirrel.SelectBuilder {
	return squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("date DESC").
		PlaceholderFormat(squirrel.Dollar)
}

func updateTransactionQuery(userID, id string, f models.TransactionFields, now time.Time) squirrel.UpdateBuilder {
	return squirrel.Update("transactions").
		Set("amount", f.Amount).
		Set("category", string(f.Category)).
		Set("description", f.Description).
		Set("date", f.Date).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
}

func deleteTransactionQuery(userID, id string) squirrel.DeleteBuilder {
	return squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)
}
