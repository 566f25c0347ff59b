package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, email, password_hash, first_name, last_name)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.FirstName, account.LastName).Scan(&account.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query :=
		`SELECT id, email, password_hash, first_name, last_name, auth_token, token_created_at, created_at FROM accounts
		 WHERE email = $1
		 `

	var (
		token     sql.NullString
		tokenTime sql.NullTime
	)

	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &token, &tokenTime, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if token.Valid && tokenTime.Valid {
		a.AuthToken = &token.String
		a.TokenCreatedAt = &tokenTime.Time
	}

	return a, nil
}

func (r *PostgresRepository) SetToken(ctx context.Context, email, token string, createdAt time.Time) error {
	query :=
		`UPDATE accounts SET auth_token = $1, token_created_at = $2
		 WHERE email = $3
		 `

	res, err := r.db.ExecContext(ctx, query, token, createdAt, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func (r *PostgresRepository) Update(ctx context.Context, email string, upd models.AccountUpdate) error {
	if upd.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("password_hash", upd.PasswordHash)
	add("first_name", upd.FirstName)
	add("last_name", upd.LastName)

	args = append(args, email)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE email = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
