package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by every repository when a lookup matches no row.
var ErrNotFound = pgx.ErrNoRows

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Querier is satisfied by both the pool and an open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Tickets        TicketRepository
	History        StatusHistoryRepository
	Comments       CommentRepository
	Notifications  NotificationRepository
	SLAConfigs     SLAConfigRepository
	Users          UserRepository
	Teams          TeamRepository
	PasswordResets PasswordResetRepository
	Projects       ProjectRepository
	Messages       ContactMessageRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn against transaction-bound repositories. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a Store backed by pgx.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) Repositories() Repositories {
	return bind(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
			if err != nil {
				err = fmt.Errorf("commit transaction: %w", err)
			}
		}
	}()

	err = fn(bind(tx))
	return err
}

func bind(q Querier) Repositories {
	return Repositories{
		Tickets:        &ticketRepository{q: q},
		History:        &statusHistoryRepository{q: q},
		Comments:       &commentRepository{q: q},
		Notifications:  &notificationRepository{q: q},
		SLAConfigs:     &slaConfigRepository{q: q},
		Users:          &userRepository{q: q},
		Teams:          &teamRepository{q: q},
		PasswordResets: &passwordResetRepository{q: q},
		Projects:       &projectRepository{q: q},
		Messages:       &contactMessageRepository{q: q},
	}
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
