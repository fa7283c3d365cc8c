package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements both ledger stores over a pgx pool. The
// endpoints table carries a unique index on (path, network), which is
// what makes single-row attribution sound.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ EndpointStore    = (*PostgresStore)(nil)
	_ TransactionStore = (*PostgresStore)(nil)
)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPool opens a pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, addr string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func (s *PostgresStore) FindByPathAndNetwork(ctx context.Context, path, network string) (*EndpointRecord, error) {
	var e EndpointRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, path, network
		FROM endpoints
		WHERE path = $1 AND network = $2
	`, path, network).Scan(&e.ID, &e.UserID, &e.Path, &e.Network)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find endpoint: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *TransactionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions
			(id, user_id, endpoint_id, payer_wallet, amount, net_amount, tx_hash, chain, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		record.ID, record.UserID, record.EndpointID, record.PayerWallet,
		record.Amount, record.NetAmount, record.TxHash, record.Chain,
		record.Status, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
