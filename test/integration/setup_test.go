//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/database"
)

var (
	dbPool    *pgxpool.Pool
	dbOnce    sync.Once
	dbInitErr error
)

// connect migrates and opens the shared pool. Suites skip when DB_HOST is
// not set so the package stays runnable without Postgres.
func connect(t *testing.T) {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST not set, skipping postgres integration tests")
	}

	dbOnce.Do(func() {
		cfg, err := config.Load("integration")
		if err != nil {
			dbInitErr = err
			return
		}
		if os.Getenv("DB_MIGRATIONS_PATH") == "" {
			cfg.Database.MigrationsPath = "../../db/migrations"
		}
		if dbInitErr = database.Migrate(&cfg.Database); dbInitErr != nil {
			return
		}
		dbPool, dbInitErr = database.NewPostgresPool(context.Background(), &cfg.Database)
	})
	require.NoError(t, dbInitErr)
}

func truncateTables(t *testing.T) {
	t.Helper()
	tables := []string{
		"order_messages",
		"reports",
		"fraud_cases",
		"orders",
		"gigs",
		"users",
	}

	for _, table := range tables {
		_, err := dbPool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, table)
	}
}

func insertUser(t *testing.T, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	name := "user_" + id.String()[:8]
	_, err := dbPool.Exec(context.Background(), `
		INSERT INTO users (id, email, username, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, name+"@example.com", name, role, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	return id
}

func insertGig(t *testing.T, sellerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := dbPool.Exec(context.Background(), `
		INSERT INTO gigs (id, seller_id, title, packages)
		VALUES ($1, $2, $3, $4)`,
		id, sellerID, "Logo design",
		`{"basic": {"price": 50, "description": "One concept", "deliveryTime": 3, "revisions": 1}}`)
	require.NoError(t, err)
	return id
}

type orderRow struct {
	gigID, buyerID, sellerID uuid.UUID
	status                   string
	paymentStatus            string
	revisions                int
	revisionRequests         string
}

func insertOrder(t *testing.T, row orderRow) uuid.UUID {
	t.Helper()
	if row.paymentStatus == "" {
		row.paymentStatus = "pending"
	}
	if row.revisionRequests == "" {
		row.revisionRequests = "[]"
	}
	id := uuid.New()
	_, err := dbPool.Exec(context.Background(), `
		INSERT INTO orders (
			id, gig_id, buyer_id, seller_id, package, price, total_amount, delivery_time, revisions,
			status, payment_amount, payment_status, revision_requests, expected_delivery
		) VALUES ($1, $2, $3, $4, 'basic', 50, 50, 3, $5, $6, 50, $7, $8, $9)`,
		id, row.gigID, row.buyerID, row.sellerID, row.revisions,
		row.status, row.paymentStatus, row.revisionRequests, time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	return id
}
