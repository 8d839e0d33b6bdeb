package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/stockledger/internal/app"
	"github.com/odyssey-erp/stockledger/internal/platform/cache"
	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type seedUser struct {
	email       string
	companyRole string
	storeRole   string
}

var users = []seedUser{
	{email: "owner@stockledger.local", companyRole: "owner"},
	{email: "manager@stockledger.local", companyRole: "member", storeRole: "manager"},
	{email: "seller@stockledger.local", companyRole: "member", storeRole: "seller"},
	{email: "viewer@stockledger.local", companyRole: "member", storeRole: "viewer"},
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying schema...")
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var ids map[string]int64
	err = db.WithTx(ctx, pool, db.ReadCommitted, func(tx pgx.Tx) error {
		storeID, err := seedStore(ctx, tx, "Demo store")
		if err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		fmt.Println("→ Seeding users...")
		if ids, err = seedUsers(ctx, tx, storeID); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		fmt.Println("→ Seeding units...")
		return seedUnits(ctx, tx, storeID)
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("→ Issuing development sessions...")
	if err := issueSessions(ctx, cfg, ids); err != nil {
		log.Printf("skip sessions: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedStore(ctx context.Context, tx pgx.Tx, title string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO stores (title) VALUES ($1)
		ON CONFLICT (title) DO UPDATE SET title = EXCLUDED.title
		RETURNING id`, title).Scan(&id)
	return id, err
}

func seedUsers(ctx context.Context, tx pgx.Tx, storeID int64) (map[string]int64, error) {
	ids := make(map[string]int64, len(users))
	for _, u := range users {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, company_role) VALUES ($1, $2::company_role)
			ON CONFLICT (email) DO UPDATE SET company_role = EXCLUDED.company_role
			RETURNING id`, u.email, u.companyRole).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[u.email] = id
		if u.storeRole == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_user_in_store (user_id, store_id, role) VALUES ($1, $2, $3::store_role)
			ON CONFLICT ON CONSTRAINT unique_constraint_user_store DO UPDATE SET role = EXCLUDED.role`,
			id, storeID, u.storeRole); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func seedUnits(ctx context.Context, tx pgx.Tx, storeID int64) error {
	units := []struct {
		title       string
		description string
		measurement string
	}{
		{"Cotton T-shirt", "White, size M", "pieces"},
		{"Denim fabric", "Indigo, 150cm width", "meters"},
		{"Canvas tote", "Natural", "pieces"},
	}
	batch := &pgx.Batch{}
	for _, u := range units {
		batch.Queue(`
			INSERT INTO units (title, description, measurement, store_id)
			SELECT $1, $2, $3::unit_measurement, $4
			WHERE NOT EXISTS (SELECT 1 FROM units WHERE title = $1 AND store_id = $4)`,
			u.title, u.description, u.measurement, storeID)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func issueSessions(ctx context.Context, cfg *app.Config, ids map[string]int64) error {
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer client.Close()
	sessions := shared.NewSessionStore(client, cfg.SessionTTL)
	for _, u := range users {
		sess, err := sessions.Issue(ctx, ids[u.email])
		if err != nil {
			return err
		}
		fmt.Printf("   %-28s Bearer %s\n", u.email, sess.Token)
	}
	return nil
}

