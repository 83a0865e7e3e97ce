// Package store persists evaluations to Postgres. The store is
// optional: callers that run without a database hold a nil *DB and skip
// recording.
package store

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Migrate applies the embedded schema. Every statement is idempotent,
// so running it on startup is safe.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// Round is one persisted evaluation.
type Round struct {
	ID              int64
	Session         string
	Seen            map[string]int
	Hand            []int
	Bank            int
	BustProbability float64
	ExpectedValue   float64
	ExpectedBank    float64
	Recommendation  string
	CreatedAt       time.Time
}

// InsertRound records an evaluation and returns its id.
func (db *DB) InsertRound(ctx context.Context, r Round) (int64, error) {
	seen := r.Seen
	if seen == nil {
		seen = map[string]int{}
	}
	hand := r.Hand
	if hand == nil {
		hand = []int{}
	}

	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO rounds(
            session, seen, hand, bank,
            bust_probability, expected_value, expected_bank,
            recommendation
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id
    `,
		r.Session, seen, hand, r.Bank,
		r.BustProbability, r.ExpectedValue, r.ExpectedBank,
		r.Recommendation,
	).Scan(&id)
	return id, err
}

// RecentRounds returns the newest evaluations, most recent first.
func (db *DB) RecentRounds(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := db.Query(ctx, `
        SELECT id, session, seen, hand, bank,
               bust_probability, expected_value, expected_bank,
               recommendation, created_at
          FROM rounds
         ORDER BY id DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Round, 0, limit)
	for rows.Next() {
		var r Round
		if err := rows.Scan(
			&r.ID, &r.Session, &r.Seen, &r.Hand, &r.Bank,
			&r.BustProbability, &r.ExpectedValue, &r.ExpectedBank,
			&r.Recommendation, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
