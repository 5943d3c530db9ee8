// Package analytics is the node's optional audit sink: a
// postgres-backed log of every attached transaction and the running
// supply of every chroma, kept purely for external reporting and never
// consulted by the validator, checker, or attacher. Connect/InitSchema
// and the pool-behind-a-struct shape are adapted directly from the
// teacher's internal/db/postgres.go.
package analytics

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/pkg/yuv"
)

// Sink is the postgres audit sink.
type Sink struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool and verifies it with a ping.
func Connect(connStr string) (*Sink, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("analytics: connect: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("analytics: ping: %w", err)
	}
	log.Println("analytics: connected to postgres audit sink")
	return &Sink{pool: pool}, nil
}

// Close releases the pool.
func (s *Sink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, creating the sink's tables
// if they do not already exist.
func (s *Sink) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/analytics/schema.sql")
	if err != nil {
		return fmt.Errorf("analytics: read schema: %w", err)
	}
	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("analytics: apply schema: %w", err)
	}
	return nil
}

// Run subscribes to AttachedTxs and records each batch until ctx is
// cancelled. store is consulted read-only, for the chroma supply
// snapshot saved alongside each recorded tx that has a chroma.
func (s *Sink) Run(ctx context.Context, b *bus.Bus, st store.Store) {
	attached := bus.Subscribe[bus.AttachedTxs](b, 1000)
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-attached:
			if !ok {
				return
			}
			if err := s.recordBatch(ctx, st, batch.Txs); err != nil {
				log.Printf("analytics: record batch failed: %v", err)
			}
		}
	}
}

func (s *Sink) recordBatch(ctx context.Context, st store.Store, txs []*yuv.Tx) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, t := range txs {
		txid := [32]byte(t.Bitcoin.TxHash())
		chroma := summarize(t)

		_, err := tx.Exec(ctx, `
			INSERT INTO attached_txs (txid, kind, chroma)
			VALUES ($1, $2, $3)
			ON CONFLICT (txid) DO NOTHING`,
			txid[:], int16(t.Type), chromaBytesOrNil(chroma),
		)
		if err != nil {
			return fmt.Errorf("insert attached_txs: %w", err)
		}

		if chroma != nil {
			info, ok, err := st.ChromaInfo(ctx, *chroma)
			if err != nil {
				return err
			}
			if ok {
				if err := s.upsertSupply(ctx, tx, *chroma, info); err != nil {
					return err
				}
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *Sink) upsertSupply(ctx context.Context, tx pgx.Tx, chroma yuv.Chroma, info *yuv.ChromaInfo) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO chroma_supply (chroma, total_supply, max_supply, is_freezable, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chroma) DO UPDATE
		SET total_supply = EXCLUDED.total_supply,
		    max_supply = EXCLUDED.max_supply,
		    is_freezable = EXCLUDED.is_freezable,
		    updated_at = NOW()`,
		chroma[:], lumaDecimal(info.TotalSupply), lumaDecimal(info.MaxSupply()), info.IsFreezable(),
	)
	return err
}

// lumaDecimal renders a Luma's 128-bit amount as a base-10 string, the
// form postgres's NUMERIC column expects.
func lumaDecimal(l yuv.Luma) string {
	return new(big.Int).SetBytes(l.Amount[:]).String()
}

// summarize extracts the chroma a tx is most associated with, for the
// audit log's chroma column; a Transfer moving several chromas at once
// is logged under the first one encountered; tracking every chroma an
// output touches is a fuller job than the audit sink's single-row-per-tx
// shape can do, and isn't needed for its purpose.
func summarize(t *yuv.Tx) *yuv.Chroma {
	switch t.Type {
	case yuv.TxTypeIssue:
		for _, proof := range t.Issue.OutputProofs {
			if !proof.IsEmptyPixelKind() {
				c := proof.Pixel.Chroma
				return &c
			}
		}
	case yuv.TxTypeTransfer:
		for _, proof := range t.Transfer.OutputProofs {
			if !proof.IsEmptyPixelKind() {
				c := proof.Pixel.Chroma
				return &c
			}
		}
	case yuv.TxTypeAnnouncement:
		if t.Announce.Chroma != nil {
			c := t.Announce.Chroma.Chroma
			return &c
		}
		if t.Announce.Issue != nil {
			c := t.Announce.Issue.Chroma
			return &c
		}
	}
	return nil
}

func chromaBytesOrNil(c *yuv.Chroma) []byte {
	if c == nil {
		return nil
	}
	return c[:]
}
