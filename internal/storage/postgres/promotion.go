package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/promotion"
)

const (
	listPromotionsSQL = `SELECT id, code, name, description, promotion_type, proportion_type,
		discount_amount, start_date, end_date, min_order_value, product_ids, used
		FROM promotions ORDER BY created_at, id`

	upsertPromotionSQL = `INSERT INTO promotions
		(id, code, name, description, promotion_type, proportion_type,
		 discount_amount, start_date, end_date, min_order_value, product_ids, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			promotion_type = EXCLUDED.promotion_type,
			proportion_type = EXCLUDED.proportion_type,
			discount_amount = EXCLUDED.discount_amount,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			min_order_value = EXCLUDED.min_order_value,
			product_ids = EXCLUDED.product_ids,
			used = EXCLUDED.used`

	listPromotionCodesSQL = `SELECT code FROM promotions`

	existingPromotionCodesSQL = `SELECT code FROM promotions WHERE code = ANY($1)`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// List returns every promotion, normalized, oldest first.
func (r *PromotionRepository) List(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// Upsert inserts or updates promotions keyed by code, in one transaction.
func (r *PromotionRepository) Upsert(ctx context.Context, promos []promotion.Promotion) error {
	if len(promos) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range promos {
			ids := p.ProductIDs
			if ids == nil {
				ids = []string{}
			}
			batch.Queue(upsertPromotionSQL,
				p.ID, p.Code, p.Name, p.Description, string(p.Type), string(p.Proportion),
				p.DiscountAmount, p.StartDate, p.EndDate, p.MinOrderValue, ids, p.Used,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting promotions: %w", err)
		}
		return nil
	})
}

// Codes returns every stored promotion code.
func (r *PromotionRepository) Codes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listPromotionCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotion codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ExistingCodes returns the subset of codes already stored.
func (r *PromotionRepository) ExistingCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, existingPromotionCodesSQL, codes)
	if err != nil {
		return nil, fmt.Errorf("checking promotion codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p          promotion.Promotion
		typ        string
		proportion string
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &typ, &proportion,
		&p.DiscountAmount, &p.StartDate, &p.EndDate, &p.MinOrderValue, &p.ProductIDs, &p.Used,
	)
	if err != nil {
		return promotion.Promotion{}, err
	}
	p.Type = promotion.Type(typ)
	p.Proportion = promotion.Proportion(proportion)
	return promotion.Normalize(p), nil
}
