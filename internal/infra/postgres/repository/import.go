package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
	"github.com/aliskhannn/exam-simulation/internal/infra/postgres"
)

// ImportQuestions inserts questions in a single transaction. Any duplicate id
// rolls back the whole batch.
func ImportQuestions(ctx context.Context, pool *pgxpool.Pool, questions []*entities.Question) error {
	return postgres.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		repo := NewQuestionRepository(tx)
		for _, q := range questions {
			if err := repo.Insert(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
}
