package repository

import (
	"context"

	"go-pos-invoice/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type counterRepo struct {
	db *gorm.DB
}

func NewCounterRepo(db *gorm.DB) CounterRepository {
	return &counterRepo{db}
}

// Increment is one UPDATE ... RETURNING; the row lock it takes serialises
// concurrent callers, so no two of them can observe the same value.
func (r *counterRepo) Increment(ctx context.Context, name string) (int64, error) {
	var counter model.InvoiceCounter
	res := conn(ctx, r.db).Model(&counter).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "value"}}}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + ?", 1))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return counter.Value, nil
}

func (r *counterRepo) Ensure(ctx context.Context, name string, start int64) error {
	return translate(conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.InvoiceCounter{Name: name, Value: start}).Error)
}
