package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type txKey struct{}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (m *gormTxManager) Atomic() bool { return true }

// conn returns the transaction carried by ctx, or the base handle bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// NewGormRepositories wires every repository to the same database handle.
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Products:   NewProductRepo(db),
		Invoices:   NewInvoiceRepo(db),
		Counters:   NewCounterRepo(db),
		Users:      NewUserRepo(db),
		Roles:      NewRoleRepo(db),
		Privileges: NewPrivilegeRepo(db),
		Tx:         NewTxManager(db),
	}
}
