// Package bootstrap seeds the data a fresh store needs before serving.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Options struct {
	AdminEmail       string
	AdminPassword    string
	SeedDemoProducts bool
}

// Run is idempotent: every step only creates what is missing.
func Run(ctx context.Context, repos repository.Repositories, opts Options, log *zap.Logger) error {
	if err := repos.Privileges.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := repos.Roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := assignRolePrivileges(ctx, repos, log); err != nil {
		return err
	}
	if err := ensureAdmin(ctx, repos, opts, log); err != nil {
		return err
	}
	if err := repos.Counters.Ensure(ctx, service.InvoiceCounterName, service.InvoiceCounterStart); err != nil {
		return fmt.Errorf("seed invoice counter: %w", err)
	}
	if opts.SeedDemoProducts {
		if err := seedProducts(ctx, repos.Products, log); err != nil {
			return err
		}
	}
	return nil
}

func assignRolePrivileges(ctx context.Context, repos repository.Repositories, log *zap.Logger) error {
	all, err := repos.Privileges.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load privileges: %w", err)
	}
	for code, wanted := range model.DefaultRolePrivileges {
		role, err := repos.Roles.FindByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("load role %s: %w", code, err)
		}
		if len(role.Privileges) > 0 {
			continue
		}
		privs := all
		if wanted != nil {
			if privs, err = repos.Privileges.FindByCodes(ctx, wanted); err != nil {
				return fmt.Errorf("load privileges for %s: %w", code, err)
			}
		}
		if err := repos.Roles.ReplacePrivileges(ctx, code, privs); err != nil {
			return fmt.Errorf("assign privileges to %s: %w", code, err)
		}
		log.Info("role privileges assigned", zap.String("role", code), zap.Int("privileges", len(privs)))
	}
	return nil
}

func ensureAdmin(ctx context.Context, repos repository.Repositories, opts Options, log *zap.Logger) error {
	_, err := repos.Users.FindByEmail(ctx, opts.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load admin user: %w", err)
	}

	role, err := repos.Roles.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}
	admin := &model.User{
		Email:    opts.AdminEmail,
		FullName: "Master Administrator",
		RoleID:   &role.ID,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(opts.AdminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("admin user created", zap.String("email", opts.AdminEmail), zap.String("role", model.RoleMasterAdmin))
	return nil
}

var demoProducts = []model.Product{
	{SKU: "BEV-001", Name: "Mineral Water 600ml", Unit: "bottle", CostPrice: decimal.RequireFromString("0.40"), SellingPrice: decimal.RequireFromString("0.75"), Stock: 200},
	{SKU: "BEV-002", Name: "Iced Coffee", Unit: "cup", CostPrice: decimal.RequireFromString("1.10"), SellingPrice: decimal.RequireFromString("2.50"), Stock: 80},
	{SKU: "SNK-001", Name: "Potato Chips", Unit: "pack", CostPrice: decimal.RequireFromString("0.90"), SellingPrice: decimal.RequireFromString("1.60"), Stock: 120},
	{SKU: "SNK-002", Name: "Chocolate Bar", Unit: "pcs", CostPrice: decimal.RequireFromString("0.70"), SellingPrice: decimal.RequireFromString("1.25"), Stock: 150},
}

func seedProducts(ctx context.Context, products repository.ProductRepository, log *zap.Logger) error {
	created := 0
	for _, p := range demoProducts {
		if _, err := products.FindBySKU(ctx, p.SKU); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("look up %s: %w", p.SKU, err)
		}
		p.CreatedBy = "system"
		if err := products.Create(ctx, &p); err != nil {
			return fmt.Errorf("create %s: %w", p.SKU, err)
		}
		created++
	}
	if created > 0 {
		log.Info("demo products seeded", zap.Int("count", created))
	}
	return nil
}
