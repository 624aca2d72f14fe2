package bootstrap

import (
	"context"
	"testing"

	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"

	"go.uber.org/zap"
)

func TestRunIsIdempotent(t *testing.T) {
	repos, _ := repository.NewMemoryRepositories()
	ctx := context.Background()
	opts := Options{AdminEmail: "admin@shop.test", AdminPassword: "pw", SeedDemoProducts: true}

	for i := 0; i < 2; i++ {
		if err := Run(ctx, repos, opts, zap.NewNop()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	admin, err := repos.Users.FindByEmail(ctx, "admin@shop.test")
	if err != nil {
		t.Fatalf("admin missing: %v", err)
	}
	if !admin.CheckPassword("pw") {
		t.Fatalf("admin password not set")
	}
	for _, p := range model.DefaultPrivileges {
		if !admin.HasPrivilege(p.Code) {
			t.Fatalf("admin lacks %s", p.Code)
		}
	}

	cashier, _ := repos.Roles.FindByCode(ctx, model.RoleCashier)
	if len(cashier.Privileges) != len(model.DefaultRolePrivileges[model.RoleCashier]) {
		t.Fatalf("cashier privileges = %d", len(cashier.Privileges))
	}

	products, _, _ := repos.Products.Search(ctx, repository.ProductQuery{})
	if len(products) != len(demoProducts) {
		t.Fatalf("products = %d, want %d", len(products), len(demoProducts))
	}

	// The counter was created once at its start value.
	n, err := repos.Counters.Increment(ctx, service.InvoiceCounterName)
	if err != nil || n != service.InvoiceCounterStart+1 {
		t.Fatalf("counter = %d, %v", n, err)
	}
}
