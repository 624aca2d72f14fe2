package repository

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestProductDecrementIsGuardedUpdate(t *testing.T) {
	db, rec := dryRunDB(t)
	repo := NewProductRepo(db)
	id := uuid.New()

	ok, err := repo.DecrementStock(context.Background(), id, 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatal("dry run touched no rows, decrement must report false")
	}

	sql := rec.statement(t, `UPDATE "products"`)
	assertSQL(t, sql,
		"id = '"+id.String()+"'",
		"stock >= 3",
		"stock - 3",
		`"products"."deleted_at" IS NULL`,
	)
}

func TestProductSearchStatements(t *testing.T) {
	db, rec := dryRunDB(t)
	repo := NewProductRepo(db)

	products, total, err := repo.Search(context.Background(), ProductQuery{Keyword: " a_b% ", Offset: 40, Limit: 20})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if products == nil || len(products) != 0 || total != 0 {
		t.Fatalf("dry run result = %v, %d", products, total)
	}

	match := `(name ILIKE '%a\_b\%%' OR sku ILIKE '%a\_b\%%')`
	assertSQL(t, rec.statement(t, "count(*)"), match, `"products"."deleted_at" IS NULL`)
	assertSQL(t, rec.statement(t, "ORDER BY"),
		match,
		"ORDER BY created_at DESC, sku ASC",
		"LIMIT 20 OFFSET 40",
	)
}

func TestProductSearchWithoutKeyword(t *testing.T) {
	db, rec := dryRunDB(t)
	repo := NewProductRepo(db)

	if _, _, err := repo.Search(context.Background(), ProductQuery{}); err != nil {
		t.Fatalf("search: %v", err)
	}
	sql := rec.statement(t, "ORDER BY")
	for _, unwanted := range []string{"ILIKE", "LIMIT", "OFFSET"} {
		if strings.Contains(sql, unwanted) {
			t.Errorf("unfiltered search %q should not contain %q", sql, unwanted)
		}
	}
}

func TestPostgresConcurrentDecrements(t *testing.T) {
	db := postgresDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	tag := uniqueTag()

	p := &model.Product{SKU: "it-" + tag, Name: tag, SellingPrice: decimal.NewFromInt(4), Stock: 5}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create product: %v", err)
	}

	start := make(chan struct{})
	results := make(chan bool, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := repo.DecrementStock(ctx, p.ID, 3)
			if err != nil {
				t.Errorf("decrement: %v", err)
			}
			results <- ok
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("%d decrements of 3 succeeded on stock 5, want 1", wins)
	}
	got, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("stock = %d, want 2", got.Stock)
	}
}

func TestPostgresSearchTreatsWildcardsLiterally(t *testing.T) {
	db := postgresDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	tag := uniqueTag()

	for i, name := range []string{tag + "a_b", tag + "axb"} {
		p := &model.Product{SKU: "it-" + tag + "-" + string(rune('1'+i)), Name: name, SellingPrice: decimal.NewFromInt(1)}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	products, total, err := repo.Search(ctx, ProductQuery{Keyword: tag + "a_b"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(products) != 1 || products[0].Name != tag+"a_b" {
		t.Fatalf("search for a_b matched %d rows: %+v", total, products)
	}

	_, total, err = repo.Search(ctx, ProductQuery{Keyword: strings.ToUpper(tag)})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 {
		t.Fatalf("case-insensitive search matched %d rows, want 2", total)
	}
}
