package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

func TestCounterStatements(t *testing.T) {
	db, rec := dryRunDB(t)
	repo := NewCounterRepo(db)
	ctx := context.Background()

	if err := repo.Ensure(ctx, "INV", 1000); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	assertSQL(t, rec.statement(t, `INSERT INTO "invoice_counters"`),
		"'INV'",
		"1000",
		"ON CONFLICT DO NOTHING",
	)

	// Nothing is updated in a dry run, so the missing-row path is taken.
	if _, err := repo.Increment(ctx, "INV"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("increment err = %v, want ErrNotFound", err)
	}
	assertSQL(t, rec.statement(t, `UPDATE "invoice_counters"`),
		"value + 1",
		"name = 'INV'",
		`RETURNING "value"`,
	)
}

func TestPostgresCounterIsContiguous(t *testing.T) {
	db := postgresDB(t)
	repo := NewCounterRepo(db)
	ctx := context.Background()
	name := "it-" + uniqueTag()

	if err := repo.Ensure(ctx, name, 1000); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.Ensure(ctx, name, 5); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	const n = 20
	values := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := repo.Increment(ctx, name)
			if err != nil {
				t.Errorf("increment: %v", err)
			}
			values[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		if v != int64(1001+i) {
			t.Fatalf("values = %v, want 1001..%d with no gaps or repeats", values, 1000+n)
		}
	}

	if _, err := repo.Increment(ctx, "it-missing-"+uniqueTag()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing counter err = %v, want ErrNotFound", err)
	}
}
