package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go-pos-invoice/internal/model"

	"github.com/google/uuid"
)

// MemoryStore is a process-local backend used for development and tests.
// Each conditional primitive (stock decrement, counter increment) runs
// under the store's lock, which makes the store itself the atomic layer.
//
// Writes made through a ctx from RunInTx land in a per-attempt overlay and
// reach the maps in one locked step when the attempt succeeds. Transactions
// run one at a time; readers only ever see committed state.
type MemoryStore struct {
	mu         sync.RWMutex
	txSem      chan struct{}
	products   map[uuid.UUID]model.Product
	movements  []model.StockMovement
	invoices   map[uuid.UUID]model.Invoice
	counters   map[string]int64
	users      map[uuid.UUID]model.User
	roles      map[string]model.Role
	privileges []model.Privilege
	nextRoleID uint
	nextPrivID uint
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[uuid.UUID]model.Product),
		invoices:   make(map[uuid.UUID]model.Invoice),
		counters:   make(map[string]int64),
		users:      make(map[uuid.UUID]model.User),
		roles:      make(map[string]model.Role),
		txSem:      make(chan struct{}, 1),
		nextRoleID: 1,
		nextPrivID: 1,
		now:        time.Now,
	}
}

// NewMemoryRepositories wires every repository to one fresh MemoryStore.
func NewMemoryRepositories() (Repositories, *MemoryStore) {
	store := NewMemoryStore()
	return Repositories{
		Products:   &memoryProducts{store},
		Invoices:   &memoryInvoices{store},
		Counters:   &memoryCounters{store},
		Users:      &memoryUsers{store},
		Roles:      &memoryRoles{store},
		Privileges: &memoryPrivileges{store},
		Tx:         &memoryTx{store},
	}, store
}

// InvoiceCount counts every committed invoice, staged ones included.
func (m *MemoryStore) InvoiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.invoices)
}

// Movements returns a copy of the stock movement journal.
func (m *MemoryStore) Movements() []model.StockMovement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.StockMovement(nil), m.movements...)
}

func (m *MemoryStore) roleByID(id *uint) *model.Role {
	if id == nil {
		return nil
	}
	for _, r := range m.roles {
		if r.ID == *id {
			role := r
			role.Privileges = append([]model.Privilege(nil), r.Privileges...)
			return &role
		}
	}
	return nil
}

func copyInvoice(inv model.Invoice) model.Invoice {
	inv.Items = append([]model.LineItem(nil), inv.Items...)
	return inv
}

// ---- transactions ----

var ErrTxConflict = errors.New("concurrent write outside transaction")

type memTxKey struct{}

// memTx holds the writes of one RunInTx attempt.
type memTx struct {
	mu          sync.Mutex
	stock       map[uuid.UUID]int
	invoices    map[uuid.UUID]model.Invoice
	counters    map[string]int64
	counterBase map[string]int64
	movements   []model.StockMovement
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

type memoryTx struct{ s *MemoryStore }

func (t *memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	select {
	case t.s.txSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-t.s.txSem }()

	tx := &memTx{
		stock:       make(map[uuid.UUID]int),
		invoices:    make(map[uuid.UUID]model.Invoice),
		counters:    make(map[string]int64),
		counterBase: make(map[string]int64),
	}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.s.apply(tx)
}

func (t *memoryTx) Atomic() bool { return true }

// apply publishes a finished overlay. Nothing is written unless every
// stock delta still leaves stock non-negative and no counter moved
// underneath the attempt.
func (m *MemoryStore) apply(tx *memTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, delta := range tx.stock {
		p, ok := m.products[id]
		if !ok || p.Stock+delta < 0 {
			return ErrTxConflict
		}
	}
	for name := range tx.counters {
		v, exists := m.counters[name]
		base, based := tx.counterBase[name]
		if exists != based || v != base {
			return ErrTxConflict
		}
	}
	for _, inv := range tx.invoices {
		if m.numberTaken(inv) {
			return ErrDuplicate
		}
	}

	now := m.now()
	for id, delta := range tx.stock {
		if delta == 0 {
			continue
		}
		p := m.products[id]
		p.Stock += delta
		p.UpdatedAt = now
		m.products[id] = p
	}
	for name, v := range tx.counters {
		m.counters[name] = v
	}
	for id, inv := range tx.invoices {
		m.invoices[id] = inv
	}
	for _, mv := range tx.movements {
		mv.CreatedAt, mv.UpdatedAt = now, now
		m.movements = append(m.movements, mv)
	}
	return nil
}

func (m *MemoryStore) numberTaken(inv model.Invoice) bool {
	for _, existing := range m.invoices {
		if existing.ID != inv.ID && (existing.InvoiceNumber == inv.InvoiceNumber || existing.SequenceNo == inv.SequenceNo) {
			return true
		}
	}
	return false
}

// ---- products ----

type memoryProducts struct{ s *MemoryStore }

func (r *memoryProducts) Create(ctx context.Context, p *model.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.SKU = model.NormalizeSKU(p.SKU)
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.products[p.ID] = *p
	return nil
}

func (r *memoryProducts) Search(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.Keyword))
	matched := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].SKU < matched[j].SKU
	})

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return []model.Product{}, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (r *memoryProducts) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx := txFrom(ctx)
	if tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if tx != nil {
		p.Stock += tx.stock[id]
	}
	return &p, nil
}

func (r *memoryProducts) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sku = model.NormalizeSKU(sku)
	for _, p := range r.s.products {
		if p.SKU == sku {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryProducts) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		r.s.mu.RLock()
		p, ok := r.s.products[id]
		r.s.mu.RUnlock()
		if !ok || p.Stock+tx.stock[id] < qty {
			return false, nil
		}
		tx.stock[id] -= qty
		return true, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return true, nil
}

func (r *memoryProducts) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		r.s.mu.RLock()
		_, ok := r.s.products[id]
		r.s.mu.RUnlock()
		if !ok {
			return ErrNotFound
		}
		tx.stock[id] += qty
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock += qty
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r *memoryProducts) RecordMovements(ctx context.Context, movements []model.StockMovement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		for _, mv := range movements {
			if mv.ID == uuid.Nil {
				mv.ID = uuid.New()
			}
			tx.movements = append(tx.movements, mv)
		}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for _, mv := range movements {
		if mv.ID == uuid.Nil {
			mv.ID = uuid.New()
		}
		mv.CreatedAt, mv.UpdatedAt = now, now
		r.s.movements = append(r.s.movements, mv)
	}
	return nil
}

// ---- invoices ----

type memoryInvoices struct{ s *MemoryStore }

func (r *memoryInvoices) Create(ctx context.Context, inv *model.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := txFrom(ctx)
	if tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		for _, pending := range tx.invoices {
			if pending.InvoiceNumber == inv.InvoiceNumber || pending.SequenceNo == inv.SequenceNo {
				return ErrDuplicate
			}
		}
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	} else {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	if r.s.numberTaken(*inv) {
		return ErrDuplicate
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = r.s.now()
	}
	inv.UpdatedAt = inv.CreatedAt
	inv.Staged = true
	for i := range inv.Items {
		if inv.Items[i].ID == uuid.Nil {
			inv.Items[i].ID = uuid.New()
		}
		inv.Items[i].InvoiceID = inv.ID
		inv.Items[i].Position = i
	}
	if tx != nil {
		tx.invoices[inv.ID] = copyInvoice(*inv)
		return nil
	}
	r.s.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (r *memoryInvoices) Publish(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		inv, ok := tx.invoices[id]
		if !ok || !inv.Staged {
			return ErrNotFound
		}
		inv.Staged = false
		tx.invoices[id] = inv
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok || !inv.Staged {
		return ErrNotFound
	}
	inv.Staged = false
	r.s.invoices[id] = inv
	return nil
}

func (r *memoryInvoices) Discard(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		if inv, ok := tx.invoices[id]; ok && inv.Staged {
			delete(tx.invoices, id)
		}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv, ok := r.s.invoices[id]; ok && inv.Staged {
		delete(r.s.invoices, id)
	}
	return nil
}

func (r *memoryInvoices) resolveCreator(inv *model.Invoice) {
	if inv.CreatorID == nil {
		return
	}
	if u, ok := r.s.users[*inv.CreatorID]; ok {
		inv.Creator = &model.User{BaseModel: model.BaseModel{ID: u.ID}, FullName: u.FullName}
	}
}

func (r *memoryInvoices) Find(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.CustomerName))
	out := make([]model.Invoice, 0)
	for _, inv := range r.s.invoices {
		if inv.Staged {
			continue
		}
		if filter.StartDate != nil && inv.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && inv.CreatedAt.After(*filter.EndDate) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(inv.CustomerName), needle) {
			continue
		}
		found := copyInvoice(inv)
		r.resolveCreator(&found)
		out = append(out, found)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SequenceNo > out[j].SequenceNo
	})
	return out, nil
}

func (r *memoryInvoices) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.invoices[id]
	if !ok || inv.Staged {
		return nil, ErrNotFound
	}
	found := copyInvoice(inv)
	for i := range found.Items {
		if p, ok := r.s.products[found.Items[i].ProductID]; ok {
			found.Items[i].Product = &model.Product{
				BaseModel:   model.BaseModel{ID: p.ID},
				SKU:         p.SKU,
				Description: p.Description,
			}
		}
	}
	r.resolveCreator(&found)
	return &found, nil
}

// ---- counters ----

type memoryCounters struct{ s *MemoryStore }

func (r *memoryCounters) Increment(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		v, ok := tx.counters[name]
		if !ok {
			r.s.mu.RLock()
			v, ok = r.s.counters[name]
			r.s.mu.RUnlock()
			if !ok {
				return 0, ErrNotFound
			}
			tx.counterBase[name] = v
		}
		v++
		tx.counters[name] = v
		return v, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.counters[name]
	if !ok {
		return 0, ErrNotFound
	}
	v++
	r.s.counters[name] = v
	return v, nil
}

func (r *memoryCounters) Ensure(ctx context.Context, name string, start int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		defer tx.mu.Unlock()
		if _, ok := tx.counters[name]; ok {
			return nil
		}
		r.s.mu.RLock()
		_, ok := r.s.counters[name]
		r.s.mu.RUnlock()
		if !ok {
			tx.counters[name] = start
		}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.counters[name]; !ok {
		r.s.counters[name] = start
	}
	return nil
}

// ---- users ----

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) withRole(u model.User) *model.User {
	u.Role = r.s.roleByID(u.RoleID)
	return &u
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return r.withRole(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.withRole(u), nil
}

func (r *memoryUsers) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	stored.Role = nil
	r.s.users[user.ID] = stored
	return nil
}

func (r *memoryUsers) update(ctx context.Context, id uuid.UUID, apply func(*model.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrNotFound
	}
	apply(&u)
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

func (r *memoryUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	return r.update(ctx, userID, func(u *model.User) { u.Password = hashedPassword })
}

func (r *memoryUsers) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.update(ctx, userID, func(u *model.User) { u.TokenVersion = version })
}

// ---- roles & privileges ----

type memoryRoles struct{ s *MemoryStore }

func (r *memoryRoles) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[code]
	if !ok {
		return nil, ErrNotFound
	}
	role.Privileges = append([]model.Privilege(nil), role.Privileges...)
	return &role, nil
}

func (r *memoryRoles) SeedDefaults(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, role := range model.DefaultRoles {
		if _, ok := r.s.roles[role.Code]; ok {
			continue
		}
		role.ID = r.s.nextRoleID
		r.s.nextRoleID++
		r.s.roles[role.Code] = role
	}
	return nil
}

func (r *memoryRoles) ReplacePrivileges(ctx context.Context, roleCode string, privileges []model.Privilege) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[roleCode]
	if !ok {
		return ErrNotFound
	}
	role.Privileges = append([]model.Privilege(nil), privileges...)
	r.s.roles[roleCode] = role
	return nil
}

type memoryPrivileges struct{ s *MemoryStore }

func (r *memoryPrivileges) FindAll(ctx context.Context) ([]model.Privilege, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]model.Privilege(nil), r.s.privileges...), nil
}

func (r *memoryPrivileges) FindByCodes(ctx context.Context, codes []string) ([]model.Privilege, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []model.Privilege
	for _, p := range r.s.privileges {
		if want[p.Code] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryPrivileges) SeedDefaults(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range model.DefaultPrivileges {
		exists := false
		for _, existing := range r.s.privileges {
			if existing.Code == p.Code {
				exists = true
				break
			}
		}
		if !exists {
			p.ID = r.s.nextPrivID
			r.s.nextPrivID++
			r.s.privileges = append(r.s.privileges, p)
		}
	}
	return nil
}
