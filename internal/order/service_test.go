package order

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchstore/checkout-service/internal/inventory"
)

type fakeLedger struct {
	mu       sync.Mutex
	products map[string]inventory.Product
}

func newFakeLedger(initial map[string]inventory.Product) *fakeLedger {
	cp := make(map[string]inventory.Product, len(initial))
	for k, v := range initial {
		cp[k] = v
	}
	return &fakeLedger{products: cp}
}

func (f *fakeLedger) Reserve(ctx context.Context, productID string, quantity int) (inventory.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return inventory.Product{}, fmt.Errorf("product %s: %w", productID, inventory.ErrNotFound)
	}
	if p.Quantity < quantity {
		return inventory.Product{}, fmt.Errorf("product %s: %w", productID, inventory.ErrInsufficientStock)
	}
	p.Quantity -= quantity
	f.products[productID] = p
	return p, nil
}

func (f *fakeLedger) Release(ctx context.Context, productID string, quantity int) (inventory.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return inventory.Product{}, fmt.Errorf("product %s: %w", productID, inventory.ErrNotFound)
	}
	p.Quantity += quantity
	f.products[productID] = p
	return p, nil
}

func (f *fakeLedger) Get(ctx context.Context, productID string) (inventory.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return inventory.Product{}, fmt.Errorf("product %s: %w", productID, inventory.ErrNotFound)
	}
	return p, nil
}

func (f *fakeLedger) quantity(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].Quantity
}

func (f *fakeLedger) drop(productID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, productID)
}

type fakeCarts struct {
	mu      sync.Mutex
	deleted []string // "userID/productID"
	err     error
}

func (f *fakeCarts) DeleteFor(ctx context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID+"/"+productID)
	return nil
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]Order
	seq       int
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", f.seq)
	}
	f.orders[o.ID] = *o
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (f *fakeOrderRepo) SetStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeOrderRepo) ListByUser(ctx context.Context, userID string, status *Status) ([]Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Order
	for _, o := range f.orders {
		if o.UserID != userID {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type recordPublisher struct {
	mu        sync.Mutex
	placed    []string
	cancelled []string
}

func (p *recordPublisher) OrderPlaced(ctx context.Context, o *Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, o.ID)
	return nil
}

func (p *recordPublisher) OrderCancelled(ctx context.Context, o *Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, o.ID)
	return nil
}

func testEngine(ledger *fakeLedger) (*Engine, *fakeOrderRepo, *fakeCarts, *recordPublisher) {
	repo := newFakeOrderRepo()
	carts := &fakeCarts{}
	pub := &recordPublisher{}
	logger := log.New(io.Discard, "", 0)
	return NewEngine(repo, ledger, carts, pub, logger), repo, carts, pub
}

func TestPlace_ComputesTotalFromReservationPrices(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Name: "diver watch", Price: 10, Quantity: 5},
		"p2": {ID: "p2", Name: "chrono", Price: 5, Quantity: 5},
	})
	engine, _, carts, pub := testEngine(ledger)

	receipt, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 25.0, receipt.Order.Total)
	assert.Equal(t, StatusPending, receipt.Order.Status)
	require.Len(t, receipt.Order.Items, 2)
	assert.Equal(t, Item{ProductID: "p1", Quantity: 2}, receipt.Order.Items[0])

	require.Len(t, receipt.Products, 2)
	assert.Equal(t, 3, receipt.Products[0].Quantity)
	assert.Equal(t, 4, receipt.Products[1].Quantity)

	assert.Equal(t, []string{"u1/p1", "u1/p2"}, carts.deleted)
	assert.Equal(t, []string{receipt.Order.ID}, pub.placed)
}

func TestPlace_RejectsBadQuantityBeforeTouchingStock(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{"p1": {ID: "p1", Quantity: 5}})
	engine, _, _, _ := testEngine(ledger)

	_, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p1", Quantity: 0},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 5, ledger.quantity("p1"))

	_, err = engine.Place(context.Background(), "u1", nil)
	require.ErrorIs(t, err, ErrNoItems)
}

func TestPlace_UnknownProductCompensatesEarlierLines(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Price: 10, Quantity: 5},
	})
	engine, repo, _, _ := testEngine(ledger)

	_, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "ghost", Quantity: 1},
	})
	require.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")

	// The p1 reservation was rolled back and no order was written.
	assert.Equal(t, 5, ledger.quantity("p1"))
	orders, _ := repo.ListByUser(context.Background(), "u1", nil)
	assert.Empty(t, orders)
}

func TestPlace_InsufficientStockCompensatesEarlierLines(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Price: 10, Quantity: 5},
		"p2": {ID: "p2", Price: 5, Quantity: 1},
	})
	engine, _, _, _ := testEngine(ledger)

	_, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 2},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 5, ledger.quantity("p1"))
	assert.Equal(t, 1, ledger.quantity("p2"))
}

func TestPlace_CreateFailureCompensates(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{"p1": {ID: "p1", Price: 10, Quantity: 5}})
	engine, repo, _, pub := testEngine(ledger)
	repo.createErr = assert.AnError

	_, err := engine.Place(context.Background(), "u1", []ItemRequest{{ProductID: "p1", Quantity: 2}})
	require.Error(t, err)
	assert.Equal(t, 5, ledger.quantity("p1"))
	assert.Empty(t, pub.placed)
}

func TestCancel_RestocksAndFlipsStatus(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Price: 10, Quantity: 5},
		"p2": {ID: "p2", Price: 5, Quantity: 5},
	})
	engine, repo, _, pub := testEngine(ledger)

	receipt, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)

	res, err := engine.Cancel(context.Background(), receipt.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Order.Status)
	assert.Equal(t, 5, ledger.quantity("p1"))
	assert.Equal(t, 5, ledger.quantity("p2"))
	require.Len(t, res.Released, 2)
	assert.Equal(t, []string{receipt.Order.ID}, pub.cancelled)

	stored, err := repo.GetByID(context.Background(), receipt.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)

	// A second cancellation fails and must not credit stock again.
	_, err = engine.Cancel(context.Background(), receipt.Order.ID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 5, ledger.quantity("p1"))
	assert.Equal(t, 5, ledger.quantity("p2"))
}

func TestCancel_UnknownOrder(t *testing.T) {
	engine, _, _, _ := testEngine(newFakeLedger(nil))

	_, err := engine.Cancel(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_CompletedOrderIsTerminal(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{"p1": {ID: "p1", Price: 10, Quantity: 5}})
	engine, repo, _, _ := testEngine(ledger)

	receipt, err := engine.Place(context.Background(), "u1", []ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	ok, err := repo.SetStatus(context.Background(), receipt.Order.ID, StatusPending, StatusCompleted)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = engine.Cancel(context.Background(), receipt.Order.ID)
	require.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, 4, ledger.quantity("p1"))
}

func TestCancel_MissingProductLeavesStatusFlipped(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Price: 10, Quantity: 5},
		"p2": {ID: "p2", Price: 5, Quantity: 5},
	})
	engine, repo, _, _ := testEngine(ledger)

	receipt, err := engine.Place(context.Background(), "u1", []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	require.NoError(t, err)

	ledger.drop("p2")

	_, err = engine.Cancel(context.Background(), receipt.Order.ID)
	require.ErrorIs(t, err, inventory.ErrNotFound)

	// At-least-the-status-changes: the flip persists and the first item
	// was already credited back.
	stored, err := repo.GetByID(context.Background(), receipt.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Equal(t, 5, ledger.quantity("p1"))
}

// Many users racing for the same product: with stock 17 and uniform
// requests of 5, exactly three placements may win and stock never goes
// negative.
func TestPlace_ConcurrentPlacementsNeverOversell(t *testing.T) {
	const stock, per, callers = 17, 5, 20
	ledger := newFakeLedger(map[string]inventory.Product{"p1": {ID: "p1", Price: 10, Quantity: stock}})
	engine, repo, _, _ := testEngine(ledger)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			_, errs[i] = engine.Place(context.Background(), user, []ItemRequest{{ProductID: "p1", Quantity: per}})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, stock/per, won)
	assert.Equal(t, stock%per, ledger.quantity("p1"))

	total := 0
	for i := 0; i < callers; i++ {
		orders, err := repo.ListByUser(context.Background(), fmt.Sprintf("u%d", i), nil)
		require.NoError(t, err)
		total += len(orders)
	}
	assert.Equal(t, won, total)
}
