package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchstore/checkout-service/internal/inventory"
)

func TestParseStatus(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    Status
		wantErr bool
	}{
		"pending":          {in: "Pending", want: StatusPending},
		"completed":        {in: "Completed", want: StatusCompleted},
		"cancelled":        {in: "Cancelled", want: StatusCancelled},
		"legacy failed":    {in: "Failed", want: StatusCancelled},
		"unknown rejected": {in: "Shipped", wantErr: true},
		"empty rejected":   {in: "", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistory_FiltersByStatusAndUser(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Name: "diver watch", ImageURL: "img/p1.png", Price: 10, Quantity: 5},
	})
	repo := newFakeOrderRepo()
	now := time.Now()

	seed := []Order{
		{ID: "o1", UserID: "u1", Status: StatusCancelled, Total: 10, CreatedAt: now,
			Items: []Item{{ProductID: "p1", Quantity: 1}}},
		{ID: "o2", UserID: "u1", Status: StatusPending, Total: 20, CreatedAt: now.Add(time.Minute),
			Items: []Item{{ProductID: "p1", Quantity: 2}}},
		{ID: "o3", UserID: "u2", Status: StatusCancelled, Total: 30, CreatedAt: now,
			Items: []Item{{ProductID: "p1", Quantity: 3}}},
	}
	for i := range seed {
		require.NoError(t, repo.Create(context.Background(), &seed[i]))
	}

	q := NewQuery(repo, ledger)

	status := StatusCancelled
	views, err := q.History(context.Background(), "u1", &status)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "o1", views[0].ID)

	views, err = q.History(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Len(t, views, 2)
	// Newest first.
	assert.Equal(t, "o2", views[0].ID)
}

func TestHistory_JoinsProductDisplayFields(t *testing.T) {
	ledger := newFakeLedger(map[string]inventory.Product{
		"p1": {ID: "p1", Name: "diver watch", ImageURL: "img/p1.png", Price: 10, Quantity: 5},
	})
	repo := newFakeOrderRepo()
	o := Order{ID: "o1", UserID: "u1", Status: StatusPending, Total: 25,
		Items: []Item{{ProductID: "p1", Quantity: 2}, {ProductID: "deleted", Quantity: 1}}}
	require.NoError(t, repo.Create(context.Background(), &o))

	q := NewQuery(repo, ledger)

	views, err := q.History(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Items, 2)

	first := views[0].Items[0]
	require.NotNil(t, first.Product)
	assert.Equal(t, "diver watch", first.Product.Name)
	assert.Equal(t, "img/p1.png", first.Product.ImageURL)
	assert.Equal(t, 10.0, first.Product.Price)

	// A vanished product keeps its snapshot but carries no display detail.
	second := views[0].Items[1]
	assert.Equal(t, "deleted", second.ProductID)
	assert.Equal(t, 1, second.Quantity)
	assert.Nil(t, second.Product)
}
