package cartview

import (
	"math"
	"testing"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

func TestSubtotal(t *testing.T) {
	cases := []struct {
		name  string
		items []domain.CartItem
		want  float64
	}{
		{
			name:  "empty cart",
			items: nil,
			want:  0,
		},
		{
			name: "two items",
			items: []domain.CartItem{
				{ID: "a", Price: 10, Quantity: 2},
				{ID: "b", Price: 5, Quantity: 1},
			},
			want: 25,
		},
		{
			name: "absent quantity counts as one",
			items: []domain.CartItem{
				{ID: "p1", Price: 100},
				{ID: "p2", Price: 40, Quantity: 3},
			},
			want: 220,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Subtotal(tc.items); got != tc.want {
				t.Fatalf("expected subtotal %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSubtotal_PropagatesNaN(t *testing.T) {
	got := Subtotal([]domain.CartItem{{ID: "a", Price: math.NaN(), Quantity: 1}})
	if !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

func TestTotalItemCount(t *testing.T) {
	items := []domain.CartItem{
		{ID: "a", Quantity: 2},
		{ID: "b"},
		{ID: "c", Quantity: 4},
	}

	if got := TotalItemCount(items); got != 7 {
		t.Fatalf("expected 7 items, got %d", got)
	}
	if got := TotalItemCount(nil); got != 0 {
		t.Fatalf("expected 0 items for empty cart, got %d", got)
	}
}

func TestView_MemoizesByRevision(t *testing.T) {
	view := New()
	items := []domain.CartItem{{ID: "a", Price: 10, Quantity: 2}}

	first := view.Totals(cart.Snapshot{Items: items, Revision: 1})
	second := view.Totals(cart.Snapshot{Items: items, Revision: 1})

	if first != second {
		t.Fatalf("expected equal totals, got %+v and %+v", first, second)
	}
	if view.Computes() != 1 {
		t.Fatalf("expected 1 compute, got %d", view.Computes())
	}
}

func TestView_NewRevisionRecomputesEvenIfEqual(t *testing.T) {
	view := New()
	items := []domain.CartItem{{ID: "a", Price: 10, Quantity: 2}}

	view.Totals(cart.Snapshot{Items: items, Revision: 1})
	got := view.Totals(cart.Snapshot{Items: append([]domain.CartItem(nil), items...), Revision: 2})

	if view.Computes() != 2 {
		t.Fatalf("expected 2 computes, got %d", view.Computes())
	}
	if got.Subtotal != 20 || got.TotalItemCount != 2 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestView_EmptySnapshot(t *testing.T) {
	got := New().Totals(cart.Snapshot{})

	if got != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}
