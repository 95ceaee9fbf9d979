// Package cartview выводит агрегаты корзины из зафиксированного состояния.
package cartview

import (
	"sync"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// Totals: агрегаты корзины.
type Totals struct {
	Subtotal       float64
	TotalItemCount int
}

// Subtotal считает сумму price * quantity; отсутствующее количество считается за 1.
func Subtotal(items []domain.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.EffectiveQuantity())
	}
	return total
}

// TotalItemCount считает общее количество единиц товара.
func TotalItemCount(items []domain.CartItem) int {
	var total int
	for _, item := range items {
		total += item.EffectiveQuantity()
	}
	return total
}

// Compute считает оба агрегата без мемоизации.
func Compute(items []domain.CartItem) Totals {
	return Totals{
		Subtotal:       Subtotal(items),
		TotalItemCount: TotalItemCount(items),
	}
}

// View мемоизирует агрегаты по ревизии снапшота. Новая ревизия всегда
// пересчитывается, даже если позиции структурно не изменились.
// View привязан к одному Store: ревизии разных Store не сравнимы.
type View struct {
	mu       sync.Mutex
	revision uint64
	valid    bool
	totals   Totals
	computes int
}

// New создаёт пустой View.
func New() *View {
	return &View{}
}

// Totals возвращает агрегаты снапшота.
func (v *View) Totals(snapshot cart.Snapshot) Totals {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.valid && v.revision == snapshot.Revision {
		return v.totals
	}

	v.totals = Compute(snapshot.Items)
	v.revision = snapshot.Revision
	v.valid = true
	v.computes++
	return v.totals
}

// Computes возвращает число фактических пересчётов.
func (v *View) Computes() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.computes
}
