package cart

import "github.com/vladislavdragonenkov/cartstate/internal/domain"

// Все редьюсеры чистые: входной срез не изменяется, результатом всегда служит новый срез.

// addItem реализует merge-or-insert: существующая позиция получает +1,
// новая добавляется в конец с количеством 1.
func addItem(items []domain.CartItem, product domain.Product) []domain.CartItem {
	if indexOf(items, product.ID) >= 0 {
		return incrementItem(items, product.ID)
	}

	next := make([]domain.CartItem, len(items), len(items)+1)
	copy(next, items)

	item := domain.ItemFromProduct(product)
	item.Quantity = 1
	return append(next, item)
}

func incrementItem(items []domain.CartItem, id string) []domain.CartItem {
	return mapItems(items, id, func(item domain.CartItem) domain.CartItem {
		item.Quantity = item.EffectiveQuantity() + 1
		return item
	})
}

// decrementItem никогда не опускает количество ниже 1 и не удаляет позицию.
func decrementItem(items []domain.CartItem, id string) []domain.CartItem {
	return mapItems(items, id, func(item domain.CartItem) domain.CartItem {
		qty := item.EffectiveQuantity() - 1
		if qty < 1 {
			qty = 1
		}
		item.Quantity = qty
		return item
	})
}

func mapItems(items []domain.CartItem, id string, fn func(domain.CartItem) domain.CartItem) []domain.CartItem {
	next := make([]domain.CartItem, len(items))
	for i, item := range items {
		if item.ID == id {
			item = fn(item)
		}
		next[i] = item
	}
	return next
}

func indexOf(items []domain.CartItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
