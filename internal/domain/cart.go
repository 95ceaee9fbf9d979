package domain

// Product: запись каталога. Количество каталог не знает.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

// CartItem представляет одну позицию корзины.
type CartItem struct {
	// ID назначается каталогом и уникален в пределах корзины.
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	// Price: цена за единицу.
	Price float64 `json:"price"`
	// Quantity == 0 означает, что поле отсутствует (позиция пришла из каталога).
	Quantity int `json:"quantity,omitempty"`
}

// EffectiveQuantity возвращает количество с учётом значения по умолчанию 1.
func (i CartItem) EffectiveQuantity() int {
	if i.Quantity <= 0 {
		return 1
	}
	return i.Quantity
}

// Product отбрасывает количество.
func (i CartItem) Product() Product {
	return Product{ID: i.ID, Title: i.Title, ImageURL: i.ImageURL, Price: i.Price}
}

// ItemFromProduct создаёт позицию без явного количества.
func ItemFromProduct(p Product) CartItem {
	return CartItem{ID: p.ID, Title: p.Title, ImageURL: p.ImageURL, Price: p.Price}
}

// CloneItems копирует срез позиций, чтобы владелец состояния не делил память с вызывающим.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
