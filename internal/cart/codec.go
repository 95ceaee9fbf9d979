package cart

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// encodeSnapshot сериализует состояние в JSON-массив без версии и схемы.
func encodeSnapshot(items []domain.CartItem) (string, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}
	return string(raw), nil
}

// decodeSnapshot принимает снапшот как есть. Ошибкой считается только невалидный JSON
// или не массив на верхнем уровне; поля неподходящего типа и элементы-не-объекты
// становятся нулевыми значениями.
func decodeSnapshot(raw string) ([]domain.CartItem, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotDecode, err)
	}

	items := make([]domain.CartItem, 0, len(elements))
	for _, element := range elements {
		var fields map[string]any
		if err := json.Unmarshal(element, &fields); err != nil {
			items = append(items, domain.CartItem{})
			continue
		}
		items = append(items, domain.CartItem{
			ID:       stringField(fields, "id"),
			Title:    stringField(fields, "title"),
			ImageURL: stringField(fields, "image_url"),
			Price:    numberField(fields, "price"),
			Quantity: quantityField(fields, "quantity"),
		})
	}
	return items, nil
}

func stringField(fields map[string]any, name string) string {
	value, _ := fields[name].(string)
	return value
}

func numberField(fields map[string]any, name string) float64 {
	value, _ := fields[name].(float64)
	return value
}

// quantityField отбрасывает дробную часть; значения меньше 1 означают отсутствующее количество.
func quantityField(fields map[string]any, name string) int {
	value := numberField(fields, name)
	if value < 1 {
		return 0
	}
	if value > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(value)
}
