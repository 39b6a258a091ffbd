package domain

// MergeLines combines carts by line key. Quantities of lines sharing a key
// are summed, saturating at MaxQuantity; every other field, maxQuantity included, comes from the last
// line seen for that key. Keys keep the position of their first occurrence.
//
// The summed quantity is not clamped to maxQuantity, so a merged line may sit
// above its ceiling until the next quantity-changing operation.
func MergeLines(carts ...[]Line) []Line {
	merged := make([]Line, 0)
	index := make(map[LineKey]int)

	for _, lines := range carts {
		for _, l := range lines {
			qty := min(max(l.Quantity, 1), MaxQuantity)
			key := l.Key()
			i, ok := index[key]
			if !ok {
				l.Quantity = qty
				index[key] = len(merged)
				merged = append(merged, l)
				continue
			}
			l.Quantity = AddQuantities(merged[i].Quantity, qty)
			merged[i] = l
		}
	}
	return merged
}
