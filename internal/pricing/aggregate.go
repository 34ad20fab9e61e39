package pricing

import "souq-orders/internal/domain"

// Aggregate merges lines that address the same catalog row by summing their
// quantities. Output keeps the first-occurrence order of each key.
func Aggregate(lines []domain.CartLine) []domain.CartLine {
	index := make(map[domain.LineKey]int, len(lines))
	out := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		key := line.Key()
		if i, ok := index[key]; ok {
			out[i].Quantity = out[i].Quantity.Add(line.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, line)
	}
	return out
}
