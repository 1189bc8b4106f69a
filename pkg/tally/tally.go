// Package tally содержит онлайн-оценку байесовского среднего по парам (count, total).
package tally

import "fmt"

// Estimate — текущее среднее и накопленный вес наблюдений (включая априорный).
type Estimate struct {
	Average float64 `json:"average"`
	Weight  float64 `json:"weight"`
}

// Tally — новые наблюдения: Count успехов из Total попыток.
type Tally struct {
	Count float64 `json:"count"`
	Total float64 `json:"total"`
}

// Update добавляет наблюдения к оценке:
//
//	average' = (average*weight + count) / (weight + total)
//	weight'  = weight + total
//
// Вызывающий обязан гарантировать weight+total > 0. Нарушение предусловия — ошибка
// программиста, поэтому Update паникует, а не возвращает NaN.
func Update(current Estimate, t Tally) Estimate {
	weight := current.Weight + t.Total
	if weight <= 0 {
		panic(fmt.Sprintf("tally: update with non-positive weight %v (weight=%v, total=%v)", weight, current.Weight, t.Total))
	}
	return Estimate{
		Average: (current.Average*current.Weight + t.Count) / weight,
		Weight:  weight,
	}
}
