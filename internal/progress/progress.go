// Package progress считает процент выполнения эскроу по суммам этапов.
package progress

// Item описывает этап эскроу для расчёта прогресса: сумма в центах и признак выплаты.
type Item struct {
	Amount   int64
	Released bool
}

// Completion возвращает долю выплаченных средств от общей суммы эскроу.
// Для нулевой суммы результат равен 0, значение всегда лежит в [0, 1].
func Completion(items []Item, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return clamp(float64(Released(items)) / float64(total))
}

// Released возвращает сумму выплаченных этапов. Отрицательные суммы не учитываются.
func Released(items []Item) int64 {
	var sum int64
	for _, it := range items {
		if it.Released && it.Amount > 0 {
			sum += it.Amount
		}
	}
	return sum
}

// Positions возвращает накопленную долю каждого этапа на шкале прогресса.
// Если сумма этапов превышает total, позиции обрезаются до 1.
func Positions(items []Item, total int64) []float64 {
	out := make([]float64, len(items))
	if total <= 0 {
		return out
	}

	var running int64
	for i, it := range items {
		if it.Amount > 0 {
			running += it.Amount
		}
		out[i] = clamp(float64(running) / float64(total))
	}

	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
