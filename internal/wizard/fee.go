package wizard

import (
	"math"

	"github.com/mmeshcher/goldy/internal/model"
)

// FeePolicy задаёт параметры отображаемой комиссии.
type FeePolicy struct {
	Rate    float64
	Minimum model.Cents
}

// DefaultFeePolicy берёт 3.5% с минимумом 50 центов.
var DefaultFeePolicy = FeePolicy{Rate: 0.035, Minimum: 50}

// Fee возвращает комиссию для показа пользователю. Итоговую комиссию считает сервер.
func Fee(amount model.Cents, p FeePolicy) model.Cents {
	if amount <= 0 {
		return 0
	}
	fee := model.Cents(math.Round(float64(amount) * p.Rate))
	return max(fee, p.Minimum)
}
