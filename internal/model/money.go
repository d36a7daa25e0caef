package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Cents хранит денежную сумму в минимальных единицах валюты.
type Cents int64

var (
	// ErrInvalidAmount возвращается, если строку нельзя разобрать как сумму.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeAmount возвращается для отрицательных сумм.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

const maxIntegerDigits = 13

// ToMajor переводит центы в основные единицы для отображения.
func ToMajor(c Cents) float64 {
	return float64(c) / 100
}

// ToMinor переводит основные единицы в центы с округлением до ближайшего цента.
func ToMinor(v float64) Cents {
	return Cents(math.Round(v * 100))
}

// Major возвращает сумму в основных единицах.
func (c Cents) Major() float64 {
	return ToMajor(c)
}

// String форматирует сумму с двумя знаками после точки.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseAmount точно разбирает десятичную запись суммы без округления через float.
// Допускается не более двух знаков после точки и необязательный префикс "$".
func ParseAmount(text string) (Cents, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, ErrInvalidAmount
	}
	if len(whole) > maxIntegerDigits || len(frac) > 2 {
		return 0, ErrInvalidAmount
	}

	var value int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
		value = value*10 + int64(r-'0')
	}

	fracDigits := frac
	for len(fracDigits) < 2 {
		fracDigits += "0"
	}
	var cents int64
	for _, r := range fracDigits {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
		cents = cents*10 + int64(r-'0')
	}

	return Cents(value*100 + cents), nil
}
