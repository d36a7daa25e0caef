package validation

import "strings"

// LooksLikeCardNumber сообщает, похожа ли строка на номер банковской карты:
// 12–19 цифр (пробелы и дефисы допускаются) с корректной контрольной суммой Луна.
// Клиент не должен передавать такие данные вместо ссылки на платёжный метод.
func LooksLikeCardNumber(s string) bool {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if len(digits) < 12 || len(digits) > 19 {
		return false
	}

	return luhnValid(digits)
}

func luhnValid(number string) bool {
	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := number[i]
		if ch < '0' || ch > '9' {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}
