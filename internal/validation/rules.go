// Package validation содержит правила проверки пользовательского ввода.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mmeshcher/goldy/internal/model"
)

// State описывает итог проверки поля.
type State int

const (
	// Unvalidated означает, что поле пустое и ещё не заполнялось.
	Unvalidated State = iota
	Valid
	Invalid
)

// Result содержит состояние проверки и причину, если поле некорректно.
type Result struct {
	State  State
	Reason string
}

// IsValid сообщает, прошло ли поле проверку.
func (r Result) IsValid() bool { return r.State == Valid }

// IsInvalid сообщает, что поле заполнено некорректно.
func (r Result) IsInvalid() bool { return r.State == Invalid }

func valid() Result { return Result{State: Valid} }

func invalid(reason string) Result { return Result{State: Invalid, Reason: reason} }

const (
	minSignupPasswordLen = 8
	minLoginPasswordLen  = 6
	minNameLen           = 2
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// Email проверяет формат адреса электронной почты после обрезки пробелов.
func Email(s string) Result {
	s = strings.TrimSpace(s)
	if s == "" {
		return Result{}
	}
	if !emailPattern.MatchString(s) {
		return invalid("Invalid email format")
	}
	return valid()
}

// SignupPassword проверяет надёжность пароля при регистрации.
func SignupPassword(s string) Result {
	if s == "" {
		return Result{}
	}

	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if utf8.RuneCountInString(s) < minSignupPasswordLen || !upper || !lower || !digit {
		return invalid("Too weak")
	}
	return valid()
}

// LoginPassword проверяет только длину пароля: надёжность уже проверена бэкендом.
func LoginPassword(s string) Result {
	if s == "" {
		return Result{}
	}
	if utf8.RuneCountInString(s) < minLoginPasswordLen {
		return invalid("Too short")
	}
	return valid()
}

// Name проверяет имя: не короче двух символов после обрезки.
func Name(s string) Result {
	s = strings.TrimSpace(s)
	if s == "" {
		return Result{}
	}
	if utf8.RuneCountInString(s) < minNameLen {
		return invalid("Too short")
	}
	return valid()
}

// Required проверяет, что обязательное поле не пустое.
func Required(s, field string) Result {
	if strings.TrimSpace(s) == "" {
		return invalid(field + " is required")
	}
	return valid()
}

// DepositAmount проверяет сумму депозита: положительное десятичное число.
func DepositAmount(s string) Result {
	return positiveAmount(s, "Enter a valid amount")
}

// MilestoneAmount проверяет сумму этапа.
func MilestoneAmount(s string) Result {
	return positiveAmount(s, "Enter a valid milestone amount")
}

func positiveAmount(s, reason string) Result {
	if strings.TrimSpace(s) == "" {
		return Result{}
	}
	c, err := model.ParseAmount(s)
	if err != nil {
		if errors.Is(err, model.ErrNegativeAmount) {
			return invalid("Amount must not be negative")
		}
		return invalid(reason)
	}
	if c <= 0 {
		return invalid("Amount must be greater than zero")
	}
	return valid()
}

// MilestoneSum проверяет, что суммы этапов точно, до цента, совпадают с депозитом.
// Строки без корректной положительной суммы не учитываются; нужен хотя бы один такой этап.
func MilestoneSum(deposit model.Cents, amounts []string) Result {
	var sum model.Cents
	counted := 0
	for _, a := range amounts {
		c, err := model.ParseAmount(a)
		if err != nil || c <= 0 {
			continue
		}
		sum += c
		counted++
	}

	if counted == 0 {
		return invalid("Add at least one milestone with an amount")
	}
	if sum != deposit {
		return invalid("Milestones must add up to $" + deposit.String() + " (currently $" + sum.String() + ")")
	}
	return valid()
}
