package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/goldy/internal/model"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  State
	}{
		{name: "empty", input: "", want: Unvalidated},
		{name: "only spaces", input: "   ", want: Unvalidated},
		{name: "mixed case with padding", input: "  Foo@Bar.COM ", want: Valid},
		{name: "plus and dots", input: "first.last+tag@sub.example.org", want: Valid},
		{name: "missing at", input: "foo.bar.com", want: Invalid},
		{name: "one letter tld", input: "foo@bar.c", want: Invalid},
		{name: "missing domain", input: "foo@.com", want: Invalid},
		{name: "spaces inside", input: "fo o@bar.com", want: Invalid},
		{name: "two ats", input: "a@b@c.com", want: Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.input).State)
		})
	}
}

func TestEmailIdempotent(t *testing.T) {
	for _, s := range []string{"a@b.co", "  Foo@Bar.COM ", "x.y+z@q.io"} {
		first := Email(s)
		assert.True(t, first.IsValid())
		assert.Equal(t, first, Email(strings.TrimSpace(s)))
	}
}

func TestSignupPassword(t *testing.T) {
	assert.Equal(t, Unvalidated, SignupPassword("").State)
	assert.Equal(t, Invalid, SignupPassword("abc123").State)
	assert.Equal(t, Invalid, SignupPassword("abcdefg1").State)
	assert.Equal(t, Invalid, SignupPassword("ABCDEFG1").State)
	assert.Equal(t, Invalid, SignupPassword("Abcdefgh").State)
	assert.Equal(t, Invalid, SignupPassword("Abc1234").State)
	assert.Equal(t, Valid, SignupPassword("Abcdefg1").State)
}

func TestLoginPassword(t *testing.T) {
	assert.Equal(t, Unvalidated, LoginPassword("").State)
	assert.Equal(t, Invalid, LoginPassword("abc12").State)
	assert.Equal(t, Valid, LoginPassword("abc123").State)
}

func TestName(t *testing.T) {
	assert.Equal(t, Unvalidated, Name("  ").State)
	assert.Equal(t, Invalid, Name(" a ").State)
	assert.Equal(t, Valid, Name("Al").State)
}

func TestRequired(t *testing.T) {
	r := Required("  ", "Vendor name")
	assert.True(t, r.IsInvalid())
	assert.Equal(t, "Vendor name is required", r.Reason)
	assert.True(t, Required("x", "Vendor name").IsValid())
}

func TestDepositAmount(t *testing.T) {
	assert.Equal(t, Unvalidated, DepositAmount("").State)
	assert.Equal(t, Valid, DepositAmount("500.00").State)
	assert.Equal(t, Invalid, DepositAmount("0").State)
	assert.Equal(t, Invalid, DepositAmount("-3").State)
	assert.Equal(t, Invalid, DepositAmount("abc").State)
	assert.Equal(t, Valid, MilestoneAmount("0.01").State)
}

func TestMilestoneSum(t *testing.T) {
	deposit := model.Cents(50000)

	assert.True(t, MilestoneSum(deposit, []string{"300.00", "200.00"}).IsValid())

	r := MilestoneSum(deposit, []string{"300.00", "150.00"})
	assert.True(t, r.IsInvalid())
	assert.Contains(t, r.Reason, "500.00")
	assert.Contains(t, r.Reason, "450.00")

	assert.True(t, MilestoneSum(deposit, []string{"300.00", "199.99"}).IsInvalid())
	assert.True(t, MilestoneSum(deposit, []string{"", "abc"}).IsInvalid())
	assert.True(t, MilestoneSum(deposit, []string{"500", ""}).IsValid())
}
