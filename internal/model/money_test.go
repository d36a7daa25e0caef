package model

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Cents
		wantErr error
	}{
		{name: "two decimals", input: "500.00", want: 50000},
		{name: "whole", input: "500", want: 50000},
		{name: "one decimal", input: "12.5", want: 1250},
		{name: "leading dot", input: ".75", want: 75},
		{name: "dollar prefix and spaces", input: " $19.99 ", want: 1999},
		{name: "zero", input: "0", want: 0},
		{name: "empty", input: "", wantErr: ErrInvalidAmount},
		{name: "negative", input: "-5", wantErr: ErrNegativeAmount},
		{name: "three decimals", input: "1.005", wantErr: ErrInvalidAmount},
		{name: "letters", input: "12a", wantErr: ErrInvalidAmount},
		{name: "lone dot", input: ".", wantErr: ErrInvalidAmount},
		{name: "exponent", input: "1e3", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinorMajorRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10_000; i++ {
		c := Cents(rnd.Int63n(1_000_000_000_00))
		if got := ToMinor(ToMajor(c)); got != c {
			t.Fatalf("ToMinor(ToMajor(%d)) = %d", c, got)
		}
	}
	for _, c := range []Cents{0, 1, 10, 99, 101, 123456789} {
		assert.Equal(t, c, ToMinor(ToMajor(c)))
	}
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "0.00", Cents(0).String())
	assert.Equal(t, "5.07", Cents(507).String())
	assert.Equal(t, "-1.50", Cents(-150).String())
}

func TestEscrowDerivedValues(t *testing.T) {
	e := Escrow{
		Total: 1000,
		Milestones: []Milestone{
			{ID: 1, Amount: 300, Released: true},
			{ID: 2, Amount: 700},
		},
	}

	assert.Equal(t, Cents(300), e.Released())
	assert.Equal(t, Cents(700), e.Remaining())
	assert.InDelta(t, 0.3, e.Completion(), 1e-9)
	assert.InDeltaSlice(t, []float64{0.3, 1.0}, e.Positions(), 1e-9)

	m, ok := e.Milestone(2)
	require.True(t, ok)
	assert.Equal(t, Cents(700), m.Amount)

	_, ok = e.Milestone(3)
	assert.False(t, ok)
}

func TestEscrowDerivedValuesIgnoreNegativeAmounts(t *testing.T) {
	e := Escrow{
		Total: 1000,
		Milestones: []Milestone{
			{ID: 1, Amount: 400, Released: true},
			{ID: 2, Amount: -200, Released: true},
			{ID: 3, Amount: 600},
		},
	}

	assert.Equal(t, Cents(400), e.Released())
	assert.Equal(t, Cents(600), e.Remaining())
	assert.InDelta(t, 0.4, e.Completion(), 1e-9)
	assert.InDelta(t, float64(e.Released())/float64(e.Total), e.Completion(), 1e-9)
}

func TestStatusIs(t *testing.T) {
	assert.True(t, Status("pending").Is(StatusPending))
	assert.True(t, Status(" Completed ").Is(StatusCompleted))
	assert.False(t, Status("DISPUTED").Is(StatusAuthorized))
}

func TestUserJSONOmitsAvatar(t *testing.T) {
	u := User{ID: 3, Email: "a@b.co", Name: "Ann Lee", AvatarRef: "avatar-3"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"email":"a@b.co","name":"Ann Lee"}`, string(data))

	var back User
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"email":"a@b.co","name":"Ann Lee","AvatarRef":"x"}`), &back))
	assert.Empty(t, back.AvatarRef)
	assert.Equal(t, "AL", back.Initials())
}
