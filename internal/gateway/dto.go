package gateway

import (
	"time"

	"github.com/mmeshcher/goldy/internal/model"
)

const untitledEscrow = "Untitled Escrow"

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,useremail"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,useremail"`
	Name     string `json:"name" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResult содержит ответ бэкенда на вход или регистрацию.
type AuthResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

type fundRequest struct {
	EscrowID        int64  `json:"escrowId" validate:"gt=0"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

// FundResult содержит ответ бэкенда на пополнение эскроу.
type FundResult struct {
	Status           string `json:"status"`
	ClientSecret     string `json:"clientSecret,omitempty"`
	PaymentIntentID  string `json:"paymentIntentId"`
	AmountCapturable *int64 `json:"amountCapturable,omitempty"`
}

type releaseRequest struct {
	EscrowID    int64 `json:"escrowId" validate:"gt=0"`
	MilestoneID int64 `json:"milestoneId" validate:"gt=0"`
}

// ReleaseResult содержит ответ бэкенда на выплату этапа.
// Remaining является подсказкой об остатке в центах.
type ReleaseResult struct {
	Success         bool   `json:"success"`
	PaymentIntentID string `json:"paymentIntentId"`
	Remaining       *int64 `json:"remaining,omitempty"`
}

type errorResponse struct {
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// EscrowDTO описывает эскроу в формате бэкенда.
type EscrowDTO struct {
	ID                    int64          `json:"id"`
	Title                 *string        `json:"title"`
	Subtitle              *string        `json:"subtitle,omitempty"`
	Purpose               *string        `json:"purpose,omitempty"`
	BuyerID               int64          `json:"buyerId"`
	SellerID              int64          `json:"sellerId"`
	AmountCents           int64          `json:"amountCents"`
	Status                string         `json:"status"`
	StripePaymentIntentID *string        `json:"stripePaymentIntentId,omitempty"`
	CancellationPolicy    []string       `json:"cancellationPolicy,omitempty"`
	Signers               []string       `json:"signers,omitempty"`
	SignedAt              *time.Time     `json:"signedAt,omitempty"`
	Milestones            []MilestoneDTO `json:"milestones"`
}

// MilestoneDTO описывает этап эскроу в формате бэкенда.
type MilestoneDTO struct {
	ID                int64      `json:"id"`
	EscrowID          int64      `json:"escrowId"`
	AmountCents       int64      `json:"amountCents"`
	Released          bool       `json:"released"`
	Description       *string    `json:"description,omitempty"`
	ReleaseConditions *string    `json:"releaseConditions,omitempty"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}

// ToModel переводит ответ бэкенда в доменную модель.
func (d EscrowDTO) ToModel() model.Escrow {
	e := model.Escrow{
		ID:                 d.ID,
		Title:              deref(d.Title),
		Subtitle:           deref(d.Subtitle),
		Purpose:            deref(d.Purpose),
		Status:             model.Status(d.Status),
		BuyerID:            d.BuyerID,
		SellerID:           d.SellerID,
		Total:              model.Cents(d.AmountCents),
		CancellationPolicy: d.CancellationPolicy,
		Signers:            d.Signers,
		PaymentIntentID:    deref(d.StripePaymentIntentID),
		Milestones:         make([]model.Milestone, 0, len(d.Milestones)),
	}
	if e.Title == "" {
		e.Title = untitledEscrow
	}
	if d.SignedAt != nil {
		e.SignedAt = *d.SignedAt
	}

	for _, m := range d.Milestones {
		e.Milestones = append(e.Milestones, model.Milestone{
			ID:          m.ID,
			Description: deref(m.Description),
			Amount:      model.Cents(m.AmountCents),
			Conditions:  deref(m.ReleaseConditions),
			DueDate:     m.DueDate,
			Released:    m.Released,
		})
	}

	return e
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
