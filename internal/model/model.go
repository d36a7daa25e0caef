// Package model содержит доменные сущности клиента эскроу-сервиса Goldy.
package model

import (
	"strings"
	"time"

	"github.com/mmeshcher/goldy/internal/progress"
)

// User представляет участника эскроу.
// AvatarRef относится только к отображению на клиенте и не сериализуется.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarRef string `json:"-"`
}

// Initials возвращает инициалы пользователя для компактного отображения.
func (u User) Initials() string {
	parts := strings.Fields(u.Name)
	var b strings.Builder
	for i, p := range parts {
		if i > 1 {
			break
		}
		b.WriteString(strings.ToUpper(string([]rune(p)[:1])))
	}
	return b.String()
}

// Status описывает статус эскроу. Набор значений открыт: источником истины является бэкенд.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAuthorized Status = "AUTHORIZED"
	StatusCompleted  Status = "COMPLETED"
)

// Is сравнивает статусы без учёта регистра.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(other))
}

// Milestone описывает этап частичной выплаты эскроу.
type Milestone struct {
	ID          int64
	Description string
	Amount      Cents
	Conditions  string
	DueDate     *time.Time
	Released    bool
}

// Escrow описывает соглашение между покупателем и продавцом об удержании средств.
type Escrow struct {
	ID                 int64
	Title              string
	Subtitle           string
	Purpose            string
	Status             Status
	BuyerID            int64
	SellerID           int64
	Total              Cents
	Milestones         []Milestone
	CancellationPolicy []string
	Signers            []string
	SignedAt           time.Time
	PaymentIntentID    string
}

// Released возвращает сумму выплаченных этапов по тем же правилам, что и Completion.
func (e *Escrow) Released() Cents {
	return Cents(progress.Released(e.progressItems()))
}

// Remaining возвращает остаток невыплаченных средств, не меньше нуля.
func (e *Escrow) Remaining() Cents {
	rest := e.Total - e.Released()
	if rest < 0 {
		return 0
	}
	return rest
}

// Completion возвращает долю выплаченных средств в диапазоне [0, 1].
func (e *Escrow) Completion() float64 {
	return progress.Completion(e.progressItems(), int64(e.Total))
}

// Positions возвращает накопленные позиции этапов на шкале прогресса.
func (e *Escrow) Positions() []float64 {
	return progress.Positions(e.progressItems(), int64(e.Total))
}

func (e *Escrow) progressItems() []progress.Item {
	items := make([]progress.Item, 0, len(e.Milestones))
	for _, m := range e.Milestones {
		items = append(items, progress.Item{Amount: int64(m.Amount), Released: m.Released})
	}
	return items
}

// Milestone ищет этап по идентификатору.
func (e *Escrow) Milestone(id int64) (*Milestone, bool) {
	for i := range e.Milestones {
		if e.Milestones[i].ID == id {
			return &e.Milestones[i], true
		}
	}
	return nil, false
}

// MilestoneSpec описывает этап в запросе на создание эскроу.
type MilestoneSpec struct {
	Description string     `json:"description,omitempty"`
	Amount      Cents      `json:"amountCents" validate:"gt=0"`
	Conditions  string     `json:"releaseConditions,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// CreateEscrowRequest содержит данные для создания эскроу на бэкенде.
type CreateEscrowRequest struct {
	Title       string          `json:"title" validate:"required"`
	VendorName  string          `json:"vendorName,omitempty"`
	VendorEmail string          `json:"vendorEmail,omitempty" validate:"omitempty,useremail"`
	SellerID    int64           `json:"sellerId" validate:"gte=0"`
	Amount      Cents           `json:"amountCents" validate:"gt=0"`
	ServiceType string          `json:"serviceType,omitempty"`
	ServiceDate *time.Time      `json:"serviceDate,omitempty"`
	Status      Status          `json:"status" validate:"required"`
	Milestones  []MilestoneSpec `json:"milestones" validate:"dive"`
}
