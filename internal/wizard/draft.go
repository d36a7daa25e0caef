// Package wizard реализует пошаговое создание эскроу в виде чистого редьюсера и хранилища состояния.
package wizard

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/goldy/internal/model"
)

// Step описывает шаг мастера создания эскроу.
type Step int

const (
	StepPartyAndVendorInfo Step = iota
	StepPaymentAndMilestones
	StepReview
	StepSubmitting
	StepSubmitted
	StepSubmissionFailed
)

var stepNames = map[Step]string{
	StepPartyAndVendorInfo:   "party and vendor info",
	StepPaymentAndMilestones: "payment and milestones",
	StepReview:               "review",
	StepSubmitting:           "submitting",
	StepSubmitted:            "submitted",
	StepSubmissionFailed:     "submission failed",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// DefaultServiceType задаёт тип услуги нового черновика.
const DefaultServiceType = "Photography"

var serviceTypes = []string{
	"Photography", "Videography", "Catering", "Venue",
	"DJ/Music", "Florist", "Hair & Makeup", "Other",
}

// ServiceTypes возвращает каталог типов услуг.
func ServiceTypes() []string {
	return slices.Clone(serviceTypes)
}

// IsServiceType сообщает, есть ли тип услуги в каталоге.
func IsServiceType(s string) bool {
	return slices.Contains(serviceTypes, s)
}

// MilestoneInput представляет строку ввода этапа.
type MilestoneInput struct {
	Description string
	Amount      string
	Conditions  string
	DueDate     *time.Time
}

// Draft содержит данные, введённые в мастер.
type Draft struct {
	ID            string
	Party         *model.User
	VendorName    string
	VendorEmail   string
	ServiceType   string
	ServiceDate   *time.Time
	Deposit       string
	UseMilestones bool
	Milestones    []MilestoneInput
}

// NewDraft создаёт пустой черновик с одной строкой этапа.
func NewDraft() Draft {
	return Draft{
		ID:          uuid.NewString(),
		ServiceType: DefaultServiceType,
		Milestones:  []MilestoneInput{{}},
	}
}

func (d Draft) clone() Draft {
	out := d
	out.Milestones = slices.Clone(d.Milestones)
	if d.Party != nil {
		p := *d.Party
		out.Party = &p
	}
	return out
}

// State описывает состояние мастера.
type State struct {
	Step       Step
	Draft      Draft
	ShowErrors bool
	Errors     map[string]string
	Message    string
	Created    *model.Escrow
}

// NewState возвращает начальное состояние.
func NewState() State {
	return State{Step: StepPartyAndVendorInfo, Draft: NewDraft()}
}
