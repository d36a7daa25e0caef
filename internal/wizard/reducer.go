package wizard

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/validation"
)

// Ключи ошибок полей.
const (
	FieldVendorName  = "vendorName"
	FieldVendorEmail = "vendorEmail"
	FieldDeposit     = "deposit"
	FieldMilestones  = "milestones"
)

// IncompleteDraftMessage показывается, если отправка запрошена для неполного черновика.
const IncompleteDraftMessage = "Please complete the highlighted fields before submitting"

// MilestoneField возвращает ключ ошибки суммы этапа с индексом i.
func MilestoneField(i int) string {
	return fmt.Sprintf("milestone.%d", i)
}

// Action описывает действие над мастером.
type Action interface {
	isAction()
}

type (
	// SetVendorName задаёт имя исполнителя.
	SetVendorName struct{ Name string }
	// SetVendorEmail задаёт email исполнителя.
	SetVendorEmail struct{ Email string }
	// SelectParty выбирает существующего пользователя и подставляет его имя и email.
	SelectParty struct{ User model.User }
	// ClearParty сбрасывает выбранного пользователя и введённые имя и email.
	ClearParty struct{}
	// SetServiceType задаёт тип услуги из каталога.
	SetServiceType struct{ ServiceType string }
	// SetServiceDate задаёт дату услуги; nil сбрасывает её.
	SetServiceDate struct{ Date *time.Time }
	// SetDeposit задаёт текст суммы депозита.
	SetDeposit struct{ Amount string }
	// ToggleMilestones включает или выключает режим этапов.
	ToggleMilestones struct{ Enabled bool }
	// AddMilestone добавляет пустую строку этапа.
	AddMilestone struct{}
	// RemoveMilestone удаляет строку этапа; последняя строка не удаляется.
	RemoveMilestone struct{ Index int }
	// UpdateMilestone заменяет строку этапа.
	UpdateMilestone struct {
		Index int
		Input MilestoneInput
	}
	// Next переходит к следующему шагу, если проверки пройдены.
	Next struct{}
	// Back возвращается на предыдущий шаг без потери данных.
	Back struct{}
	// Submit начинает отправку с шага проверки, если черновик проходит все проверки.
	Submit struct{}
	// SubmitSucceeded завершает отправку созданным эскроу.
	SubmitSucceeded struct{ Escrow model.Escrow }
	// SubmitFailed завершает отправку ошибкой.
	SubmitFailed struct{ Message string }
	// Retry возвращает из ошибки отправки на шаг проверки.
	Retry struct{}
	// DismissError скрывает показанные ошибки.
	DismissError struct{}
)

func (SetVendorName) isAction()    {}
func (SetVendorEmail) isAction()   {}
func (SelectParty) isAction()      {}
func (ClearParty) isAction()       {}
func (SetServiceType) isAction()   {}
func (SetServiceDate) isAction()   {}
func (SetDeposit) isAction()       {}
func (ToggleMilestones) isAction() {}
func (AddMilestone) isAction()     {}
func (RemoveMilestone) isAction()  {}
func (UpdateMilestone) isAction()  {}
func (Next) isAction()             {}
func (Back) isAction()             {}
func (Submit) isAction()           {}
func (SubmitSucceeded) isAction()  {}
func (SubmitFailed) isAction()     {}
func (Retry) isAction()            {}
func (DismissError) isAction()     {}

// Reduce возвращает новое состояние после применения действия. Входное состояние не изменяется.
// Недопустимые в текущем шаге действия возвращают состояние без изменений.
func Reduce(s State, a Action) State {
	next := s
	next.Draft = s.Draft.clone()
	next.Errors = nil

	switch a := a.(type) {
	case Next:
		return reduceNext(s, next)
	case Back:
		switch s.Step {
		case StepPaymentAndMilestones:
			next.Step = StepPartyAndVendorInfo
		case StepReview:
			next.Step = StepPaymentAndMilestones
		default:
			return s
		}
		next.ShowErrors = false
		return next
	case Submit:
		if s.Step != StepReview {
			return s
		}
		if errs := draftErrors(next.Draft); len(errs) > 0 {
			next.ShowErrors = true
			next.Errors = errs
			next.Message = IncompleteDraftMessage
			return next
		}
		next.Step = StepSubmitting
		next.Message = ""
		return next
	case SubmitSucceeded:
		if s.Step != StepSubmitting {
			return s
		}
		created := a.Escrow
		next.Step = StepSubmitted
		next.Created = &created
		return next
	case SubmitFailed:
		if s.Step != StepSubmitting {
			return s
		}
		next.Step = StepSubmissionFailed
		next.Message = a.Message
		return next
	case Retry:
		if s.Step != StepSubmissionFailed {
			return s
		}
		next.Step = StepReview
		next.Message = ""
		return next
	case DismissError:
		next.Message = ""
		next.ShowErrors = false
		return next
	}

	if !editable(s.Step) {
		return s
	}

	d := &next.Draft
	switch a := a.(type) {
	case SetVendorName:
		d.VendorName = a.Name
	case SetVendorEmail:
		d.VendorEmail = a.Email
	case SelectParty:
		u := a.User
		d.Party = &u
		d.VendorName = u.Name
		d.VendorEmail = u.Email
	case ClearParty:
		d.Party = nil
		d.VendorName = ""
		d.VendorEmail = ""
	case SetServiceType:
		if !IsServiceType(a.ServiceType) {
			return s
		}
		d.ServiceType = a.ServiceType
	case SetServiceDate:
		d.ServiceDate = a.Date
	case SetDeposit:
		d.Deposit = a.Amount
	case ToggleMilestones:
		d.UseMilestones = a.Enabled
		if len(d.Milestones) == 0 {
			d.Milestones = []MilestoneInput{{}}
		}
	case AddMilestone:
		d.Milestones = append(d.Milestones, MilestoneInput{})
	case RemoveMilestone:
		if len(d.Milestones) <= 1 || a.Index < 0 || a.Index >= len(d.Milestones) {
			return s
		}
		d.Milestones = append(d.Milestones[:a.Index], d.Milestones[a.Index+1:]...)
	case UpdateMilestone:
		if a.Index < 0 || a.Index >= len(d.Milestones) {
			return s
		}
		d.Milestones[a.Index] = a.Input
	default:
		return s
	}

	if next.ShowErrors {
		next.Errors = stepErrors(next.Step, next.Draft)
	}
	return next
}

func reduceNext(s, next State) State {
	switch s.Step {
	case StepPartyAndVendorInfo, StepPaymentAndMilestones:
	default:
		return s
	}

	if errs := stepErrors(s.Step, next.Draft); len(errs) > 0 {
		next.ShowErrors = true
		next.Errors = errs
		return next
	}

	next.ShowErrors = false
	next.Step = s.Step + 1
	return next
}

// editable: черновик меняется только на шагах ввода; на проверке и после ошибки
// отправки правка требует возврата назад.
func editable(step Step) bool {
	switch step {
	case StepPartyAndVendorInfo, StepPaymentAndMilestones:
		return true
	default:
		return false
	}
}

func draftErrors(d Draft) map[string]string {
	errs := partyErrors(d)
	if funds := fundsErrors(d); len(funds) > 0 {
		if errs == nil {
			errs = make(map[string]string, len(funds))
		}
		maps.Copy(errs, funds)
	}
	return errs
}

func stepErrors(step Step, d Draft) map[string]string {
	switch step {
	case StepPartyAndVendorInfo:
		return partyErrors(d)
	case StepPaymentAndMilestones:
		return fundsErrors(d)
	default:
		return nil
	}
}

// partyErrors: исполнитель определён выбранным пользователем с именем
// либо введёнными вручную именем и корректным email.
func partyErrors(d Draft) map[string]string {
	if d.Party != nil && strings.TrimSpace(d.Party.Name) != "" {
		return nil
	}

	errs := make(map[string]string)
	if r := validation.Name(d.VendorName); !r.IsValid() {
		errs[FieldVendorName] = reasonOr(r, "Vendor name is required")
	}
	if r := validation.Email(d.VendorEmail); !r.IsValid() {
		errs[FieldVendorEmail] = reasonOr(r, "Vendor email is required")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func fundsErrors(d Draft) map[string]string {
	errs := make(map[string]string)

	r := validation.DepositAmount(d.Deposit)
	if !r.IsValid() {
		errs[FieldDeposit] = reasonOr(r, "Deposit amount is required")
	}

	if d.UseMilestones {
		amounts := make([]string, len(d.Milestones))
		for i, m := range d.Milestones {
			amounts[i] = m.Amount
			if mr := validation.MilestoneAmount(m.Amount); mr.IsInvalid() {
				errs[MilestoneField(i)] = mr.Reason
			}
		}

		if r.IsValid() {
			deposit, _ := model.ParseAmount(d.Deposit)
			if sr := validation.MilestoneSum(deposit, amounts); !sr.IsValid() {
				errs[FieldMilestones] = sr.Reason
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func reasonOr(r validation.Result, fallback string) string {
	if r.Reason != "" {
		return r.Reason
	}
	return fallback
}
