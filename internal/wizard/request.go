package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/goldy/internal/model"
)

// ErrIncompleteDraft возвращается, если из черновика нельзя собрать запрос.
var ErrIncompleteDraft = errors.New("draft is incomplete")

// BuildRequest собирает запрос на создание эскроу из черновика.
// Этапы передаются только в режиме этапов; строки без корректной суммы пропускаются.
func BuildRequest(d Draft) (model.CreateEscrowRequest, error) {
	if errs := partyErrors(d); len(errs) > 0 {
		return model.CreateEscrowRequest{}, fmt.Errorf("%w: vendor", ErrIncompleteDraft)
	}
	if errs := fundsErrors(d); len(errs) > 0 {
		return model.CreateEscrowRequest{}, fmt.Errorf("%w: funds", ErrIncompleteDraft)
	}

	amount, err := model.ParseAmount(d.Deposit)
	if err != nil {
		return model.CreateEscrowRequest{}, fmt.Errorf("parse deposit: %w", err)
	}

	vendor := strings.TrimSpace(d.VendorName)
	req := model.CreateEscrowRequest{
		Title:       d.ServiceType + " - " + vendor,
		VendorName:  vendor,
		VendorEmail: strings.TrimSpace(d.VendorEmail),
		Amount:      amount,
		ServiceType: d.ServiceType,
		ServiceDate: d.ServiceDate,
		Status:      model.StatusPending,
		Milestones:  []model.MilestoneSpec{},
	}
	if d.Party != nil {
		req.SellerID = d.Party.ID
	}

	if d.UseMilestones {
		for _, m := range d.Milestones {
			c, err := model.ParseAmount(m.Amount)
			if err != nil || c <= 0 {
				continue
			}
			req.Milestones = append(req.Milestones, model.MilestoneSpec{
				Description: strings.TrimSpace(m.Description),
				Amount:      c,
				Conditions:  strings.TrimSpace(m.Conditions),
				DueDate:     m.DueDate,
			})
		}
	}

	return req, nil
}
