package wizard

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mmeshcher/goldy/internal/model"
)

func run(s State, actions ...Action) State {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func toFunds(t *testing.T) State {
	t.Helper()
	s := run(NewState(),
		SetVendorName{Name: "Sarah Chen Photography"},
		SetVendorEmail{Email: "sarah@example.com"},
		Next{},
	)
	if s.Step != StepPaymentAndMilestones {
		t.Fatalf("expected funds step, got %s (errors %v)", s.Step, s.Errors)
	}
	return s
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s.Step != StepPartyAndVendorInfo {
		t.Fatalf("initial step = %s", s.Step)
	}
	if s.Draft.ServiceType != DefaultServiceType {
		t.Errorf("service type = %q", s.Draft.ServiceType)
	}
	if len(s.Draft.Milestones) != 1 {
		t.Errorf("expected one milestone row, got %d", len(s.Draft.Milestones))
	}
	if s.Draft.ID == "" {
		t.Error("draft id is empty")
	}
}

func TestPartyGuard(t *testing.T) {
	tests := []struct {
		name     string
		actions  []Action
		wantStep Step
		wantErrs map[string]string
	}{
		{
			name:     "nothing entered",
			actions:  []Action{Next{}},
			wantStep: StepPartyAndVendorInfo,
			wantErrs: map[string]string{
				FieldVendorName:  "Vendor name is required",
				FieldVendorEmail: "Vendor email is required",
			},
		},
		{
			name:     "bad email",
			actions:  []Action{SetVendorName{Name: "Sarah"}, SetVendorEmail{Email: "sarah@"}, Next{}},
			wantStep: StepPartyAndVendorInfo,
			wantErrs: map[string]string{FieldVendorEmail: "Invalid email format"},
		},
		{
			name:     "manual vendor",
			actions:  []Action{SetVendorName{Name: "Sarah"}, SetVendorEmail{Email: " sarah@example.com "}, Next{}},
			wantStep: StepPaymentAndMilestones,
		},
		{
			name:     "selected party",
			actions:  []Action{SelectParty{User: model.User{ID: 9, Name: "Bob", Email: "bob@example.com"}}, Next{}},
			wantStep: StepPaymentAndMilestones,
		},
		{
			name: "cleared party",
			actions: []Action{
				SelectParty{User: model.User{ID: 9, Name: "Bob", Email: "bob@example.com"}},
				ClearParty{},
				Next{},
			},
			wantStep: StepPartyAndVendorInfo,
			wantErrs: map[string]string{
				FieldVendorName:  "Vendor name is required",
				FieldVendorEmail: "Vendor email is required",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := run(NewState(), tt.actions...)
			if s.Step != tt.wantStep {
				t.Fatalf("step = %s, want %s", s.Step, tt.wantStep)
			}
			if diff := cmp.Diff(tt.wantErrs, s.Errors, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
			if s.ShowErrors != (len(tt.wantErrs) > 0) {
				t.Errorf("ShowErrors = %v", s.ShowErrors)
			}
		})
	}
}

func TestMilestoneSumGateAdvances(t *testing.T) {
	s := run(toFunds(t),
		SetDeposit{Amount: "500.00"},
		ToggleMilestones{Enabled: true},
		UpdateMilestone{Index: 0, Input: MilestoneInput{Description: "Booking", Amount: "300.00"}},
		AddMilestone{},
		UpdateMilestone{Index: 1, Input: MilestoneInput{Description: "Delivery", Amount: "200.00"}},
		Next{},
	)

	if s.Step != StepReview {
		t.Fatalf("step = %s, errors %v", s.Step, s.Errors)
	}
}

func TestMilestoneSumGateBlocks(t *testing.T) {
	s := run(toFunds(t),
		SetDeposit{Amount: "500.00"},
		ToggleMilestones{Enabled: true},
		UpdateMilestone{Index: 0, Input: MilestoneInput{Amount: "300.00"}},
		AddMilestone{},
		UpdateMilestone{Index: 1, Input: MilestoneInput{Amount: "150.00"}},
		Next{},
	)

	if s.Step != StepPaymentAndMilestones {
		t.Fatalf("step = %s, expected to stay on funds", s.Step)
	}
	want := map[string]string{FieldMilestones: "Milestones must add up to $500.00 (currently $450.00)"}
	if diff := cmp.Diff(want, s.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	s = run(s, UpdateMilestone{Index: 1, Input: MilestoneInput{Amount: "199.99"}}, Next{})
	if s.Step != StepPaymentAndMilestones {
		t.Fatalf("one cent short must block, got %s", s.Step)
	}

	s = run(s, UpdateMilestone{Index: 1, Input: MilestoneInput{Amount: "200"}})
	if len(s.Errors) != 0 {
		t.Errorf("errors should clear live once fixed, got %v", s.Errors)
	}
	s = run(s, Next{})
	if s.Step != StepReview {
		t.Fatalf("step = %s", s.Step)
	}
}

func TestDepositGate(t *testing.T) {
	for _, deposit := range []string{"", "0", "-5", "abc", "1.234"} {
		s := run(toFunds(t), SetDeposit{Amount: deposit}, Next{})
		if s.Step != StepPaymentAndMilestones {
			t.Errorf("deposit %q: step = %s", deposit, s.Step)
		}
		if s.Errors[FieldDeposit] == "" {
			t.Errorf("deposit %q: no deposit error", deposit)
		}
	}

	s := run(toFunds(t), SetDeposit{Amount: "$1,000"}, Next{})
	if s.Step == StepReview {
		t.Error("thousands separators are not accepted")
	}

	s = run(toFunds(t), SetDeposit{Amount: "1000"}, Next{})
	if s.Step != StepReview {
		t.Errorf("step = %s", s.Step)
	}
}

func TestMilestonesIgnoredWhenDisabled(t *testing.T) {
	s := run(toFunds(t),
		SetDeposit{Amount: "500"},
		ToggleMilestones{Enabled: true},
		UpdateMilestone{Index: 0, Input: MilestoneInput{Amount: "1"}},
		ToggleMilestones{Enabled: false},
		Next{},
	)
	if s.Step != StepReview {
		t.Fatalf("step = %s, errors %v", s.Step, s.Errors)
	}
	if s.Draft.Milestones[0].Amount != "1" {
		t.Error("toggling milestones off must keep the rows")
	}
}

func TestBackKeepsData(t *testing.T) {
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := run(toFunds(t),
		SetServiceType{ServiceType: "Catering"},
		SetServiceDate{Date: &date},
		SetDeposit{Amount: "250"},
		Next{},
	)
	before := s.Draft

	s = run(s, Back{}, Back{})
	if s.Step != StepPartyAndVendorInfo {
		t.Fatalf("step = %s", s.Step)
	}
	if diff := cmp.Diff(before, s.Draft); diff != "" {
		t.Errorf("draft changed on back (-before +after):\n%s", diff)
	}

	if got := run(s, Back{}); got.Step != StepPartyAndVendorInfo {
		t.Errorf("back on first step moved to %s", got.Step)
	}
}

func TestMilestoneRows(t *testing.T) {
	s := run(toFunds(t), RemoveMilestone{Index: 0})
	if len(s.Draft.Milestones) != 1 {
		t.Fatalf("last row removed")
	}

	s = run(s,
		UpdateMilestone{Index: 0, Input: MilestoneInput{Description: "a"}},
		AddMilestone{},
		UpdateMilestone{Index: 1, Input: MilestoneInput{Description: "b"}},
		AddMilestone{},
		UpdateMilestone{Index: 2, Input: MilestoneInput{Description: "c"}},
		RemoveMilestone{Index: 1},
		RemoveMilestone{Index: 7},
		UpdateMilestone{Index: -1, Input: MilestoneInput{Description: "x"}},
	)

	want := []MilestoneInput{{Description: "a"}, {Description: "c"}}
	if diff := cmp.Diff(want, s.Draft.Milestones); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := toFunds(t)
	s = run(s, UpdateMilestone{Index: 0, Input: MilestoneInput{Amount: "10"}})
	snapshot := s.Draft.clone()

	_ = run(s, UpdateMilestone{Index: 0, Input: MilestoneInput{Amount: "99"}}, RemoveMilestone{Index: 0}, AddMilestone{})

	if diff := cmp.Diff(snapshot, s.Draft); diff != "" {
		t.Errorf("input state mutated (-want +got):\n%s", diff)
	}
}

func TestUnknownServiceTypeIgnored(t *testing.T) {
	s := run(NewState(), SetServiceType{ServiceType: "Skydiving"})
	if s.Draft.ServiceType != DefaultServiceType {
		t.Errorf("service type = %q", s.Draft.ServiceType)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	review := run(toFunds(t), SetDeposit{Amount: "100"}, Next{})

	if got := run(toFunds(t), Submit{}); got.Step != StepPaymentAndMilestones {
		t.Fatalf("submit outside review moved to %s", got.Step)
	}

	failed := run(review, Submit{}, SubmitFailed{Message: "No internet connection"})
	if failed.Step != StepSubmissionFailed || failed.Message != "No internet connection" {
		t.Fatalf("unexpected failed state: %s %q", failed.Step, failed.Message)
	}
	if diff := cmp.Diff(review.Draft, failed.Draft); diff != "" {
		t.Errorf("draft lost on failure:\n%s", diff)
	}

	dismissed := run(failed, DismissError{})
	if dismissed.Message != "" || dismissed.Step != StepSubmissionFailed {
		t.Errorf("dismiss: step %s message %q", dismissed.Step, dismissed.Message)
	}

	retried := run(failed, Retry{})
	if retried.Step != StepReview || retried.Message != "" {
		t.Fatalf("retry: step %s message %q", retried.Step, retried.Message)
	}

	done := run(retried, Submit{}, SubmitSucceeded{Escrow: model.Escrow{ID: 42}})
	if done.Step != StepSubmitted || done.Created == nil || done.Created.ID != 42 {
		t.Fatalf("unexpected final state: %+v", done)
	}

	if got := run(done, SubmitFailed{Message: "late"}); got.Step != StepSubmitted {
		t.Errorf("submitted is terminal, got %s", got.Step)
	}
	if got := run(done, SetDeposit{Amount: "1"}); got.Draft.Deposit != "100" {
		t.Errorf("edits after submit must be ignored")
	}
}

func TestFee(t *testing.T) {
	tests := []struct {
		amount model.Cents
		want   model.Cents
	}{
		{amount: 0, want: 0},
		{amount: 100, want: 50},
		{amount: 1000, want: 50},
		{amount: 50000, want: 1750},
		{amount: 100000, want: 3500},
		{amount: 1429, want: 50},
	}

	for _, tt := range tests {
		if got := Fee(tt.amount, DefaultFeePolicy); got != tt.want {
			t.Errorf("Fee(%d) = %d, want %d", tt.amount, got, tt.want)
		}
	}

	custom := FeePolicy{Rate: 0.1, Minimum: 0}
	if got := Fee(1000, custom); got != 100 {
		t.Errorf("custom fee = %d", got)
	}
}

func TestDraftReadOnlyOutsideInputSteps(t *testing.T) {
	review := run(toFunds(t), SetDeposit{Amount: "500"}, Next{})
	if review.Step != StepReview {
		t.Fatalf("step = %s", review.Step)
	}

	edits := []Action{
		SetDeposit{Amount: "abc"},
		SetVendorEmail{Email: "broken"},
		ClearParty{},
		ToggleMilestones{Enabled: true},
	}
	for _, a := range edits {
		if got := Reduce(review, a); !cmp.Equal(review.Draft, got.Draft) {
			t.Errorf("%T changed the draft on review", a)
		}
	}

	failed := run(review, Submit{}, SubmitFailed{Message: "No internet connection"})
	for _, a := range edits {
		if got := Reduce(failed, a); !cmp.Equal(failed.Draft, got.Draft) {
			t.Errorf("%T changed the draft after a failed submission", a)
		}
	}

	s := run(review, SetDeposit{Amount: "abc"}, Submit{})
	if s.Step != StepSubmitting || s.Draft.Deposit != "500" {
		t.Errorf("submit after ignored edit: step %s deposit %q", s.Step, s.Draft.Deposit)
	}

	edited := run(review, Back{}, SetDeposit{Amount: "750"}, Next{})
	if edited.Step != StepReview || edited.Draft.Deposit != "750" {
		t.Errorf("edit via back: step %s deposit %q", edited.Step, edited.Draft.Deposit)
	}
}

func TestSubmitRechecksGates(t *testing.T) {
	s := NewState()
	s.Step = StepReview
	s.Draft.VendorName = "Sarah Chen Photography"
	s.Draft.VendorEmail = "sarah@example.com"
	s.Draft.Deposit = "abc"

	got := Reduce(s, Submit{})
	if got.Step != StepReview {
		t.Fatalf("invalid draft reached %s", got.Step)
	}
	if !got.ShowErrors || got.Errors[FieldDeposit] == "" {
		t.Errorf("expected deposit error, got show=%v errors=%v", got.ShowErrors, got.Errors)
	}
	if got.Message != IncompleteDraftMessage {
		t.Errorf("message = %q", got.Message)
	}

	s.Draft.VendorEmail = ""
	got = Reduce(s, Submit{})
	if got.Errors[FieldVendorEmail] == "" || got.Errors[FieldDeposit] == "" {
		t.Errorf("errors from every step expected, got %v", got.Errors)
	}
}
