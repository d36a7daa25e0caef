package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmeshcher/goldy/internal/escrows"
	"github.com/mmeshcher/goldy/internal/model"
	"github.com/mmeshcher/goldy/internal/wizard"
)

const (
	gold  = lipgloss.Color("#D4A017")
	muted = lipgloss.Color("#8A8A8A")
	green = lipgloss.Color("#2E8B57")
	red   = lipgloss.Color("#C0392B")
	amber = lipgloss.Color("#E69F00")

	barWidth = 30
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(gold).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(amber)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).Width(10)
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(gold).
			Padding(0, 1)
)

func statusStyle(s model.Status) lipgloss.Style {
	switch {
	case s.Is(model.StatusCompleted):
		return successStyle
	case s.Is(model.StatusAuthorized):
		return lipgloss.NewStyle().Foreground(gold)
	default:
		return pendingStyle
	}
}

// progressBar рисует полосу выполнения с отметками границ этапов.
func progressBar(completion float64, positions []float64) string {
	cells := make([]rune, barWidth)
	filled := int(math.Round(completion * barWidth))
	for i := range cells {
		if i < filled {
			cells[i] = '█'
		} else {
			cells[i] = '░'
		}
	}
	for _, p := range positions {
		i := int(math.Round(p*barWidth)) - 1
		if i >= 0 && i < barWidth-1 {
			cells[i] = '│'
		}
	}

	bar := string(cells[:filled]) + mutedStyle.Render(string(cells[filled:]))
	return fmt.Sprintf("%s %3.0f%%", lipgloss.NewStyle().Foreground(gold).Render(bar), completion*100)
}

func money(c model.Cents) string {
	return "$" + c.String()
}

func renderEscrowRow(w io.Writer, e model.Escrow) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		mutedStyle.Render(fmt.Sprintf("#%-4d", e.ID)),
		titleStyle.Render(e.Title),
		statusStyle(e.Status).Render(string(e.Status)),
		money(e.Total),
	)
	fmt.Fprintf(w, "       %s\n", progressBar(e.Completion(), e.Positions()))
}

func renderEscrowList(w io.Writer, list []model.Escrow) {
	if len(list) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No escrows yet."))
		return
	}
	for _, e := range list {
		renderEscrowRow(w, e)
	}
}

func renderEscrowDetail(w io.Writer, e model.Escrow, book *escrows.Book) {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render(e.Title))
	if e.Subtitle != "" {
		fmt.Fprintln(&b, mutedStyle.Render(e.Subtitle))
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("ID"), fmt.Sprint(e.ID))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("STATUS"), statusStyle(e.Status).Render(string(e.Status)))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("TOTAL"), money(e.Total))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("RELEASED"), money(e.Released()))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("REMAINING"), money(e.Remaining()))
	if e.Purpose != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("PURPOSE"), e.Purpose)
	}
	if e.PaymentIntentID != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("PAYMENT"), e.PaymentIntentID)
	}
	fmt.Fprintf(&b, "\n%s\n", progressBar(e.Completion(), e.Positions()))

	if len(e.Milestones) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, mutedStyle.Render("MILESTONES"))
	}
	for i, m := range e.Milestones {
		desc := m.Description
		if desc == "" {
			desc = fmt.Sprintf("Milestone %d", i+1)
		}
		mark := pendingStyle.Render("○ pending")
		if m.Released {
			mark = successStyle.Render("● released")
			if book != nil && book.Provisional(e.ID, m.ID) {
				mark = successStyle.Render("● released") + mutedStyle.Render(" (awaiting confirmation)")
			}
		}
		fmt.Fprintf(&b, "  #%-4d %-28s %12s  %s\n", m.ID, desc, money(m.Amount), mark)
		if m.Conditions != "" {
			fmt.Fprintf(&b, "        %s\n", mutedStyle.Render(m.Conditions))
		}
		if m.DueDate != nil {
			fmt.Fprintf(&b, "        %s\n", mutedStyle.Render("due "+m.DueDate.Format("Jan 2, 2006")))
		}
	}

	fmt.Fprintln(w, cardStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderReview(w io.Writer, d wizard.Draft, fee wizard.FeePolicy) {
	var b strings.Builder
	deposit, _ := model.ParseAmount(d.Deposit)

	fmt.Fprintln(&b, titleStyle.Render("Review escrow"))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("VENDOR"), strings.TrimSpace(d.VendorName))
	if email := strings.TrimSpace(d.VendorEmail); email != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("EMAIL"), email)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("SERVICE"), d.ServiceType)
	if d.ServiceDate != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("DATE"), d.ServiceDate.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("DEPOSIT"), money(deposit))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("FEE"), money(wizard.Fee(deposit, fee))+mutedStyle.Render(" (estimate)"))

	if d.UseMilestones {
		for i, m := range d.Milestones {
			amount, err := model.ParseAmount(m.Amount)
			if err != nil || amount <= 0 {
				continue
			}
			desc := strings.TrimSpace(m.Description)
			if desc == "" {
				desc = fmt.Sprintf("Milestone %d", i+1)
			}
			fmt.Fprintf(&b, "  %-28s %12s\n", desc, money(amount))
		}
	}

	fmt.Fprintln(w, cardStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func renderFieldErrors(w io.Writer, errs map[string]string) {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s: %s\n", errorStyle.Render("✗"), k, errs[k])
	}
}
