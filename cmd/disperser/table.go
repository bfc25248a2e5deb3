package main

import (
	"fmt"
	"strconv"

	"github.com/PumpLamp/DisperseSol/client"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/receiving"
	"github.com/PumpLamp/DisperseSol/sending"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorBlue   = lipgloss.Color("#89b4fa")
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorYellow = lipgloss.Color("#f9e2af")
	colorRed    = lipgloss.Color("#f38ba8")
	colorText   = lipgloss.Color("#cdd6f4")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue).
			Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)

	statusStyles = map[sending.Status]lipgloss.Style{
		sending.StatusSucceeded: lipgloss.NewStyle().Foreground(colorGreen),
		sending.StatusSkipped:   lipgloss.NewStyle().Foreground(colorYellow),
		sending.StatusFailed:    lipgloss.NewStyle().Foreground(colorRed),
	}
)

// menuEntry is one row of the home menu.
type menuEntry struct {
	label       string
	description string
	state       flowState
}

var menuEntries = []menuEntry{
	{
		label: "Create Wallets",
		description: "Generate the wallets used for dispersal, " +
			"backing up the current wallet store",
		state: stateGenerate,
	},
	{
		label:       "Disperse SOL",
		description: "Disperse SOL to every wallet",
		state:       stateDisperse,
	},
	{
		label:       "Collect All SOL",
		description: "Collect SOL from every wallet to the operating account",
		state:       stateCollect,
	},
	{
		label:       "Balance Check",
		description: "Show the balance of every wallet",
		state:       stateBalances,
	},
	{
		label:       "Quit",
		description: "Quit the disperser",
		state:       stateQuit,
	},
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBlue)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// renderMenu renders the home menu.
func renderMenu() string {
	t := newTable("Command", "Label", "Description")
	for i, entry := range menuEntries {
		t.Row(strconv.Itoa(i+1), entry.label, entry.description)
	}

	return titleStyle.Render("DisperseSol") + "\n" + t.String()
}

// renderBalances renders the operating balance followed by every wallet.
func renderBalances(sheet *client.BalanceSheet) string {
	t := newTable("#", "Address", "Balance (SOL)")
	t.Row("main", sheet.Operating.Address.String(),
		balanceCell(sheet.Operating))

	for _, w := range sheet.Wallets {
		t.Row(strconv.Itoa(w.Index+1), w.Address.String(),
			balanceCell(w))
	}
	t.Row("", "Wallet total", sheet.WalletTotal().String())

	return t.String()
}

func balanceCell(entry *client.BalanceEntry) string {
	if entry.Err != nil {
		return "unavailable"
	}

	return entry.Balance.String()
}

// renderDispersal renders per-wallet results and the run summary.
func renderDispersal(report *sending.Report) string {
	t := newTable("#", "Wallet", "Amount (SOL)", "Status", "Detail")
	for _, res := range report.Results {
		detail := ""
		switch {
		case res.Err != nil:
			detail = res.Err.Error()

		case res.Status == sending.StatusSucceeded:
			detail = res.Signature.String()
		}

		status := statusStyles[res.Status].Render(string(res.Status))
		t.Row(strconv.Itoa(res.Index+1), res.Wallet.String(),
			res.Amount.String(), status, detail)
	}

	return t.String() + "\n" + summaryLine(
		report.Count(sending.StatusSucceeded),
		report.Count(sending.StatusSkipped),
		report.Count(sending.StatusFailed),
	) + fmt.Sprintf("\nDispersed %v SOL using %s amounts",
		report.Total(), report.Strategy)
}

// renderCollection renders per-batch results and the run summary.
func renderCollection(report *receiving.Report) string {
	t := newTable("Batch", "First wallet", "Wallets", "Amount (SOL)",
		"Detail")
	for _, b := range report.Batches {
		detail := b.Signature.String()
		if b.Failed {
			reason := string(sending.StatusFailed)
			if b.Err != nil {
				reason = b.Err.Error()
			}
			detail = statusStyles[sending.StatusFailed].Render(reason)
		}

		t.Row(strconv.Itoa(b.Number), b.First().String(),
			strconv.Itoa(len(b.Wallets)),
			ledger.FromLamports(b.Lamports).String(), detail)
	}

	return t.String() + "\n" + summaryLine(
		report.Succeeded(), len(report.Skipped), report.Failed(),
	) + fmt.Sprintf("\nCollected %v SOL",
		ledger.FromLamports(report.Collected()))
}

// summaryLine counts the wallets of a run by result.
func summaryLine(succeeded, skipped, failed int) string {
	return fmt.Sprintf("%s %d  %s %d  %s %d",
		statusStyles[sending.StatusSucceeded].Render("Succeeded:"),
		succeeded,
		statusStyles[sending.StatusSkipped].Render("Skipped:"), skipped,
		statusStyles[sending.StatusFailed].Render("Failed:"), failed,
	)
}
