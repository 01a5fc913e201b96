package render

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	unitStyle    = color.New(color.FgCyan, color.Bold)
	addressStyle = color.New(color.FgWhite)
	faintStyle   = color.New(color.Faint)
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	pendingStyle = color.New(color.FgYellow)
	successStyle = color.New(color.FgGreen)
	failureStyle = color.New(color.FgRed)
	upgradeStyle = color.New(color.FgMagenta)

	titleCaser = cases.Title(language.English)
	separator  = strings.Repeat("─", 50)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return pendingStyle.Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon. Only the last
// element of a wrapped error chain is shown.
func FormatError(message string) string {
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return failureStyle.Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return successStyle.Sprintf("✅ %s", message)
}

// actionLabel renders a planned action
func actionLabel(d models.Decision) string {
	label := titleCaser.String(string(d.Action))
	if d.MarkInitialized {
		label += " + mark initialized"
	}
	switch d.Action {
	case models.ActionFreshDeploy:
		return successStyle.Sprint(label)
	case models.ActionUpgrade:
		return upgradeStyle.Sprint(label)
	default:
		return faintStyle.Sprint(label)
	}
}

// outcomeLabel renders what happened to a unit
func outcomeLabel(o models.Outcome) string {
	label := titleCaser.String(string(o))
	switch o {
	case models.OutcomeDeployed:
		return successStyle.Sprint(label)
	case models.OutcomeUpgraded:
		return upgradeStyle.Sprint(label)
	case models.OutcomeFailed:
		return failureStyle.Sprint(label)
	default:
		return faintStyle.Sprint(label)
	}
}

func formatAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return faintStyle.Sprint("-")
	}
	return addressStyle.Sprint(addr.Hex())
}
