package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ErrNonInteractive is returned when a prompt is needed in non-interactive mode
var ErrNonInteractive = errors.New("interactive prompt not available in non-interactive mode")

// SelectorAdapter handles interactive selection and confirmation
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectRecord selects a registry record from a list
func (s *SelectorAdapter) SelectRecord(ctx context.Context, records []*models.AddressRecord, prompt string) (*models.AddressRecord, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records provided for selection")
	}
	if len(records) == 1 {
		return records[0], nil
	}
	if s.config.NonInteractive {
		return nil, ErrNonInteractive
	}

	options := formatRecordOptions(records)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, type to search, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(searchKeys(records)),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}
	return records[index], nil
}

// Confirm asks a yes/no question. Anything but an explicit yes declines.
func (s *SelectorAdapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if s.config.NonInteractive {
		return false, ErrNonInteractive
	}

	confirm := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}
	_, err := confirm.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, fmt.Errorf("confirmation interrupted: %w", context.Canceled)
		}
		return false, err
	}
	return true, nil
}

// formatRecordOptions creates display strings for record selection
func formatRecordOptions(records []*models.AddressRecord) []string {
	options := make([]string, len(records))
	for i, r := range records {
		name := color.New(color.FgWhite, color.Bold).Sprint(r.UnitName)
		addr := color.New(color.FgBlue).Sprint(r.ProxyAddress.Hex())
		if r.Contract != "" && r.Contract != r.UnitName {
			options[i] = fmt.Sprintf("%s [%s] (%s)", name, r.Contract, addr)
		} else {
			options[i] = fmt.Sprintf("%s (%s)", name, addr)
		}
	}
	return options
}

// searchKeys are the uncolored strings the fuzzy search matches against
func searchKeys(records []*models.AddressRecord) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = strings.Join([]string{r.UnitName, r.Contract, r.ProxyAddress.Hex()}, " ")
	}
	return keys
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])
		if strings.Contains(item, input) {
			return true
		}
		return len(fuzzy.Find(input, []string{item})) > 0
	}
}

var (
	_ usecase.RecordSelector = (*SelectorAdapter)(nil)
	_ usecase.Confirmer      = (*SelectorAdapter)(nil)
)
