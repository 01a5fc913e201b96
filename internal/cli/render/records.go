package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// RecordsRenderer renders registry contents
type RecordsRenderer struct {
	out io.Writer
}

// NewRecordsRenderer creates a new records renderer
func NewRecordsRenderer(out io.Writer) *RecordsRenderer {
	return &RecordsRenderer{out: out}
}

// RenderList renders records as a table
func (r *RecordsRenderer) RenderList(network string, result *usecase.RecordListResult) error {
	if len(result.Records) == 0 {
		fmt.Fprintln(r.out, "No address records found")
		return nil
	}

	if network != "" {
		headerStyle.Fprintf(r.out, "%s\n", network)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateRows = false
	t.AppendHeader(table.Row{"Unit", "Proxy", "Implementation", "Block", "Initialized"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignCenter},
	})

	for _, record := range result.Records {
		unit := unitStyle.Sprint(record.UnitName)
		if _, stale := result.Stale[record.UnitName]; stale {
			unit = failureStyle.Sprint("✗ ") + unit
		}
		if record.Contract != "" && record.Contract != record.UnitName {
			unit += faintStyle.Sprintf(" [%s]", record.Contract)
		}
		t.AppendRow(table.Row{
			unit,
			formatAddress(record.ProxyAddress),
			formatAddress(record.ImplementationAddress),
			record.DeployedAtBlock,
			initializedMark(record.Initialized),
		})
	}
	t.Render()

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%d records", result.Summary.Total)
	if result.Summary.Uninitialized > 0 {
		fmt.Fprint(r.out, pendingStyle.Sprintf(", %d not marked initialized", result.Summary.Uninitialized))
	}
	if result.Summary.Stale > 0 {
		fmt.Fprint(r.out, failureStyle.Sprintf(", %d missing on chain", result.Summary.Stale))
	}
	fmt.Fprintln(r.out)

	for _, record := range result.Records {
		if reason, stale := result.Stale[record.UnitName]; stale {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%s: %s", record.UnitName, reason)))
		}
	}
	return nil
}

// RenderRecord renders every field of one record
func (r *RecordsRenderer) RenderRecord(record *models.AddressRecord) error {
	headerStyle.Fprintf(r.out, "Unit: %s\n", record.UnitName)
	fmt.Fprintln(r.out, separator)

	rows := [][2]string{
		{"Contract", record.Contract},
		{"Proxy", formatAddress(record.ProxyAddress)},
		{"Implementation", formatAddress(record.ImplementationAddress)},
		{"Implementation hash", record.ImplementationHash.Hex()},
		{"Proxy admin", formatAddress(record.ProxyAdmin)},
		{"Initialized", initializedMark(record.Initialized)},
		{"Deployed at block", fmt.Sprint(record.DeployedAtBlock)},
		{"Dependencies", listOrDash(record.Dependencies)},
		{"Init args", listOrDash(record.InitArgs)},
		{"Created", formatTime(record.CreatedAt)},
		{"Updated", formatTime(record.UpdatedAt)},
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "%-20s %s\n", row[0]+":", row[1])
	}
	return nil
}

func initializedMark(initialized bool) string {
	if initialized {
		return successStyle.Sprint("✓")
	}
	return pendingStyle.Sprint("pending")
}

func listOrDash(values []string) string {
	if len(values) == 0 {
		return faintStyle.Sprint("-")
	}
	return strings.Join(values, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return faintStyle.Sprint("-")
	}
	return t.Local().Format(time.RFC3339)
}
