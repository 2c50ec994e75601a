package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/banyan/internal/model"
)

var (
	statusCheckedOut = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusPopulated  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusFailed     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	headerStyle      = lipgloss.NewStyle().Bold(true)
)

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, v any, text func(io.Writer)) error {
	switch output {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}

// styleStatus pads a checkout status to a fixed width and colors it. The
// padding is applied before styling so escape codes do not skew columns.
func styleStatus(s model.CheckoutStatus) string {
	padded := fmt.Sprintf("%-17s", s)
	switch s {
	case model.StatusCheckedOut:
		return statusCheckedOut.Render(padded)
	case model.StatusAlreadyPopulated:
		return statusPopulated.Render(padded)
	case model.StatusFailed:
		return statusFailed.Render(padded)
	default:
		return padded
	}
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
