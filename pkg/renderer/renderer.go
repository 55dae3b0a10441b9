// Package renderer prints decoded tables, catalogs and rescale proposals to
// the terminal with pterm.
package renderer

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/session"
)

// Display modes accepted by BuildTableString.
const (
	ModeValues  = "values"
	ModeHeatmap = "heatmap"
	ModeSymbols = "symbols"
)

// Modes lists the supported display modes.
var Modes = []string{ModeValues, ModeHeatmap, ModeSymbols}

// RenderTable prints one decoded table in a titled box.
func RenderTable(t models.Table, def models.TableDefinition, displayMode string) {
	min, max := t.MinMax()
	title := fmt.Sprintf("%s | Offset: 0x%06X | %s | Range: %.2f-%.2f %s",
		t.Name, def.Offset, def.Shape, min, max, t.Unit)

	if def.Description != "" {
		pterm.Info.Println(def.Description)
	}
	pterm.DefaultBox.WithTitle(title).WithTitleTopLeft().Println(BuildTableString(t, displayMode, min, max))
}

// BuildTableString formats a table with its column labels across the top
// and its row labels down the left edge.
func BuildTableString(t models.Table, displayMode string, min, max float64) string {
	var result strings.Builder

	width := 8
	if displayMode != ModeValues {
		width = 4
	}

	// Header
	result.WriteString("          |")
	for j := 0; j < t.Cols(); j++ {
		result.WriteString(label(t.ColAxis, j, width))
	}
	result.WriteString("\n")
	result.WriteString("  ------- |" + strings.Repeat("-", t.Cols()*width) + "\n")

	// Data rows
	for i, row := range t.Values {
		result.WriteString(fmt.Sprintf(" %8s |", strings.TrimSpace(label(t.RowAxis, i, 8))))
		for _, value := range row {
			switch displayMode {
			case ModeValues:
				result.WriteString(valueStyle(value, min, max).Sprintf("%8.2f", value))
			case ModeHeatmap:
				result.WriteString(heatCell(value, min, max) + "  ")
			default:
				result.WriteString(strings.Repeat(symbolCell(value, min, max), width))
			}
		}
		result.WriteString("\n")
	}

	// Legend
	switch displayMode {
	case ModeHeatmap:
		result.WriteString("\n" + heatLegend())
	case ModeSymbols:
		result.WriteString("\n" + symbolLegend())
	}

	return result.String()
}

func label(axis models.Axis, i, width int) string {
	if i >= len(axis) {
		return fmt.Sprintf("%*s", width, "?")
	}
	return fmt.Sprintf("%*.*g", width, width-2, axis[i])
}

// heatShades and levels order the display styles from the low to the high
// end of a table's range.
var heatShades = []struct {
	style *pterm.Style
	name  string
}{
	{pterm.NewStyle(pterm.BgBlue, pterm.FgWhite), "Very Low"},
	{pterm.NewStyle(pterm.BgCyan, pterm.FgBlack), "Low"},
	{pterm.NewStyle(pterm.BgGreen, pterm.FgBlack), "Medium"},
	{pterm.NewStyle(pterm.BgYellow, pterm.FgBlack), "High"},
	{pterm.NewStyle(pterm.BgRed, pterm.FgWhite), "Very High"},
}

var levels = []struct {
	color  pterm.Color
	symbol string
	name   string
}{
	{pterm.FgCyan, "░", "Low"},
	{pterm.FgGreen, "▒", "Med"},
	{pterm.FgYellow, "▓", "High"},
	{pterm.FgRed, "█", "Max"},
}

// band places value in one of n equal slices of [min, max]. It returns -1
// for a flat table.
func band(value, min, max float64, n int) int {
	if max == min {
		return -1
	}
	f := (value - min) / (max - min) * float64(n)
	switch {
	case !(f < float64(n)):
		return n - 1
	case f < 0:
		return 0
	}
	return int(f)
}

func heatCell(value, min, max float64) string {
	b := band(value, min, max, len(heatShades))
	if b < 0 {
		return pterm.BgGray.Sprint("  ")
	}
	return heatShades[b].style.Sprint("▄▄")
}

func heatLegend() string {
	parts := make([]string, len(heatShades))
	for i, h := range heatShades {
		parts[i] = h.style.Sprint("▄▄") + " " + h.name
	}
	return "Heatmap: " + strings.Join(parts, "  ")
}

func symbolCell(value, min, max float64) string {
	b := band(value, min, max, len(levels))
	if b < 0 {
		return pterm.FgGray.Sprint("·")
	}
	return levels[b].color.Sprint(levels[b].symbol)
}

func symbolLegend() string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = l.color.Sprint(l.symbol) + " " + l.name
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func valueStyle(value, min, max float64) *pterm.Style {
	b := band(value, min, max, len(levels))
	if b < 0 {
		return pterm.NewStyle(pterm.FgGray)
	}
	return pterm.NewStyle(levels[b].color)
}

// VariantRows returns the catalog overview as table rows, header first.
func VariantRows(c *models.Catalog) [][]string {
	data := [][]string{
		{"Variant", "Table", "Offset", "Size", "Bits", "Scaling", "Layout"},
	}
	for _, name := range c.Names() {
		v, err := c.Variant(name)
		if err != nil {
			continue
		}
		for _, tname := range v.TableNames() {
			def := v.Tables[tname]
			data = append(data, []string{
				v.Name,
				tname,
				fmt.Sprintf("0x%06X", def.Offset),
				def.Shape.String(),
				fmt.Sprintf("%d", def.BitWidth),
				def.Scaling.String(),
				def.Layout.String(),
			})
		}
	}
	return data
}

// ListVariants displays every variant of the catalog and its tables.
func ListVariants(c *models.Catalog) {
	pterm.DefaultHeader.WithFullWidth().Println("Calibration Variants")
	if err := pterm.DefaultTable.WithHasHeader().WithData(VariantRows(c)).Render(); err != nil {
		pterm.Error.Printf("Could not render catalog: %v\n", err)
	}
}

// DisplayDecoded prints the named maps of a decode, or every map when names
// is empty.
func DisplayDecoded(dec *models.Decoded, displayMode string, names ...string) {
	if len(names) == 0 {
		names = dec.Variant.Maps()
	}

	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgDarkGray)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightWhite)).
		Println("Map Rescaler - " + dec.Variant.Name)
	pterm.Println()

	for i, name := range names {
		if i > 0 {
			pterm.Println()
		}
		if axis, ok := dec.Axes[name]; ok {
			pterm.Info.Printf("%s: %s\n", name, axis)
			continue
		}
		t, ok := dec.Tables[name]
		if !ok {
			pterm.Error.Printf("Unknown table: %s\n", name)
			continue
		}
		RenderTable(t, dec.Variant.Tables[name], displayMode)
	}
}

// RenderProposal prints a rescale proposal: the new primary table, the
// suggested axis and the rescaled secondary table.
func RenderProposal(dec *models.Decoded, p *session.Proposal, displayMode string) {
	pterm.DefaultSection.Println("Rescale proposal for " + p.Variant)

	v := dec.Variant
	if old, ok := dec.Tables[v.Primary]; ok {
		pterm.Info.Printf("Current %s: %s\n", v.Tables[v.Primary].RowAxis, old.RowAxis)
	}
	pterm.Info.Printf("New %s: %s\n", v.Tables[v.Primary].RowAxis, p.NewAxis)
	RenderTable(p.Primary, v.Tables[v.Primary], displayMode)

	pterm.Println()
	pterm.Info.Printf("Suggested axis: %s\n", p.SuggestedAxis)
	if p.Secondary != nil {
		RenderTable(*p.Secondary, v.Tables[v.Secondary], displayMode)
	}
}
