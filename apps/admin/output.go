package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/trezcool/masomo-admin/core/automation"
	"github.com/trezcool/masomo-admin/core/violation"
)

// palette maps the automation appearance colors to terminal colors.
var palette = map[string]lipgloss.Color{
	"gray":   lipgloss.Color("#7F8C8D"),
	"blue":   lipgloss.Color("#3498DB"),
	"red":    lipgloss.Color("#E74C3C"),
	"purple": lipgloss.Color("#9B59B6"),
	"teal":   lipgloss.Color("#20B9B4"),
	"indigo": lipgloss.Color("#5C6BC0"),
	"orange": lipgloss.Color("#E67E22"),
	"amber":  lipgloss.Color("#F4D03F"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(palette["gray"])
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	errorStyle   = lipgloss.NewStyle().Foreground(palette["red"])
)

var statusStyles = map[violation.Status]lipgloss.Style{
	violation.StatusPending:    lipgloss.NewStyle().Foreground(palette["amber"]),
	violation.StatusInProgress: lipgloss.NewStyle().Foreground(palette["blue"]),
	violation.StatusCompleted:  successStyle,
	violation.StatusCancelled:  mutedStyle,
}

func renderStatus(s violation.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func renderViolations(vs []violation.Violation) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DATE", "STUDENT", "DEGREE", "TYPE", "STATUS", "STEPS")
	for _, v := range vs {
		done, total := v.Progress()
		t.Row(v.ID, v.Date+" "+v.Time, v.StudentName, strconv.Itoa(int(v.Degree)), v.Type,
			renderStatus(v.Status), fmt.Sprintf("%d/%d", done, total))
	}
	return t.String()
}

func renderViolation(v violation.Violation) string {
	out := titleStyle.Render(fmt.Sprintf("%s - %s (degree %d)", v.StudentName, v.Type, v.Degree)) +
		"  " + renderStatus(v.Status) + "\n"
	for _, p := range v.Procedures {
		out += fmt.Sprintf("  %s %d. %s\n", check(p.Completed), p.Step, p.Title)
		for _, t := range p.Tasks {
			line := fmt.Sprintf("      %s %s", check(t.Completed), t.Title)
			if t.AutomationTrigger != "" {
				line += "  " + renderAppearance(automation.ParseTrigger(t.AutomationTrigger).Appearance(t.Points))
			}
			out += line + "\n"
		}
		if p.Notes != "" {
			out += mutedStyle.Render("      notes: "+p.Notes) + "\n"
		}
	}
	return out
}

func renderAppearance(a automation.Appearance) string {
	style := lipgloss.NewStyle().Foreground(palette[a.Color])
	return style.Render("[" + a.Label + "]")
}

func check(done bool) string {
	if done {
		return successStyle.Render("[x]")
	}
	return mutedStyle.Render("[ ]")
}
