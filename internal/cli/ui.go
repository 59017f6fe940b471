package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 1)

	artifactStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(20)

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)
)

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func configured(v string) string {
	if v == "" {
		return errorStyle.Render("not configured")
	}
	return completedStyle.Render("configured")
}

func renderRunResult(res *models.RunResult) string {
	var b strings.Builder
	b.WriteString(row("Run ID", res.RunID))
	b.WriteString(row("Timestamp", res.Timestamp))
	b.WriteString(row("Duration", res.Duration.Round(time.Millisecond).String()))

	status := completedStyle.Render("success")
	if !res.Success {
		status = errorStyle.Render("failed")
	}
	b.WriteString(row("Status", status))

	if len(res.UploadedKeys) > 0 {
		b.WriteString("\nUploaded:\n")
		for _, key := range res.UploadedKeys {
			b.WriteString("  " + completedStyle.Render("✓") + " " + key + "\n")
		}
	}
	if len(res.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range res.Errors {
			b.WriteString("  " + errorStyle.Render("✗") + " " + e + "\n")
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderArtifact(key, content string) string {
	return artifactStyle.Render(titleStyle.Render(key) + "\n\n" + strings.TrimRight(content, "\n"))
}

// renderConfig shows the effective settings. Credentials are reported only
// as configured or not.
func renderConfig(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("MacroAgent configuration") + "\n\n")

	b.WriteString(row("Results Directory", orDash(cfg.ResultsDir)))
	b.WriteString(row("Catalog", orText(cfg.CatalogPath, "embedded")))
	b.WriteString("\n")

	b.WriteString(row("ECOS API", configured(cfg.ECOSAPIKey)))
	b.WriteString(row("FRED API", configured(cfg.FREDAPIKey)))
	b.WriteString(row("HTTP Timeout", cfg.HTTPTimeout.String()))
	b.WriteString(row("Retries", fmt.Sprintf("%d x %s", cfg.MaxRetries, cfg.RetryDelay)))
	b.WriteString("\n")

	key, env := cfg.LLMAPIKey()
	b.WriteString(row("LLM Provider", cfg.LLMProvider))
	b.WriteString(row("Model", cfg.ModelName()))
	b.WriteString(row(env, configured(key)))
	b.WriteString(row("Temperatures", fmt.Sprintf("report %.1f, summary %.1f", cfg.ReportTemperature, cfg.SummaryTemperature)))
	b.WriteString(row("Thinking Level", orDash(cfg.ThinkingLevel)))
	b.WriteString(row("Search Grounding", fmt.Sprintf("%t", cfg.SearchGrounding)))
	b.WriteString(row("Summaries", fmt.Sprintf("%t", cfg.Summaries)))
	b.WriteString("\n")

	b.WriteString(row("S3 Endpoint", cfg.S3Endpoint))
	b.WriteString(row("Bucket", cfg.S3Bucket))
	b.WriteString(row("Folder", orDash(cfg.S3Folder)))
	b.WriteString(row("Region", cfg.AWSRegion))
	b.WriteString(row("AWS Credentials", configured(cfg.AWSAccessKeyID)))
	b.WriteString("\n")

	b.WriteString(row("Server Address", cfg.ServerAddr))
	b.WriteString(row("Schedule", cfg.ScheduleInterval.String()))
	b.WriteString(row("Eino Debug", fmt.Sprintf("%t", cfg.EinoDebugEnabled)))
	if cfg.EinoDebugEnabled {
		b.WriteString(row("Debug URL", fmt.Sprintf("http://localhost:%d", cfg.EinoDebugPort)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(v string) string {
	return orText(v, "-")
}

func orText(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
