package wizard

import (
	"fmt"
	"strings"

	"vendor-onboarding/internal/onboarding"
)

func (m Model) View() string {
	var b strings.Builder
	s := m.snap

	b.WriteString(titleStyle.Render("Vendor onboarding"))
	b.WriteString("\n")

	if s.Phase == onboarding.PhaseCompleted {
		b.WriteString(successStyle.Render(fmt.Sprintf("Onboarding complete (%.0f%%). You can close this window.", s.Completion.Percentage)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(stepStyle.Render(fmt.Sprintf("Step %d of %d · %s", int(s.CurrentStep), len(onboarding.Steps), stepTitle(s.CurrentStep))))
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(s.Completion.Percentage / 100))
	b.WriteString(fmt.Sprintf(" %.0f%%\n", s.Completion.Percentage))

	if s.IsBootstrapping || s.Phase == onboarding.PhaseUninitialized {
		b.WriteString(formStyle.Render("Loading your saved progress..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(formStyle.Render(m.renderForm()))
	b.WriteString("\n")

	if s.IsSubmitting || m.inflight > 0 {
		b.WriteString(warningStyle.Render("Saving..."))
		b.WriteString("\n")
	}
	if s.Failure != nil {
		msg := s.Failure.Cause.Message
		if s.Failure.Retryable() {
			msg += " Press enter to try again."
		}
		b.WriteString(errorStyle.Render("Not saved: " + msg))
		b.WriteString("\n")
	}
	if s.BootstrapWarning != nil {
		b.WriteString(warningStyle.Render("Could not load your saved progress; starting fresh."))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice)
		b.WriteString("\n")
	}

	help := "enter: save & continue · tab: next field · ctrl+b: back · esc: quit"
	if s.CurrentStep == onboarding.StepVendorType || s.CurrentStep == onboarding.StepVerification {
		help = "ctrl+v: change selection · " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) renderForm() string {
	var b strings.Builder
	s := m.snap

	switch s.CurrentStep {
	case onboarding.StepVendorType:
		m.writeChoice(&b, onboarding.FieldVendorType, orDash(s.Draft.VendorType))
	case onboarding.StepVerification:
		choice := s.Draft.VerificationType
		if choice == onboarding.VerificationManual {
			choice = fmt.Sprintf("%s (%s)", choice, orDash(s.Draft.IDType))
			if msg, ok := s.Errors[onboarding.FieldIDType]; ok {
				choice += "\n" + fieldErrorStyle.Render(msg)
			}
		}
		m.writeChoice(&b, onboarding.FieldVerificationType, choice)
	}

	for _, f := range m.fields {
		b.WriteString(labelStyle.Render(fieldLabels[f]))
		b.WriteString("\n")
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")
		if msg, ok := s.Errors[f]; ok {
			b.WriteString(fieldErrorStyle.Render(msg))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) writeChoice(b *strings.Builder, f onboarding.Field, value string) {
	b.WriteString(labelStyle.Render(fieldLabels[f]))
	b.WriteString("  ")
	b.WriteString(choiceStyle.Render(value))
	b.WriteString("\n")
	if msg, ok := m.snap.Errors[f]; ok {
		b.WriteString(fieldErrorStyle.Render(msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
