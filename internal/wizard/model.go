// Package wizard is the terminal front end for one onboarding controller.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vendor-onboarding/internal/onboarding"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type bootstrappedMsg struct{ err error }

type advancedMsg struct {
	outcome onboarding.Outcome
	err     error
}

var fieldLabels = map[onboarding.Field]string{
	onboarding.FieldVendorType:           "Vendor type",
	onboarding.FieldBusinessName:         "Business name",
	onboarding.FieldBusinessAddressLine1: "Address line 1",
	onboarding.FieldBusinessAddressLine2: "Address line 2 (optional)",
	onboarding.FieldCity:                 "City",
	onboarding.FieldState:                "State",
	onboarding.FieldPostalCode:           "Postal code",
	onboarding.FieldVerificationType:     "Verification",
	onboarding.FieldGSTNumber:            "GSTIN",
	onboarding.FieldIDType:               "ID type",
	onboarding.FieldIDNumber:             "ID number",
}

var placeholders = map[onboarding.Field]string{
	onboarding.FieldBusinessName:         "Acme Traders Pvt Ltd",
	onboarding.FieldBusinessAddressLine1: "12 MG Road",
	onboarding.FieldCity:                 "Pune",
	onboarding.FieldState:                "Maharashtra",
	onboarding.FieldPostalCode:           "411001",
	onboarding.FieldGSTNumber:            "27AAPFU0939F1ZV",
	onboarding.FieldIDNumber:             "ABCDE1234F",
}

// verificationChoices is the ctrl+v cycle on the verification step.
var verificationChoices = []struct{ kind, idType string }{
	{onboarding.VerificationGST, ""},
	{onboarding.VerificationManual, onboarding.IDTypeAadhaar},
	{onboarding.VerificationManual, onboarding.IDTypePAN},
}

// Model drives a single controller. Every state change is read back from
// the controller snapshot; the model only owns focus and input widgets.
type Model struct {
	ctx  context.Context
	ctrl *onboarding.Controller

	inputs   map[onboarding.Field]textinput.Model
	fields   []onboarding.Field
	focus    int
	progress progress.Model

	snap     onboarding.Snapshot
	inflight int
	notice   string
	width    int
	quitting bool
}

func New(ctx context.Context, ctrl *onboarding.Controller) Model {
	inputs := make(map[onboarding.Field]textinput.Model, len(onboarding.Fields))
	for _, f := range onboarding.Fields {
		ti := textinput.New()
		ti.Placeholder = placeholders[f]
		ti.CharLimit = 120
		ti.Width = 40
		inputs[f] = ti
	}

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		inputs:   inputs,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.sync()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bootstrap())
}

// Completed reports whether the workflow finished while the program ran.
func (m Model) Completed() bool {
	return m.snap.Phase == onboarding.PhaseCompleted
}

// Snapshot returns the last state the model rendered.
func (m Model) Snapshot() onboarding.Snapshot {
	return m.snap
}

func (m Model) bootstrap() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return bootstrappedMsg{err: ctrl.Initialize(ctx)}
	}
}

func (m Model) advance() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		outcome, err := ctrl.Advance(ctx)
		return advancedMsg{outcome: outcome, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 60 {
			m.progress.Width = w
		}
		return m, nil

	case bootstrappedMsg:
		m.notice = ""
		m.sync()
		return m, nil

	case advancedMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		m.notice = noticeFor(msg.outcome, msg.err)
		m.sync()
		if msg.outcome == onboarding.OutcomeCompleted {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		if m.Completed() {
			m.quitting = true
			return m, tea.Quit
		}
		m.inflight++
		m.notice = ""
		return m, m.advance()

	case "ctrl+b":
		if err := m.ctrl.GoToPrevious(); err != nil {
			m.notice = commandNotice(err)
		}
		m.sync()
		return m, nil

	case "ctrl+v":
		if err := m.cycleChoice(); err != nil {
			m.notice = commandNotice(err)
		}
		m.sync()
		return m, nil

	case "tab", "down":
		m.moveFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	}
	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and copies any change
// into the draft.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.fields) == 0 {
		return m, nil
	}
	field := m.fields[m.focus]
	before := m.inputs[field].Value()

	ti, cmd := m.inputs[field].Update(msg)
	m.inputs[field] = ti

	if ti.Value() != before {
		if err := m.ctrl.Edit(field, ti.Value()); err != nil {
			m.notice = commandNotice(err)
		}
		m.snap = m.ctrl.Snapshot()
	}
	return m, cmd
}

// cycleChoice rotates the selectable value of the current step: the vendor
// type on step 1, the verification branch and id type on step 3.
func (m Model) cycleChoice() error {
	d := m.snap.Draft
	switch m.snap.CurrentStep {
	case onboarding.StepVendorType:
		next := onboarding.VendorTypes[0]
		current := strings.ToUpper(strings.TrimSpace(d.VendorType))
		for i, vt := range onboarding.VendorTypes {
			if vt == current {
				next = onboarding.VendorTypes[(i+1)%len(onboarding.VendorTypes)]
			}
		}
		return m.ctrl.Edit(onboarding.FieldVendorType, next)

	case onboarding.StepVerification:
		idx := 0
		for i, c := range verificationChoices {
			if c.kind == d.VerificationType && (c.idType == "" || c.idType == d.IDType) {
				idx = i
			}
		}
		next := verificationChoices[(idx+1)%len(verificationChoices)]
		if err := m.ctrl.Edit(onboarding.FieldVerificationType, next.kind); err != nil {
			return err
		}
		if next.idType != "" {
			return m.ctrl.Edit(onboarding.FieldIDType, next.idType)
		}
	}
	return nil
}

func (m *Model) moveFocus(delta int) {
	if len(m.fields) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.applyFocus()
}

func (m *Model) applyFocus() {
	for i, f := range m.fields {
		ti := m.inputs[f]
		if i == m.focus {
			ti.Focus()
		} else {
			ti.Blur()
		}
		m.inputs[f] = ti
	}
}

// sync re-reads the controller and rebuilds the visible inputs when the
// step or verification branch changed.
func (m *Model) sync() {
	prevStep, prevFields := m.snap.CurrentStep, m.fields
	m.snap = m.ctrl.Snapshot()
	m.fields = inputFields(m.snap)

	for _, f := range m.fields {
		ti := m.inputs[f]
		if v := m.snap.Draft.Get(f); ti.Value() != v {
			ti.SetValue(v)
		}
		m.inputs[f] = ti
	}

	if prevStep != m.snap.CurrentStep || !sameFields(prevFields, m.fields) {
		m.focus = 0
	}
	if m.focus >= len(m.fields) {
		m.focus = 0
	}
	m.applyFocus()
}

// inputFields lists the free-text fields of the current step. Choice fields
// are driven by ctrl+v.
func inputFields(s onboarding.Snapshot) []onboarding.Field {
	switch s.CurrentStep {
	case onboarding.StepBusinessInfo:
		return []onboarding.Field{
			onboarding.FieldBusinessName,
			onboarding.FieldBusinessAddressLine1,
			onboarding.FieldBusinessAddressLine2,
			onboarding.FieldCity,
			onboarding.FieldState,
			onboarding.FieldPostalCode,
		}
	case onboarding.StepVerification:
		if onboarding.ActiveVerification(s.Draft) == onboarding.VerificationManual {
			return []onboarding.Field{onboarding.FieldIDNumber}
		}
		return []onboarding.Field{onboarding.FieldGSTNumber}
	}
	return nil
}

func sameFields(a, b []onboarding.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func noticeFor(outcome onboarding.Outcome, err error) string {
	switch outcome {
	case onboarding.OutcomeAdvanced:
		return "Saved."
	case onboarding.OutcomeCompleted:
		return "Onboarding complete."
	case onboarding.OutcomeInvalid, onboarding.OutcomeFailed, onboarding.OutcomeIgnored:
		return ""
	}
	if err != nil {
		return commandNotice(err)
	}
	return ""
}

func commandNotice(err error) string {
	switch {
	case errors.Is(err, onboarding.ErrNotReady):
		return "Still loading your saved progress..."
	case errors.Is(err, onboarding.ErrWorkflowCompleted):
		return "Onboarding is already complete."
	case errors.Is(err, onboarding.ErrClosed):
		return "Session closed."
	}
	return fmt.Sprintf("Error: %v", err)
}

func stepTitle(s onboarding.Step) string {
	switch s {
	case onboarding.StepVendorType:
		return "Vendor type"
	case onboarding.StepBusinessInfo:
		return "Business information"
	case onboarding.StepVerification:
		return "Verification"
	}
	return s.String()
}
