package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/completion"
	"vendor-onboarding/internal/onboarding"
	"vendor-onboarding/internal/platform"
	"vendor-onboarding/internal/wizard"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run the interactive onboarding wizard",
	RunE:  runOnboard,
}

func runOnboard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	tok, err := resolveToken()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := platform.New(ctx, cfg, log, platform.Options{
		Sinks:          []string{config.SinkFlag},
		ConnectRetries: 2,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer p.Close()

	principal, err := resolvePrincipal(ctx, p.Verifier(), tok)
	if err != nil {
		return err
	}

	if p.Flags != nil {
		done, err := p.Flags.IsCompleted(ctx, principal.VendorID)
		if err != nil {
			log.Warn("completion flag lookup failed", map[string]interface{}{"error": err.Error()})
		} else if done {
			fmt.Fprintln(cmd.OutOrStdout(), "This vendor has already completed onboarding.")
			return nil
		}
	}

	ctrl := onboarding.NewController(
		p.VendorAPI.WithToken(tok),
		onboarding.WithLogger(log.WithFields(map[string]interface{}{"vendorId": principal.VendorID})),
		onboarding.WithCompletionHandler(completionHandler(ctx, p.Dispatcher, principal.VendorID, principal.Email, log)),
	)
	defer ctrl.Close()

	final, err := tea.NewProgram(wizard.New(ctx, ctrl), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	if m, ok := final.(wizard.Model); ok && m.Completed() {
		fmt.Fprintf(cmd.OutOrStdout(), "Onboarding complete (%.0f%%).\n", m.Snapshot().Completion.Percentage)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Progress saved. Run `vendorctl onboard` again to continue.")
	return nil
}

func completionHandler(ctx context.Context, d *completion.Dispatcher, vendorID, email string, log logger.Logger) func(onboarding.CompletedEvent) {
	return func(ev onboarding.CompletedEvent) {
		if err := d.Dispatch(ctx, completion.NewRecord(vendorID, email, ev)); err != nil {
			log.Warn("completion dispatch failed", map[string]interface{}{
				"vendorId": vendorID,
				"error":    err.Error(),
			})
		}
	}
}
