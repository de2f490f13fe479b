package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/onboarding"
	"vendor-onboarding/internal/platform"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved onboarding progress",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	tok, err := resolveToken()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := platform.New(ctx, cfg, log, platform.Options{
		Sinks:          []string{config.SinkFlag},
		ConnectRetries: 1,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer p.Close()

	principal, err := resolvePrincipal(ctx, p.Verifier(), tok)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if p.Flags != nil && printCompleted(ctx, out, p.Flags, principal.VendorID, log) {
		return nil
	}

	profile, err := p.VendorAPI.WithToken(tok).FetchDraft(ctx)
	if err != nil && !errors.Is(err, onboarding.ErrDraftNotFound) {
		return fmt.Errorf("fetch saved draft: %w", err)
	}
	printStatus(out, profile)
	return nil
}

type completionLookup interface {
	CompletedAt(ctx context.Context, vendorID string) (time.Time, error)
}

// printCompleted reports a durable completion flag and returns true when one
// is set. A failed lookup falls through to the saved draft.
func printCompleted(ctx context.Context, w io.Writer, flags completionLookup, vendorID string, log logger.Logger) bool {
	at, err := flags.CompletedAt(ctx, vendorID)
	if err != nil {
		log.Warn("completion flag lookup failed", map[string]interface{}{"vendorId": vendorID, "error": err.Error()})
		return false
	}
	if at.IsZero() {
		return false
	}
	fmt.Fprintf(w, "Onboarding completed at %s\n", at.Format(time.RFC1123))
	return true
}

// printStatus renders the saved completion snapshot. A nil profile means
// the vendor has not saved anything yet.
func printStatus(w io.Writer, profile *onboarding.SavedProfile) {
	if profile == nil {
		fmt.Fprintln(w, "No saved progress. Run `vendorctl onboard` to start.")
		return
	}

	c := onboarding.NewCompletion()
	if profile.Completion != nil {
		c = *profile.Completion
	}

	fmt.Fprintf(w, "Progress: %.0f%%\n", c.Percentage)
	for _, step := range onboarding.Steps {
		mark := " "
		if c.Done(step) {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %d. %s\n", mark, int(step), step)
	}
	fmt.Fprintf(w, "Furthest unlocked step: %d\n", int(onboarding.FurthestUnlockedStep(c)))
	if name := profile.Draft.BusinessName; name != "" {
		fmt.Fprintf(w, "Business: %s\n", name)
	}
}
