package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vendor-onboarding/internal/common/auth"
	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/logger"
)

var (
	configPath string
	token      string
	vendorID   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "vendorctl",
	Short: "Vendor onboarding from the terminal",
	Long: `vendorctl walks a vendor through the three onboarding steps
(vendor type, business information, verification) against the vendor API,
and reports saved progress.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "vendor API bearer token (or VENDOR_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&vendorID, "vendor-id", "", "vendor id; skips token verification")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "vendorctl.log", "log output path")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(statusCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// newLogger writes to a file so log lines never corrupt the terminal UI.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.NewZapAdapter(logger.New(cfg.Logging.Level, cfg.Logging.Format, logFile))
}

func resolveToken() (string, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		t = strings.TrimSpace(os.Getenv("VENDOR_API_TOKEN"))
	}
	if t == "" {
		return "", fmt.Errorf("a vendor API token is required: pass --token or set VENDOR_API_TOKEN")
	}
	return t, nil
}

// resolvePrincipal identifies the vendor behind the token. An explicit
// --vendor-id is trusted as given; the vendor API still checks the token.
func resolvePrincipal(ctx context.Context, verifier auth.Verifier, tok string) (*auth.Principal, error) {
	if vendorID != "" {
		return &auth.Principal{VendorID: vendorID, Token: tok}, nil
	}
	p, err := verifier.Verify(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return p, nil
}
