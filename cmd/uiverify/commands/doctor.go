package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/uiverify/internal/auth"
	"github.com/copyleftdev/uiverify/internal/browser"
)

// doctor: check the configured TOTP secret, then launch Chrome against an
// inline page and print what it saw.
func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that Chrome can be launched and driven",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			if secret := cfg.Credentials.TOTPSecret; secret != "" {
				if err := auth.CheckSecret(secret); err != nil {
					fmt.Fprintf(out, "totp secret check FAILED: %v\n", err)
					return errFailed
				}
				fmt.Fprintln(out, "totp secret check PASSED")
			}

			m, err := browser.NewManager(cfg, logger)
			if err != nil {
				return err
			}
			defer m.Shutdown(ctx)

			result, err := m.SelfCheck(ctx)
			if err != nil {
				fmt.Fprintf(out, "chromedp check FAILED: %v\n", err)
				return errFailed
			}

			fmt.Fprintln(out, "chromedp check PASSED")
			keys := make([]string, 0, len(result))
			for k := range result {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  - %s: %v\n", k, result[k])
			}
			return nil
		},
	}
}
