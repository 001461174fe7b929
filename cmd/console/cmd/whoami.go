package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/staff-console/internal/credential"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami [token]",
	Short: "Decode a credential and show who it belongs to",
	Long: `whoami decodes a credential without verifying it and prints its claims.
The token is read from the argument, or from stdin when the argument is "-" or absent.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := "-"
		if len(args) == 1 {
			raw = args[0]
		}
		if raw == "-" {
			in, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			raw = string(in)
		}
		return printClaims(cmd.OutOrStdout(), strings.TrimSpace(raw), time.Now())
	},
}

func printClaims(out io.Writer, raw string, now time.Time) error {
	claims, ok := credential.Decode(raw)
	if !ok {
		return errors.New("not a readable credential")
	}

	status := "valid"
	if claims.Expired(now) {
		status = "expired"
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SUBJECT\t%d\n", claims.SubjectID)
	fmt.Fprintf(w, "NAME\t%s\n", claims.SubjectName)
	fmt.Fprintf(w, "ROLE\t%s (%d)\n", claims.RoleID, int(claims.RoleID))
	fmt.Fprintf(w, "ISSUED\t%s\n", claims.IssuedAtTime().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "EXPIRES\t%s\n", claims.ExpiresAtTime().UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "STATUS\t%s\n", status)
	return w.Flush()
}
