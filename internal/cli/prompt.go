package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tamween/internal/core"
)

// confirm asks a yes/no question on the command's input. Anything but an
// explicit yes declines with ErrConfirmationRequired. With assumeYes the
// question is skipped.
func confirm(cmd *cobra.Command, assumeYes bool, question string) error {
	if assumeYes {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "ن", "نعم":
		return nil
	}
	return core.ErrConfirmationRequired
}
