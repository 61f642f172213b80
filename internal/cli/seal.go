package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/byAyes/wbot/internal/core/config"
	"github.com/byAyes/wbot/internal/core/secrets"
)

var sealCmd = &cobra.Command{
	Use:   "seal [value]",
	Short: "Encrypt a credential for config.yml",
	Long: `Encrypt a credential (bot token, API key) so it can be stored in config.yml
as an "enc:" value. wbot opens sealed values at start-up with the passphrase
in $WBOT_SECRET.

The passphrase is read from $WBOT_SECRET, or prompted for on a terminal.
Without an argument the value is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readPassphrase(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		var value string
		if len(args) == 1 {
			value = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read value: %w", err)
			}
			value = strings.TrimSpace(line)
		}
		if value == "" {
			return errors.New("nothing to seal")
		}

		sealed, err := secrets.Seal(value, passphrase)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sealed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sealCmd)
}

func readPassphrase(prompt io.Writer) (string, error) {
	if p := os.Getenv(config.SecretEnv); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("set %s or run on a terminal", config.SecretEnv)
	}

	fmt.Fprint(prompt, "Passphrase: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Repeat: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passphrases do not match")
	}
	return string(first), nil
}
