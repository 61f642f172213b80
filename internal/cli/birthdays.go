package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/byAyes/wbot/internal/core/birthday"
	"github.com/byAyes/wbot/internal/core/i18n"
)

var birthdaysCmd = &cobra.Command{
	Use:     "birthdays",
	Aliases: []string{"bd"},
	Short:   "Show or edit the birthday list",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := birthday.NewStore(cfg.BirthdaysFile)
		if err != nil {
			return err
		}

		upcoming, err := store.Upcoming(time.Now())
		if err != nil {
			return err
		}
		if len(upcoming) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No birthdays saved in %s\n", store.Path())
			return nil
		}

		t := i18n.T(cfg.Language).Birthday
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MENTION\tDATE\tMONTH\tDAYS")
		for _, u := range upcoming {
			days := fmt.Sprint(u.Days)
			if u.Days == 0 {
				days = color.YellowString("today")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Mention, u.Birth, t.MonthName(u.Birth.Month), days)
		}
		return w.Flush()
	},
}

var birthdaysSetCmd = &cobra.Command{
	Use:   "set <user-id> <mention> <DD-MM-YYYY>",
	Short: "Save a birthday as if the user had sent .bd",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := birthday.ParseDate(args[2])
		if err != nil {
			return err
		}
		store, err := birthday.NewStore(cfg.BirthdaysFile)
		if err != nil {
			return err
		}

		updated, err := store.Upsert(birthday.Entry{
			UserID:   args[0],
			Mention:  args[1],
			Birthday: d.String(),
			Month:    i18n.T(cfg.Language).Birthday.MonthName(d.Month),
		})
		if err != nil {
			return err
		}
		verb := "Saved"
		if updated {
			verb = "Updated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", color.GreenString(verb), args[1], d)
		return nil
	},
}

func init() {
	birthdaysCmd.AddCommand(birthdaysSetCmd)
	rootCmd.AddCommand(birthdaysCmd)
}
