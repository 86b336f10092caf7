// Command plannerctl renders a couple's calendar from a YAML file of
// activities without a running planner service.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"example.com/planner/internal/auth"
	"example.com/planner/internal/calendar"
	"example.com/planner/internal/config"
	"example.com/planner/internal/logging"
	authlib "example.com/planner/pkg/platform/auth"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	file     string
	date     string
	theme    string
	user     string
	logLevel string
	now      func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Inspect a couple's planned activities from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "activities.yaml", "YAML file of activities")
	root.PersistentFlags().StringVar(&opts.date, "date", "", "focal date YYYY-MM-DD (default today)")
	root.PersistentFlags().StringVar(&opts.theme, "theme", "light", "color theme: light|dark|system")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "only show this partner's activities")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for skipped records")

	root.AddCommand(newCalendarCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newLeadTimesCmd())
	root.AddCommand(newTokenCmd())
	return root
}

func (o *rootOptions) focal() (civil.Date, error) {
	if o.date == "" {
		return civil.DateOf(o.now()), nil
	}
	d, err := civil.ParseDate(o.date)
	if err != nil {
		return civil.Date{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logging.New(logging.Options{Level: o.logLevel, Format: "console", Output: cmd.ErrOrStderr()})
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Draw the focal month with activity markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			focal, err := opts.focal()
			if err != nil {
				return err
			}
			theme, err := calendar.ParseThemeMode(opts.theme)
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			entries, err := loadFile(opts.file, logger)
			if err != nil {
				return err
			}

			palette := calendar.PaletteFor(theme)
			agg := calendar.New(calendar.WithLogger(logger))
			markers := agg.BuildMarkerMap(activitiesOf(entries, opts.user), focal, palette.Resolve)
			renderMonth(cmd.OutOrStdout(), focal, markers, palette)
			return nil
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var mode, lang string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities in the day, week or month around the focal date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			focal, err := opts.focal()
			if err != nil {
				return err
			}
			windowMode, err := calendar.ParseWindowMode(mode)
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			entries, err := loadFile(opts.file, logger)
			if err != nil {
				return err
			}

			labels := labelsForFlag(lang)
			reminders := make(map[string]string, len(entries))
			for _, e := range entries {
				reminders[e.ID] = labels.Resolve(e.LeadTime)
			}

			agg := calendar.New(calendar.WithLogger(logger))
			renderAgenda(cmd.OutOrStdout(), agg.FilterByWindow(activitiesOf(entries, opts.user), focal, windowMode), reminders)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "day", "window: day|week|month")
	cmd.Flags().StringVar(&lang, "lang", "", "reminder label language (default from LANG)")
	return cmd
}

func newLeadTimesCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "lead-times",
		Short: "Show the reminder lead time options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderLeadTimes(cmd.OutOrStdout(), labelsForFlag(lang))
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "label language (default from LANG)")
	return cmd
}

// labelsForFlag resolves --lang, then $LANG, then English.
func labelsForFlag(lang string) calendar.LeadTimeLabels {
	if lang == "" {
		lang, _, _ = strings.Cut(os.Getenv("LANG"), ".")
		lang = strings.ReplaceAll(lang, "_", "-")
	}
	if tag, ok := calendar.SupportedLanguage(lang); ok {
		return calendar.LabelsFor(tag)
	}
	return calendar.LabelsFor(calendar.MatchLanguage(""))
}

func newTokenCmd() *cobra.Command {
	var subject, tenant string
	var scopes []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := authlib.Issue(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, subject, tenant, scopes, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "alex", "partner id (sub claim)")
	cmd.Flags().StringVar(&tenant, "tenant", "demo-couple", "couple space id (tenant_id claim)")
	cmd.Flags().StringSliceVar(&scopes, "scopes", []string{auth.ScopePlannerRead, auth.ScopePlannerWrite}, "granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
