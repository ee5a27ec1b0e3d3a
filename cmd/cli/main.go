package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
)

type globalFlags struct {
	baseURL    string
	actor      string
	timeout    time.Duration
	maxElapsed time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "loanledger-cli",
		Short:         "Loan ledger CLI tool",
		Long:          `A command line interface for operating the loan ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "url", "http://localhost:8080", "Base URL of the loan ledger API")
	rootCmd.PersistentFlags().StringVar(&flags.actor, "actor", "cli", "Actor recorded on mutations")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().DurationVar(&flags.maxElapsed, "retry-for", 20*time.Second, "How long to retry busy (503) responses")

	rootCmd.AddCommand(
		scheduleCmd(),
		accrualCmd(flags),
		paymentCmd(flags),
		movementCmd(flags),
		sequenceCmd(flags),
		migrateCmd(),
	)

	return rootCmd
}

func (f *globalFlags) client() *apiClient {
	return newAPIClient(f.baseURL, f.actor, f.timeout, f.maxElapsed)
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Amortization schedules",
	}

	var (
		disbursed  string
		principal  string
		first      string
		rate       string
		insurance  string
		fee        string
		term       int
		billingDay int
		asJSON     bool
	)

	preview := &cobra.Command{
		Use:   "preview",
		Short: "Print an amortization plan without contacting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			terms := domain.ScheduleTerms{TermMonths: term, BillingDay: billingDay}

			date, err := time.Parse(time.DateOnly, disbursed)
			if err != nil {
				return fmt.Errorf("%w: disbursement date %q", domain.ErrInvalidDate, disbursed)
			}
			terms.DisbursementDate = date

			for _, f := range []struct {
				name string
				raw  string
				dst  *decimal.Decimal
			}{
				{"principal", principal, &terms.Principal},
				{"first-installment", first, &terms.FirstInstallment},
				{"rate", rate, &terms.AnnualRate},
				{"insurance", insurance, &terms.InsurancePerPeriod},
				{"fee", fee, &terms.FeePerPeriod},
			} {
				v, err := decimal.NewFromString(f.raw)
				if err != nil {
					return fmt.Errorf("%w: --%s %q", domain.ErrInvalidAmount, f.name, f.raw)
				}
				*f.dst = v
			}

			lines, err := domain.GenerateSchedule(terms)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), lines)
			}
			return printSchedule(cmd.OutOrStdout(), lines)
		},
	}

	preview.Flags().StringVar(&disbursed, "disbursed", time.Now().UTC().Format(time.DateOnly), "Disbursement date (YYYY-MM-DD)")
	preview.Flags().StringVar(&principal, "principal", "", "Principal amount")
	preview.Flags().StringVar(&first, "first-installment", "0", "Initial installment paid at disbursement")
	preview.Flags().StringVar(&rate, "rate", "0", "Nominal annual rate in percent")
	preview.Flags().StringVar(&insurance, "insurance", "0", "Insurance charged per period")
	preview.Flags().StringVar(&fee, "fee", "0", "Fee charged per period")
	preview.Flags().IntVar(&term, "term", 12, "Term in months")
	preview.Flags().IntVar(&billingDay, "billing-day", 0, "Billing day of month (0 uses the disbursement day)")
	preview.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = preview.MarkFlagRequired("principal")

	cmd.AddCommand(preview)
	return cmd
}

func accrualCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accrual",
		Short: "Interest accrual operations",
	}

	var cutoff string
	closeAll := &cobra.Command{
		Use:   "close-all",
		Short: "Close the accrual period of every disbursed loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{}
			if cutoff != "" {
				body["cutoff_date"] = cutoff
			}

			var result map[string]any
			if err := flags.client().do(cmd.Context(), http.MethodPost, "/api/v1/accruals/close-all", body, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	closeAll.Flags().StringVar(&cutoff, "cutoff", "", "Cutoff date (YYYY-MM-DD), defaults to yesterday")

	cmd.AddCommand(closeAll)
	return cmd
}

func paymentCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Payment operations",
	}

	var (
		asOf           string
		requireMatched bool
	)
	apply := &cobra.Command{
		Use:   "apply <payment-id>",
		Short: "Allocate a payment over the loan's outstanding charges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			body := map[string]any{"require_matched": requireMatched}
			if asOf != "" {
				body["as_of"] = asOf
			}

			var result map[string]any
			path := fmt.Sprintf("/api/v1/payments/%d/apply", id)
			if err := flags.client().do(cmd.Context(), http.MethodPost, path, body, &result); err != nil {
				if hasCode(err, "payment_already_applied") {
					return fmt.Errorf("payment %d was applied before: %w", id, err)
				}
				if isStatus(err, http.StatusConflict) {
					return fmt.Errorf("payment %d: %w", id, err)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	apply.Flags().StringVar(&asOf, "as-of", "", "Only charges due on or before this date (YYYY-MM-DD)")
	apply.Flags().BoolVar(&requireMatched, "require-matched", false, "Refuse payments not yet reconciled against a bank movement")

	cmd.AddCommand(apply)
	return cmd
}

func movementCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movement",
		Short: "Bank movement operations",
	}

	reconcile := &cobra.Command{
		Use:   "reconcile <movement-id>",
		Short: "Match a bank movement against the reported payments of its batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var result map[string]any
			path := fmt.Sprintf("/api/v1/movements/%d/reconcile", id)
			if err := flags.client().do(cmd.Context(), http.MethodPost, path, nil, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(reconcile)
	return cmd
}

func sequenceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Sequence counter operations",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show every counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := flags.client().do(cmd.Context(), http.MethodGet, "/api/v1/sequences/", nil, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	var count int
	next := &cobra.Command{
		Use:   "next <domain>",
		Short: "Reserve the next value(s) of a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseSequenceDomain(args[0])
			if err != nil {
				return err
			}

			var result map[string]any
			path := "/api/v1/sequences/" + url.PathEscape(string(d)) + "/next"
			if err := flags.client().do(cmd.Context(), http.MethodPost, path, map[string]int{"count": count}, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	next.Flags().IntVar(&count, "count", 1, "Number of values to reserve")

	cmd.AddCommand(list, next)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	run := func(fn func(databaseURL, migrationsPath string, logger zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
			return fn(cfg.DatabaseURL, cfg.MigrationsPath, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration (DATABASE_URL, MIGRATIONS_PATH)",
			RunE:  run(postgres.RunMigrations),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE:  run(postgres.RunMigrationsDown),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				status, err := postgres.CurrentMigration(cfg.DatabaseURL, cfg.MigrationsPath)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), status)
			},
		},
	)
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSchedule(w io.Writer, lines []domain.InstallmentLine) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tdue\tcapital\tinterest\tinsurance\tfee\ttotal\tbalance\t")
	for _, l := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			l.Number,
			l.DueDate.Format(time.DateOnly),
			l.Capital.StringFixed(2),
			l.Interest.StringFixed(2),
			l.Insurance.StringFixed(2),
			l.Fee.StringFixed(2),
			l.Total().StringFixed(2),
			l.Balance.StringFixed(2),
		)
	}
	return tw.Flush()
}
