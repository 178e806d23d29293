package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newAccountsCmd() *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "Account administration commands",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recently created accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(envOptions())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ListAccounts(ctx, limit)
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of accounts to show")

	accounts.AddCommand(list)
	accounts.AddCommand(
		accountActionCmd("disable", "Refuse every future login for an account", "disabled",
			func(e *kidsAuth.Engine) func(context.Context, string) error { return e.DisableAccount }),
		accountActionCmd("enable", "Activate an account, skipping email verification", "enabled",
			func(e *kidsAuth.Engine) func(context.Context, string) error { return e.EnableAccount }),
		accountActionCmd("delete", "Delete an account and all of its profiles", "deleted",
			func(e *kidsAuth.Engine) func(context.Context, string) error { return e.DeleteAccount }),
	)
	return accounts
}

// accountActionCmd runs one engine account operation per id argument so the
// change is audited and counted like any other.
func accountActionCmd(use, short, done string, op func(*kidsAuth.Engine) func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig(envOptions())
			if err != nil {
				return err
			}
			authCfg, err := kidsAuth.LoadConfigFromEnv()
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stderr, cfg.LogLevel, "text", false)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			rdb, err := openRedis(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer rdb.Close()
			}

			engine, err := buildEngine(cfg, authCfg, store, rdb, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			run := op(engine)
			for _, id := range args {
				if err := run(ctx, id); err != nil {
					return fmt.Errorf("%s %s: %w", use, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, done)
			}
			return nil
		},
	}
}

// renderAccounts writes one row per account. Secret columns are never read.
func renderAccounts(w io.Writer, rows []kidsAuth.Account) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Email", "Name", "Kind", "Status", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, a := range rows {
		table.Append([]string{
			a.ID,
			a.Email,
			a.FirstName + " " + a.LastName,
			a.Kind.String(),
			string(a.Status),
			a.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Total", strconv.Itoa(len(rows))})
	table.Render()
}
