package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authpress/pkg/apppassword"
	"github.com/dmitrymomot/authpress/pkg/pg"
	"github.com/dmitrymomot/authpress/pkg/redis"
	"github.com/dmitrymomot/authpress/pkg/replay"
	"github.com/dmitrymomot/authpress/pkg/settings"
)

func newPurgeCodesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-codes",
		Short: "Forget every consumed one-time code",
		Long: `Clear the replay guard. Run it daily from cron; codes outside the drift
window can no longer be accepted anyway.

Examples:
  authpress purge-codes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, keys, err := a.redis(cmd.Context())
			if err != nil {
				return err
			}
			guard := replay.NewGuard(replay.NewRedisStore(client, replay.WithKeyspace(keys)), replay.WithLogger(a.log))
			if err := guard.Purge(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "used codes purged")
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the app-password access log schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, cfg, err := a.postgres(cmd.Context())
			if err != nil {
				return err
			}
			return pg.Migrate(cmd.Context(), pool, apppassword.Migrations, apppassword.MigrationsDir, cfg, a.log)
		},
	}
}

func newResetAttemptsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-attempts USER_ID",
		Short: "Give a user their grace logins back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			accounts, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := accounts.ResetAttempts(cmd.Context(), id); err != nil {
				return err
			}
			left, err := accounts.RemainingAttempts(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "attempts reset, %d remaining\n", left)
			return nil
		},
	}
}

func newDeactivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate USER_ID",
		Short: "Turn off two-factor authentication for a user",
		Long: `Wipe the user's secret, recovery key and attempt counter. The user can
log in with their password alone until they enroll again, unless 2FA is forced.

Examples:
  authpress deactivate 6f1c2f8e-4a1b-4b7e-9d55-2f3c1e0a9b77`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			accounts, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := accounts.Revoke(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "two-factor authentication deactivated")
			return nil
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the effective site-wide options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, err := a.settingsProvider(cmd.Context())
			if err != nil {
				return err
			}
			o, err := provider.Options(cmd.Context())
			if err != nil {
				return err
			}
			printOptions(a, o)
			return nil
		},
	}
	cmd.AddCommand(newSettingsSetCmd(a))
	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var force, active bool
	var maxAttempts int
	var roles []string
	var scope string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change site-wide options stored in Redis",
		Long: `Only the flags given are changed.

Examples:
  authpress settings set --force --roles administrator,editor
  authpress settings set --max-attempts -1
  authpress settings set --replay-scope global`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, err := a.settingsProvider(cmd.Context())
			if err != nil {
				return err
			}
			o, err := provider.Options(cmd.Context())
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("active") {
				o.Active = active
			}
			if flags.Changed("force") {
				o.Force2FA = force
			}
			if flags.Changed("roles") {
				o.UserRoles = roles
				o.UserRoleStatus = settings.RoleStatusRoles
				if len(roles) == 0 {
					o.UserRoleStatus = settings.RoleStatusAll
				}
			}
			if flags.Changed("max-attempts") {
				o.MaxAttempts = maxAttempts
			}
			if flags.Changed("replay-scope") {
				o.ReplayScope = settings.ReplayScope(scope)
			}

			if err := o.Validate(); err != nil {
				return err
			}
			if err := provider.Save(cmd.Context(), o); err != nil {
				return err
			}
			printOptions(a, o)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "enable two-factor authentication site-wide")
	cmd.Flags().BoolVar(&force, "force", false, "force two-factor authentication")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "roles 2FA is forced for (empty means everyone)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "grace logins before setup is mandatory (-1 unlimited)")
	cmd.Flags().StringVar(&scope, "replay-scope", string(settings.ReplayPerAccount), "account or global")
	return cmd
}

func printOptions(a *app, o settings.Options) {
	roles := slices.Clone(o.UserRoles)
	slices.Sort(roles)
	rows := [][2]string{
		{"active", fmt.Sprint(o.Active)},
		{"force_2fa", fmt.Sprint(o.Force2FA)},
		{"user_role_status", string(o.UserRoleStatus)},
		{"user_roles", strings.Join(roles, ",")},
		{"max_attempts", fmt.Sprint(o.MaxAttempts)},
		{"authorized_delay", fmt.Sprint(o.AuthorizedDelay)},
		{"issuer", o.Issuer},
		{"code_length", fmt.Sprint(o.CodeLength)},
		{"replay_scope", string(o.ReplayScope)},
		{"app_password_log_max", fmt.Sprint(o.AppPasswordLogMax)},
	}
	for _, r := range rows {
		fmt.Fprintf(a.stdout, "%-22s %s\n", r[0], r[1])
	}
}

func newHealthCmd(a *app) *cobra.Command {
	var withPG bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Ping Redis, and Postgres with --pg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, _, err := a.redis(ctx)
			if err != nil {
				return err
			}
			if err := redis.Healthcheck(client)(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "redis ok")

			if !withPG {
				return nil
			}
			pool, _, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			if err := pg.Healthcheck(pool)(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "postgres ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withPG, "pg", false, "also check Postgres")
	return cmd
}
