package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yigit/schoolportal/internal/app/migrations"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/bootstrap"
	"github.com/yigit/schoolportal/internal/seed"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	isTerminalFunc   = term.IsTerminal

	errPasswordMismatch = errors.New("passwords do not match")
	errEmptyPassword    = errors.New("password must not be empty")
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := commandContext(cmd)
		if status, _ := cmd.Flags().GetBool("status"); status {
			migrator := migrations.NewMigrator(env.database.Pool, migrations.Files())
			all, err := migrations.ListMigrations(migrations.Files())
			if err != nil {
				return err
			}
			applied, err := migrator.Applied(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tFILE\tAPPLIED AT")
			for _, m := range all {
				at := "pending"
				if t, ok := applied[m.Version]; ok {
					at = t.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Version, m.Name, at)
			}
			return w.Flush()
		}

		count, err := bootstrap.RunMigrations(ctx, env.database, env.logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", count)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert reference addresses, the starter catalogue and the first admin",
	Long: `Insert reference address data, a starter course and subject catalogue and,
unless --skip-admin is given, an admin account. Existing rows are kept.
Without --admin-password a random password is generated and logged once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		opts := seed.Options{}
		opts.AdminEmail, _ = cmd.Flags().GetString("admin-email")
		opts.AdminPassword, _ = cmd.Flags().GetString("admin-password")
		opts.SkipAdmin, _ = cmd.Flags().GetBool("skip-admin")
		return seed.CreateDefaultData(commandContext(cmd), env.database, opts, env.logger)
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account; the password is prompted",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		if strings.TrimSpace(email) == "" {
			return errors.New("--email is required")
		}

		password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		userRepo := repositories.NewUserRepository(env.database)
		admin, err := seed.CreateAdmin(commandContext(cmd), userRepo, email, password, firstName, lastName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", admin.Email, admin.ID)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a pg_dump backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		backups, env, err := openBackupService()
		if err != nil {
			return err
		}
		defer env.Close()

		info, err := backups.Create(commandContext(cmd), services.Actor{IP: "cli"})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", info.Name, info.SizeBytes)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		backups, env, err := openBackupService()
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := backups.List()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tCREATED AT")
		for _, b := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.SizeBytes, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore a backup into the configured database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("restore overwrites the current data; rerun with --yes to confirm")
		}
		backups, env, err := openBackupService()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := backups.Restore(commandContext(cmd), services.Actor{IP: "cli"}, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[0])
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired refresh tokens and one-time codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		deps, err := bootstrap.BuildDependencies(env.cfg, env.database, env.logger)
		if err != nil {
			return err
		}
		tokens, codes, err := deps.AuthService.CleanupExpired(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d refresh token(s) and %d one-time code(s)\n", tokens, codes)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("status", false, "list migrations and whether they are applied")

	seedCmd.Flags().String("admin-email", seed.DefaultAdminEmail, "e-mail of the admin account to create")
	seedCmd.Flags().String("admin-password", "", "password of the admin account (generated when empty)")
	seedCmd.Flags().Bool("skip-admin", false, "do not create the admin account")

	createAdminCmd.Flags().String("email", "", "admin e-mail (required)")
	createAdminCmd.Flags().String("first-name", "System", "first name")
	createAdminCmd.Flags().String("last-name", "Administrator", "last name")

	backupCmd.AddCommand(backupListCmd)
	restoreCmd.Flags().Bool("yes", false, "confirm that the current data will be overwritten")
}

func openBackupService() (*services.BackupService, *environment, error) {
	env, err := openEnvironment()
	if err != nil {
		return nil, nil, err
	}
	runner, err := bootstrap.NewBackupRunner(env.cfg)
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	audit := services.NewAuditService(repositories.NewAdminLogRepository(env.database), env.logger)
	return services.NewBackupService(runner, audit, env.logger), env, nil
}

// promptPassword asks twice on a terminal; piped input is read as a single line
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminalFunc(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errEmptyPassword
		}
		return line, nil
	}

	fd := int(f.Fd())
	fmt.Fprint(out, "Enter password: ")
	first, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errEmptyPassword
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := readPasswordFunc(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
