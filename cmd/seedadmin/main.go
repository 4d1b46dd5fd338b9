// Package main creates or resets the administrator account.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/socionet/backend/config"
	"github.com/socionet/backend/internal/auth"
	"github.com/socionet/backend/internal/models"
	"github.com/socionet/backend/pkg/database"
	"github.com/socionet/backend/pkg/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seedadmin",
		Short: "Create or reset the administrator account",
		Long: `Upsert an approved ADMIN user. An existing account with the same email
has its password, name, role and status overwritten.

Flags default to ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_NAME.`,
		SilenceUsage: true,
		RunE:         runSeed,
	}
	cmd.Flags().String("email", "", "Admin email (default $ADMIN_EMAIL)")
	cmd.Flags().String("password", "", "Admin password (default $ADMIN_PASSWORD)")
	cmd.Flags().String("name", "", "Display name (default $ADMIN_NAME)")
	return cmd
}

// seedParams resolves flag values over configured defaults.
func seedParams(cmd *cobra.Command, defaults config.AdminConfig) (config.AdminConfig, error) {
	out := defaults
	if v, _ := cmd.Flags().GetString("email"); v != "" {
		out.Email = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		out.Password = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		out.Name = v
	}
	if out.Email == "" || out.Password == "" {
		return out, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	return out, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	admin, err := seedParams(cmd, cfg.Admin)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, zap.NewNop())
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	hash, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	var name *string
	if admin.Name != "" {
		name = &admin.Name
	}
	user, err := auth.NewRepository(pool).Upsert(ctx, auth.CreateUserParams{
		Email:        admin.Email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleAdmin,
		Status:       models.StatusApproved,
	})
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Admin user ready: %s (%s)\n", user.Email, user.ID)
	return nil
}
