package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	authPostgres "github.com/paras-verma7454/DriveDeck/internal/auth/postgres"
	"github.com/paras-verma7454/DriveDeck/internal/rbac"
	rbacPostgres "github.com/paras-verma7454/DriveDeck/internal/rbac/postgres"
	"github.com/spf13/cobra"
)

var (
	seedAdminEmail    string
	seedAdminUserName string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed permissions, roles and the admin account",
	Long:  `Insert the permission catalogue, the admin, vendor and user roles with their default grants, and an admin account. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		gdb, err := initGorm(db)
		if err != nil {
			return err
		}

		if err := rbacPostgres.NewRepository(gdb).Seed(ctx, rbac.Catalogue, rbac.DefaultGrants); err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		fmt.Printf("Seeded %d permissions and %d roles\n", len(rbac.Catalogue), len(rbac.DefaultGrants))

		if seedAdminPassword == "" {
			fmt.Println("No --admin-password given; skipping admin account")
			return nil
		}
		hash, err := auth.HashPassword(seedAdminPassword, cfg.Security.BCryptCost)
		if err != nil {
			return err
		}
		admin := &auth.User{FirstName: "Admin", UserName: seedAdminUserName, Email: seedAdminEmail, IsActive: true}
		_, err = authPostgres.NewRepository(gdb).CreateUserWithRole(ctx, admin, hash, rbac.RoleAdmin)
		switch {
		case errors.Is(err, internal.ErrUserExists):
			fmt.Println("Admin account already exists:", seedAdminEmail)
		case err != nil:
			return fmt.Errorf("seed admin: %w", err)
		default:
			fmt.Println("Seeded admin account:", seedAdminEmail, admin.ID)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@drivedeck.local", "email of the seeded admin account")
	seedCmd.Flags().StringVar(&seedAdminUserName, "admin-username", "admin", "username of the seeded admin account")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password of the seeded admin account; empty skips it")
}
