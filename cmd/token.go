package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	"github.com/spf13/cobra"
)

var tokenUserID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a user id",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID == "" {
			return errors.New("--user is required")
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		token, err := mintToken(cfg.Security, tokenUserID)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

// mintToken signs a token for userID, which must be a user uuid.
func mintToken(sec internal.SecurityConfig, userID string) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", fmt.Errorf("--user must be a uuid: %w", err)
	}
	return auth.NewJWTTokenGenerator(sec).GenerateAccessToken(userID)
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUserID, "user", "u", "", "user id to put in the userId claim")
}
