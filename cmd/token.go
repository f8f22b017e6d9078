package cmd

import (
	"fmt"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	database "github.com/USA-RedDragon/itinerary-server/internal/db"
	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/utils"
	"github.com/spf13/cobra"
)

const emailKey = "email"

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user, creating the user if needed",
		RunE:  runToken,
	}
	cmd.Flags().String(emailKey, "", "Email address of the user")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	email, err := cmd.Flags().GetString(emailKey)
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("a valid --%s is required", emailKey)
	}

	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	db, err := database.MakeDB(config)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	defer database.Close(db)

	user, err := models.FindOrCreateUserByEmail(db, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	token, err := utils.GenerateJWT(config.JWT.Secret, user.ID)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
