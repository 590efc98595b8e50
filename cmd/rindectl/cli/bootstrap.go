package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rinde/rinde/internal/locations"
)

func bootstrapCommand(deps *Deps) *cobra.Command {
	var name, adminEmail string
	cmd := &cobra.Command{
		Use:   "bootstrap-location",
		Short: "Create a location with its first admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" || strings.TrimSpace(adminEmail) == "" {
				return errors.New("bootstrap-location: --name and --admin-email are required")
			}
			userID, err := deps.Users.FindUserID(cmd.Context(), strings.TrimSpace(adminEmail))
			if err != nil {
				return fmt.Errorf("bootstrap-location: admin %s: %w", adminEmail, err)
			}
			created, err := deps.Locations.Create(cmd.Context(), userID, locations.CreateInput{Name: name})
			if err != nil {
				return fmt.Errorf("bootstrap-location: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "location %d %q created, admin %d, %d actions provisioned\n",
				created.Location.ID, created.Location.Name, userID, created.ActionsInserted)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "location name")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "email of the existing user to make ADMIN")
	return cmd
}
