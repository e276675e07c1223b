package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
	"realty_chat/internal/service"
)

var (
	operatorEmail    string
	operatorPassword string
	operatorName     string
	operatorRole     string
)

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage operator accounts",
}

var operatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an operator account for the support console",
	Example: `  chatctl operator create --email deniz@agency.com.tr --password 'changeme123' --name Deniz
  chatctl operator create --email admin@agency.com.tr --password 'changeme123' --name Admin --role admin`,
	Args: cobra.NoArgs,
	RunE: runOperatorCreate,
}

func init() {
	f := operatorCreateCmd.Flags()
	f.StringVar(&operatorEmail, "email", "", "login email")
	f.StringVar(&operatorPassword, "password", "", "password (min 8 characters)")
	f.StringVar(&operatorName, "name", "", "display name shown to visitors")
	f.StringVar(&operatorRole, "role", domain.OperatorRoleOperator, "operator or admin")
	_ = operatorCreateCmd.MarkFlagRequired("email")
	_ = operatorCreateCmd.MarkFlagRequired("password")
	_ = operatorCreateCmd.MarkFlagRequired("name")

	operatorCmd.AddCommand(operatorCreateCmd)
}

func runOperatorCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		return err
	}

	auth := service.NewAuthService(repository.NewOperatorRepository(pool, log), cfg.JWT, log)
	op, err := auth.CreateOperator(ctx, operatorEmail, operatorPassword, operatorName, operatorRole)
	if err != nil {
		return fmt.Errorf("create operator: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s)\n", op.Role, op.Email, op.ID)
	return nil
}
