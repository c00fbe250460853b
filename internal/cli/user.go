package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userHeaders = []string{"ID", "NAME", "EMAIL", "ROLE", "ADMIN", "ACTIVE"}

// NewUserCmd создаёт группу команд для справочника пользователей.
func NewUserCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}

	cmd.AddCommand(
		newUserListCmd(clientFn, outputFn),
		newUserCreateCmd(clientFn, outputFn),
	)

	return cmd
}

func newUserListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := clientFn().ListUsers(role)
			if err != nil {
				return err
			}

			rows := make([][]string, len(users))
			for i := range users {
				rows[i] = userRow(&users[i])
			}

			outputFn().Print(userHeaders, rows, users)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role")

	return cmd
}

func newUserCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := clientFn().CreateUser(req)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("User created: %s", user.ID))
			out.Print(userHeaders, [][]string{userRow(user)}, user)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email (required)")
	cmd.Flags().StringVar(&req.Role, "role", "", "Role (required)")
	cmd.Flags().BoolVar(&req.IsAdmin, "admin", false, "Grant administrator rights")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func userRow(u *UserResponse) []string {
	return []string{u.ID, u.Name, u.Email, u.Role, yesNo(u.IsAdmin), yesNo(u.IsActive)}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
