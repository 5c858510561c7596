package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var signupUsername string

func init() {
	signupCmd.Flags().StringVar(&signupUsername, "username", "", "Display name (defaults to the email's local part)")
	rootCmd.AddCommand(signupCmd)
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE:  runSignup,
}

func runSignup(cmd *cobra.Command, args []string) error {
	email, password, err := credentials()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	d, err := openDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	sess, err := d.Identity.SignUp(ctx, email, password, signupUsername)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Welcome, %s!\n", sess.Identity.Username)
	fmt.Fprintf(out, "  User ID: %s\n", sess.Identity.UserID)
	fmt.Fprintln(out, "  Badge unlocked: Newbie")
	return nil
}
