package main

import (
	"fmt"
	"strconv"

	"github.com/badoux/checkmail"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/charleshuang3/invitegate/internal/models"
	"github.com/charleshuang3/invitegate/internal/promotion"
	"github.com/charleshuang3/invitegate/internal/storage"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var maxUses uint
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new invitation code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load()
			if err != nil {
				return err
			}
			invitation, err := a.service.GenerateCode(cmd.Context(), promotion.GenerateOptions{MaxUses: maxUses})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), invitation.Code)
			return nil
		},
	}
	cmd.Flags().UintVar(&maxUses, "max-uses", 0, "Uses allowed for the code, 0 for the configured default")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invitation codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load()
			if err != nil {
				return err
			}
			invitations, err := a.service.ListCodes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInvitations(invitations))
			return nil
		},
	}
}

func newRedemptionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "redemptions CODE",
		Short: "Show who redeemed an invitation code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load()
			if err != nil {
				return err
			}
			redemptions, err := a.service.ListRedemptions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRedemptions(redemptions))
			return nil
		},
	}
}

func newRedeemCmd(c *cli) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "redeem CODE",
		Short: "Redeem a code on behalf of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return errors.New("--user-id is required")
			}
			a, err := c.load()
			if err != nil {
				return err
			}
			if _, err := a.service.Redeem(cmd.Context(), userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d promoted to %s\n", userID, models.RoleAdmin)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "Account id to promote")
	return cmd
}

func newUserCmd(c *cli) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}

	var subject, email, name string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create the local account of an identity subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}
			if email != "" {
				if err := checkmail.ValidateFormat(email); err != nil {
					return errors.Wrapf(err, "invalid email %q", email)
				}
			}
			a, err := c.load()
			if err != nil {
				return err
			}
			user := &models.User{
				Subject: subject,
				Email:   email,
				Name:    name,
			}
			if err := storage.CreateUser(a.db.Ctx(cmd.Context()), user); err != nil {
				return errors.Wrap(err, "create user")
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatUint(uint64(user.ID), 10))
			return nil
		},
	}
	addCmd.Flags().StringVar(&subject, "subject", "", "Identity provider subject (sub claim)")
	addCmd.Flags().StringVar(&email, "email", "", "Email")
	addCmd.Flags().StringVar(&name, "name", "", "Display name")

	userCmd.AddCommand(addCmd)
	return userCmd
}

func newHashMasterCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-master-code CODE",
		Short: "Print the bcrypt hash of a master code for invite.master_code_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return errors.Wrap(err, "hash master code")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}
