package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ecbarko/ecbarko-db/notify"
	"github.com/ecbarko/ecbarko-db/utils"
	"github.com/spf13/cobra"
)

func newOTPCmd(timeout *time.Duration) *cobra.Command {
	var code string
	var digits int

	cmd := &cobra.Command{
		Use:   "otp EMAIL",
		Short: "Email a one-time passcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				generated, err := utils.GenerateOTP(digits)
				if err != nil {
					return err
				}
				code = generated
			}

			m, err := setup()
			if err != nil {
				return err
			}
			defer m.finish()

			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			return deliver(ctx, m.notifier, m.outcomes, func(ctx context.Context, n *notify.Notifier) (string, error) {
				return n.SendOTPEmail(ctx, args[0], code)
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "passcode to send (generated when empty)")
	cmd.Flags().IntVar(&digits, "digits", utils.DefaultOTPDigits, "length of a generated passcode")
	return cmd
}

func newResetCmd(timeout *time.Duration) *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "reset EMAIL",
		Short: "Email a reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := setup()
			if err != nil {
				return err
			}
			defer m.finish()

			if link == "" {
				link, err = resetLink(m.cfg.SecretKey, m.cfg.ResetURLBase, args[0], m.cfg.ResetTokenTTL)
				if err != nil {
					_ = m.notifier.Close(cmd.Context())
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), *timeout)
			defer cancel()

			return deliver(ctx, m.notifier, m.outcomes, func(ctx context.Context, n *notify.Notifier) (string, error) {
				return n.SendResetEmail(ctx, args[0], link)
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "reset link to send (signed from SECRET_KEY and RESET_URL_BASE when empty)")
	return cmd
}

func newVerifyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-reset TOKEN",
		Short: "Print the email a reset token was issued for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			email, err := utils.VerifyResetToken([]byte(cfg.SecretKey), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), email)
			return nil
		},
	}
}

func resetLink(secret, base, email string, ttl time.Duration) (string, error) {
	if base == "" {
		return "", fmt.Errorf("RESET_URL_BASE not set")
	}
	token, err := utils.GenerateResetToken([]byte(secret), email, ttl)
	if err != nil {
		return "", err
	}
	return utils.BuildResetLink(base, token)
}
