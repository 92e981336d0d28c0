package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dtroode/console-auth/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const skipInitAnnotation = "skip-init"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "console-auth",
		Short:         "Console authentication and session client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[skipInitAnnotation]; ok {
				return nil
			}
			return a.init(cmd.Context())
		},
	}

	root.AddCommand(
		newVersionCmd(),
		newDeviceCmd(a),
		newLoginCmd(a),
		newMagicLinkCmd(a),
		newRegisterCmd(a),
		newOAuthCmd(a),
		newMfaCmd(a),
		newRefreshCmd(a),
		newStatusCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{skipInitAnnotation: ""},
		Run: func(*cobra.Command, []string) {
			logAppVersion()
		},
	}
}

func newDeviceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show this device's identity, creating it if needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			device, err := a.device.GetOrCreateDevice(cmd.Context())
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), deviceRows(device))
			return nil
		},
	}
}

type captchaFlags struct {
	provider string
	token    string
}

func (f *captchaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "captcha-provider", "", "Captcha provider")
	cmd.Flags().StringVar(&f.token, "captcha-token", "", "Captcha proof token")
}

func (f *captchaFlags) value() model.Captcha {
	return model.Captcha{Provider: f.provider, Token: f.token}
}

func (f *captchaFlags) optional() *model.Captcha {
	if f.token == "" {
		return nil
	}
	c := f.value()
	return &c
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		email    string
		password string
		captcha  captchaFlags
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			if err := a.lifecycle.LoginWithPassword(cmd.Context(), email, password, captcha.optional()); err != nil {
				return err
			}
			printSignedIn(cmd, a)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password, read from stdin when omitted")
	captcha.register(cmd)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newMagicLinkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magic-link",
		Short: "Sign in with an emailed link",
	}

	var (
		email   string
		captcha captchaFlags
	)
	send := &cobra.Command{
		Use:   "send",
		Short: "Email a sign-in link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.lifecycle.SendMagicLink(cmd.Context(), email, captcha.value()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Sign-in link sent to %s\n", email)
			return nil
		},
	}
	send.Flags().StringVarP(&email, "email", "e", "", "Email address")
	captcha.register(send)
	_ = send.MarkFlagRequired("email")

	complete := &cobra.Command{
		Use:   "complete CODE",
		Short: "Sign in with the code from the link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.lifecycle.CompleteMagicLink(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSignedIn(cmd, a)
			return nil
		},
	}

	cmd.AddCommand(send, complete)
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var (
		email   string
		captcha captchaFlags
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account with an emailed link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.lifecycle.RegisterWithEmail(cmd.Context(), email, captcha.value()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Registration link sent to %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	captcha.register(cmd)
	_ = cmd.MarkFlagRequired("email")

	cmd.AddCommand(&cobra.Command{
		Use:   "complete CODE",
		Short: "Finish registration with the code from the link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.lifecycle.CompleteRegistration(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSignedIn(cmd, a)
			return nil
		},
	})
	return cmd
}

func newOAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Sign in with an OAuth provider",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start PROVIDER",
		Short: "Print the provider authorization URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := a.lifecycle.StartOAuth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete PROVIDER CODE STATE",
		Short: "Finish sign-in with the provider callback parameters",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.lifecycle.CompleteOAuth(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			printSignedIn(cmd, a)
			return nil
		},
	})
	return cmd
}

func newMfaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Complete a pending second-factor challenge",
	}

	verified := func(cmd *cobra.Command) {
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Second factor verified")
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "totp CODE",
		Short: "Verify with an authenticator app code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mfa.ValidateTotp(cmd.Context(), args[0]); err != nil {
				return err
			}
			verified(cmd)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recovery CODE",
		Short: "Verify with a recovery code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mfa.ValidateRecoveryCode(cmd.Context(), args[0]); err != nil {
				return err
			}
			verified(cmd)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "webauthn",
		Short: "Verify with a security key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.mfa.ValidateWebAuthn(cmd.Context()); err != nil {
				return err
			}
			verified(cmd)
			return nil
		},
	})
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the session token if it is about to expire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.CheckValidity(cmd.Context()); err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), sessionRows(a.sessions.State(), a.sessions.Authorized()))
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderTable(cmd.OutOrStdout(), sessionRows(a.sessions.State(), a.sessions.Authorized()))
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the profile of the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.sessions.CheckValidity(ctx); err != nil {
				a.logger.Warn("CLI: validity check failed", "error", err.Error())
			}
			if err := a.sessions.FetchProfile(ctx); err != nil {
				return err
			}
			user, _ := a.sessions.UserState().Data()
			renderTable(cmd.OutOrStdout(), userRows(user))
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.lifecycle.Logout(cmd.Context()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func printSignedIn(cmd *cobra.Command, a *app) {
	token, _ := a.sessions.State().Data()
	out := cmd.OutOrStdout()
	if token.MfaPending() {
		color.New(color.FgYellow).Fprintln(out, "Signed in. A second factor is required: run `console-auth mfa`.")
	} else {
		color.New(color.FgGreen).Fprintln(out, "Signed in")
	}
	renderTable(out, sessionRows(a.sessions.State(), a.sessions.Authorized()))
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
