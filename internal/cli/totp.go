package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authpress/pkg/qrcode"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

func newKeygenCmd(a *app) *cobra.Command {
	var secret bool
	var secretLength int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a TOTP_ENCRYPTION_KEY or a new base32 secret",
		Long: `Generate key material.

Examples:
  authpress keygen              # base64 AES-256 key for TOTP_ENCRYPTION_KEY
  authpress keygen --secret     # base32 TOTP secret`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if secret {
				s, err := totp.GenerateSecret(secretLength)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, s)
				return nil
			}
			key, err := totp.GenerateEncodedEncryptionKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "print a base32 TOTP secret instead of an encryption key")
	cmd.Flags().IntVar(&secretLength, "length", 16, "secret length in base32 characters")
	return cmd
}

func newCodeCmd(a *app) *cobra.Command {
	var digits int
	var at int64
	cmd := &cobra.Command{
		Use:   "code SECRET",
		Short: "Print the one-time code for a secret",
		Long: `Print the code an authenticator app would show for SECRET.

Examples:
  authpress code JBSWY3DPEHPK3PXP
  authpress code GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ --digits 8 --at 59`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			now := time.Now()
			if at > 0 {
				now = time.Unix(at, 0)
			}
			code, err := totp.GenerateCode(args[0], totp.TimeSlice(now), digits)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, code)
			return nil
		},
	}
	cmd.Flags().IntVar(&digits, "digits", 6, "code length")
	cmd.Flags().Int64Var(&at, "at", 0, "unix time to compute the code for (default now)")
	return cmd
}

func newURICmd(a *app) *cobra.Command {
	var params totp.TOTPParams
	var qrPath string
	var qrSize int
	cmd := &cobra.Command{
		Use:   "uri SECRET",
		Short: "Print the otpauth:// provisioning URI for a secret",
		Long: `Print the provisioning URI and optionally write it as a QR code PNG.

Examples:
  authpress uri JBSWY3DPEHPK3PXP --account alice --issuer Acme
  authpress uri JBSWY3DPEHPK3PXP --account alice --issuer Acme --qr alice.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			params.Secret = args[0]
			uri, err := totp.GetTOTPURI(params)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, uri)

			if qrPath == "" {
				return nil
			}
			png, err := qrcode.PNG(uri, qrSize)
			if err != nil {
				return err
			}
			return os.WriteFile(qrPath, png, 0o600)
		},
	}
	cmd.Flags().StringVar(&params.AccountName, "account", "", "account label")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "authpress", "issuer label")
	cmd.Flags().IntVar(&params.Digits, "digits", 6, "code length")
	cmd.Flags().StringVar(&qrPath, "qr", "", "write a QR code PNG to this path")
	cmd.Flags().IntVar(&qrSize, "qr-size", qrcode.DefaultSize, "QR code size in pixels")
	return cmd
}
