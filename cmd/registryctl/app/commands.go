// Package app holds the registryctl commands.
package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jwttoken "mfgverify/internal/jwt_token"
	"mfgverify/internal/platform/config"
	"mfgverify/pkg/domain"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree so tests
// can execute commands in isolation.
func NewRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "registryctl",
		Short:         "Operator tooling for the manufacturer registry",
		SilenceUsage: true,
	}
	root.AddCommand(newTokenCmd(v), newConfigCmd(v), newHeightCmd(v), newAuditCmd(v))
	return root
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a caller principal",
		Long: `Issue an HS256 bearer token that the registry accepts as proof of the
caller's identity. Signing key, issuer and audience come from the same
MFGV_JWT_* settings the server reads.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			principal, err := domain.ParsePrincipal(strings.TrimSpace(v.GetString("principal")))
			if err != nil {
				return fmt.Errorf("--principal: %w", err)
			}
			ttl := v.GetDuration("ttl")
			if ttl <= 0 {
				ttl = v.GetDuration("jwt.token_ttl")
			}
			jwt := jwttoken.NewJWTService(v.GetString("jwt.signing_key"), v.GetString("jwt.issuer"), v.GetString("jwt.audience"))
			token, err := jwt.GenerateAccessToken(principal, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().String("principal", "", "Caller principal to put in the token subject (required)")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to jwt.token_ttl)")
	_ = cmd.MarkFlagRequired("principal")
	if err := v.BindPFlag("principal", cmd.Flags().Lookup("principal")); err != nil {
		panic(fmt.Sprintf("bind principal flag: %v", err))
	}
	if err := v.BindPFlag("ttl", cmd.Flags().Lookup("ttl")); err != nil {
		panic(fmt.Sprintf("bind ttl flag: %v", err))
	}
	return cmd
}

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective server configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
