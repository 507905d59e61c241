package main

import (
	"fmt"
	"time"

	"github.com/kasmail/kasmail-server/api/interceptors"
	"github.com/kasmail/kasmail-server/global"
	"github.com/spf13/cobra"
)

var expiryDays int

func init() {
	tokenCmd.Flags().IntVarP(&expiryDays, "days", "d", 0, "token lifetime in days (default from auth.tokenExpiryDays)")
	rootCmd.AddCommand(tokenCmd)
}

// tokenCmd issues a session token for a wallet address, signed with the server secret
var tokenCmd = &cobra.Command{
	Use:   "token <kaspa address>",
	Short: "Issue a session token for a wallet address",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		if global.Conf.Auth.TokenSecret == "" {
			check(fmt.Errorf("auth.tokenSecret is not configured"))
		}
		days := global.Conf.Auth.TokenExpiryDays
		if expiryDays > 0 {
			days = expiryDays
		}
		token, err := interceptors.GenerateToken([]byte(global.Conf.Auth.TokenSecret), args[0], time.Duration(days)*24*time.Hour)
		check(err)
		fmt.Printf("%s\n", token)
	},
}
