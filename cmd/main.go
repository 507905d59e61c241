package main

import (
	"fmt"
	"os"

	"github.com/kasmail/kasmail-server/global"
	cfg "github.com/mailio/go-web3-kit/config"
	"github.com/spf13/cobra"
)

var configFile string

func check(e error) {
	if e != nil {
		fmt.Printf("%v\n", e.Error())
		os.Exit(1)
	}
}

// loadConfig reads the server configuration the commands share with the server
func loadConfig() {
	err := cfg.NewYamlConfig(configFile, &global.Conf)
	check(err)
	global.Conf.ApplyDefaults()
}

var rootCmd = &cobra.Command{
	Use:     "kasmail",
	Short:   "KasMail server administration",
	Long:    `KasMail server administration: miner reward pool maintenance and session tokens for testing.`,
	Version: "0.1.0",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "conf.yaml", "configuration file path")
}

func main() {
	Execute()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
