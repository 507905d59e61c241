package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/repository"
	"github.com/kasmail/kasmail-server/services"
	"github.com/kasmail/kasmail-server/util"
	"github.com/spf13/cobra"
)

func init() {
	minersCmd.AddCommand(minersImportCmd)
	minersCmd.AddCommand(minersCountCmd)
	rootCmd.AddCommand(minersCmd)
}

var minersCmd = &cobra.Command{
	Use:   "miners",
	Short: "Manage the miner reward pool",
}

func minerService() *services.MinerService {
	loadConfig()
	c := global.Conf.CouchDB
	dbSelector, err := repository.ConfigureCouchDB(c.URL(), c.Username, c.Password, repository.Miners)
	check(err)
	return services.NewMinerService(dbSelector)
}

// minersImportCmd seeds or refreshes the pool from a csv export (address,rank[,active])
var minersImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import miner addresses from a CSV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		check(err)
		defer f.Close()

		miners, err := util.ParseMinerCSV(f)
		check(err)

		ms := minerService()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute*5)
		defer cancel()

		imported, err := ms.Import(ctx, miners)
		check(err)
		fmt.Printf("imported %d miner addresses\n", imported)
	},
}

var minersCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of active miner addresses",
	Run: func(cmd *cobra.Command, args []string) {
		ms := minerService()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		size, err := ms.PoolSize(ctx)
		check(err)
		fmt.Printf("%d\n", size)
	},
}
