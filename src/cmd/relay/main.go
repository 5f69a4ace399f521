// Package main provides the relay CLI: the ingestion gateway, the two
// consumers, an all-in-one local mode and the MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"kafka-relay/src/config"
	"kafka-relay/src/logger"
)

var (
	appConfig *config.Config
	log       logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - HTTP JSON ingestion mirrored onto Kafka topics",
	Long: `Relay accepts JSON objects over HTTP, stamps each with an api_tran_id and
publishes it to two topics:

- batch-topic: drained by the batch consumer, one commit per batch
- record-topic: drained by the record consumer, one commit per record

Brokers are read from KAFKA_BROKERS. 'relay local' runs everything in one
process over an in-memory broker.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			os.Exit(1)
		}

		log = logger.NewKitLogger(os.Stderr, appConfig.LogFormat, appConfig.LogDebug)
		if !appConfig.LogDebug {
			gin.SetMode(gin.ReleaseMode)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd, consumeCmd, localCmd, mcpCmd)
	consumeCmd.AddCommand(consumeBatchCmd, consumeRecordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
