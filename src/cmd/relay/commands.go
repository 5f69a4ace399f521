package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"kafka-relay/src/broker"
	"kafka-relay/src/consume"
	"kafka-relay/src/gateway"
	"kafka-relay/src/mcp"
	"kafka-relay/src/publish"
	"kafka-relay/src/store"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the HTTP ingestion endpoints",
	Long: `Serves POST /putdata and POST /putdata-with-key, plus GET /metrics and
GET /healthz, on HTTP_ADDR (default :8080).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(appConfig)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := signalContext(log)
		defer cancel()

		pub := publish.NewPublisher(client, []string{appConfig.BatchTopic, appConfig.RecordTopic}, log)
		srv := &http.Server{
			Addr:    appConfig.HTTPAddr,
			Handler: gateway.NewRouter(gateway.NewService(pub, log), log),
		}
		return serve(ctx, srv, log)
	},
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run one of the consumers",
}

var consumeBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Drain the batch topic, committing once per batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsumer(func(client broker.Client, st store.Store) interface{ Run(context.Context) error } {
			return consume.NewBatchConsumer(client, newProcessor(log, st), consumerOptions(appConfig, appConfig.BatchTopic), log)
		})
	},
}

var consumeRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Drain the record topic, committing after every record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsumer(func(client broker.Client, st store.Store) interface{ Run(context.Context) error } {
			return consume.NewRecordConsumer(client, newProcessor(log, st), consumerOptions(appConfig, appConfig.RecordTopic), log)
		})
	},
}

func runConsumer(build func(broker.Client, store.Store) interface{ Run(context.Context) error }) error {
	client, err := newClient(appConfig)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := signalContext(log)
	defer cancel()

	st, err := newStore(ctx, appConfig)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	if err := build(client, st).Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run the gateway and both consumers over an in-memory broker",
	Long: `Runs the whole relay in one process. Records live in memory and are lost
on exit. Outcomes go to Postgres when POSTGRES_DSN is set, otherwise to memory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(log)
		defer cancel()

		var st store.Store = store.NewMemoryStore()
		if appConfig.PostgresDSN != "" {
			pg, err := newStore(ctx, appConfig)
			if err != nil {
				return err
			}
			st = pg
		}
		defer closeStore(st, log)

		relay := newLocalRelay(appConfig, log, st)
		relay.start(ctx)

		srv := &http.Server{Addr: appConfig.HTTPAddr, Handler: relay.router}
		err := serve(ctx, srv, log)

		cancel()
		relay.stop()
		return err
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the ingestion tools over MCP stdio",
	Long: `Starts an MCP server on stdin/stdout with the put_data and
put_data_with_key tools, and get_outcomes when POSTGRES_DSN is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(appConfig)
		if err != nil {
			return err
		}
		defer client.Close()

		st, err := newStore(context.Background(), appConfig)
		if err != nil {
			return err
		}
		defer closeStore(st, log)

		pub := publish.NewPublisher(client, []string{appConfig.BatchTopic, appConfig.RecordTopic}, log)
		server := mcp.NewServer(gateway.NewService(pub, log), st)

		if err := server.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
			return err
		}
		return nil
	},
}
