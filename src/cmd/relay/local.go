package main

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"kafka-relay/src/broker"
	"kafka-relay/src/config"
	"kafka-relay/src/consume"
	"kafka-relay/src/gateway"
	"kafka-relay/src/logger"
	"kafka-relay/src/publish"
	"kafka-relay/src/store"
)

// localRelay is the gateway plus both consumers sharing one in-memory broker.
type localRelay struct {
	broker *broker.InMemoryBroker
	router *gin.Engine
	batch  *consume.BatchConsumer
	record *consume.RecordConsumer
	logger logger.Logger
	wg     sync.WaitGroup
}

func newLocalRelay(cfg *config.Config, log logger.Logger, st store.Store) *localRelay {
	brk := broker.NewInMemoryBroker(cfg.Partitions, cfg.PollTimeout)
	pub := publish.NewPublisher(brk, []string{cfg.BatchTopic, cfg.RecordTopic}, log)
	processor := newProcessor(log, st)

	return &localRelay{
		broker: brk,
		router: gateway.NewRouter(gateway.NewService(pub, log), log),
		batch:  consume.NewBatchConsumer(brk, processor, consumerOptions(cfg, cfg.BatchTopic), log),
		record: consume.NewRecordConsumer(brk, processor, consumerOptions(cfg, cfg.RecordTopic), log),
		logger: log,
	}
}

// start launches both consumers. They run until ctx is cancelled or stop is called.
func (r *localRelay) start(ctx context.Context) {
	for _, c := range []interface{ Run(context.Context) error }{r.batch, r.record} {
		c := c
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := c.Run(ctx); err != nil && err != context.Canceled {
				r.logger.Error("Consumer stopped: %v", err)
			}
		}()
	}
}

// stop closes the broker and waits for the consumers to return.
func (r *localRelay) stop() {
	r.broker.Close()
	r.wg.Wait()
}
