package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"memetrader/internal/handlers"
	"memetrader/internal/routes"
	"memetrader/internal/trading"
	"memetrader/internal/validator"
	"memetrader/pkg/config"
	"memetrader/pkg/dexscreener"
	sol "memetrader/pkg/solana"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment")
	}
	log.SetFormatter(&log.JSONFormatter{})

	settings := config.LoadSettings()

	config.InitDB()
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	endpoints := settings.RPCEndpoints
	if len(endpoints) == 0 {
		endpoints = []string{"https://api.mainnet-beta.solana.com"}
	}
	ranker := sol.NewEndpointRanker(endpoints, 2*time.Second)
	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ranker.Refresh(probeCtx)
	cancel()
	rpcURL, err := ranker.FastestEndpoint()
	if err != nil {
		log.Fatal("no rpc endpoint available: ", err)
	}

	chain := sol.NewChain(rpcURL)
	market := dexscreener.NewClient()
	store := trading.NewGormStore(config.DB)

	vcfg := validator.DefaultConfig()
	vcfg.MinLiquidityUSD = settings.MinLiquidityUSD
	vcfg.MinChannelMentions = settings.MinChannelMentions
	vcfg.ScoreThreshold = settings.ScoreThreshold
	v := validator.New(vcfg, market, chain)

	// read-only view over the persisted positions; trading happens in the
	// worker process
	manager := trading.NewManager(trading.ManagerConfig{
		MaxDailyLossSol: settings.MaxDailyLossSol,
	}, nil, nil, nil, store, nil)

	publisher, err := config.NewPublisher()
	if err != nil {
		log.Fatal("failed to create control publisher: ", err)
	}
	defer publisher.Close()

	h := handlers.New(manager, v, ranker, queuePublisher{
		publisher: publisher,
		queue:     settings.ControlQueue,
	})
	r := routes.SetupRouter(h)

	port := config.ServerPort()
	log.WithField("port", port).Info("control api listening")
	if err := r.Run(":" + port); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}

// queuePublisher binds the shared publisher to the control queue.
type queuePublisher struct {
	publisher *config.Publisher
	queue     string
}

func (q queuePublisher) Publish(message interface{}) error {
	return q.publisher.Publish(q.queue, message)
}
