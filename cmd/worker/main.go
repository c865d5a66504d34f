package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"strings"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"memetrader/internal/models"
	"memetrader/internal/notify"
	"memetrader/internal/sniper"
	"memetrader/internal/trading"
	"memetrader/internal/validator"
	"memetrader/pkg/config"
	"memetrader/pkg/dexscreener"
	sol "memetrader/pkg/solana"
	"memetrader/pkg/utils"
)

const monitorInterval = "@every 30s"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment")
	}
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	settings := config.LoadSettings()

	config.InitDB()
	config.ExecuteMigrations()
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// rank the configured endpoints and pin the fastest for this run
	endpoints := settings.RPCEndpoints
	if len(endpoints) == 0 {
		endpoints = []string{"https://api.mainnet-beta.solana.com"}
	}
	ranker := sol.NewEndpointRanker(endpoints, 2*time.Second)
	ranker.Refresh(ctx)
	rpcURL, err := ranker.FastestEndpoint()
	if err != nil {
		log.Fatal("no rpc endpoint available: ", err)
	}
	log.WithField("rpc_url", rpcURL).Info("rpc endpoint selected")

	chain := sol.NewChain(rpcURL)
	market := dexscreener.NewClient()
	jupiter := utils.NewJupiterClient()
	pools := sol.NewRaydiumAPIClient()
	relay := sol.NewRelaySubmitter(nil)

	signer := loadSigner(settings)

	v := validator.New(validatorConfig(settings), market, chain)
	executor := buildExecutor(settings, chain, pools, relay, jupiter, signer)
	store := trading.NewGormStore(config.DB)
	notifier := buildNotifier(settings)

	manager := trading.NewManager(trading.ManagerConfig{
		MinTradeSizeSol:      settings.MinTradeSizeSol,
		MaxTradeSizeSol:      settings.MaxTradeSizeSol,
		TradeBalanceFraction: settings.TradeBalanceFraction,
		MinSolReserve:        settings.MinSolReserve,
		MaxDailyLossSol:      settings.MaxDailyLossSol,
		TargetMultiplier:     settings.DefaultTargetMultiplier,
		StopLossPct:          settings.DefaultStopLossPct,
		WalletAddress:        walletAddress(signer),
	}, executor, jupiter, chain, store, notifier)
	if settings.EmergencyStop {
		manager.SetEmergencyStop(true)
	}

	scheduler := cron.New()
	scheduler.AddFunc(monitorInterval, func() {
		cycleCtx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		manager.MonitorCycle(cycleCtx)
	})
	scheduler.AddFunc("0 0 * * *", manager.ResetDailyCounters)
	scheduler.AddFunc("@every 1m", func() { ranker.Refresh(ctx) })
	scheduler.Start()
	defer scheduler.Stop()

	go consumeSignals(ctx, settings, v, manager, market, store)
	go consumeControl(ctx, settings, manager)

	if settings.SniperEnabled {
		sn := sniper.New(settings.SniperWsURL, sniper.NewRPCResolver(chain.Client()), v, manager, market)
		go func() {
			if err := sn.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("sniper stopped")
			}
		}()
	}

	log.Info("trading worker started")
	<-ctx.Done()
	log.Info("shutting down")
}

func validatorConfig(settings *config.Settings) validator.Config {
	cfg := validator.DefaultConfig()
	cfg.MinLiquidityUSD = settings.MinLiquidityUSD
	cfg.MinChannelMentions = settings.MinChannelMentions
	cfg.MaxTopHolderPct = settings.MaxTopHolderPct
	cfg.ScoreThreshold = settings.ScoreThreshold
	return cfg
}

func loadSigner(settings *config.Settings) solanago.PrivateKey {
	if settings.KeystorePath == "" || settings.KeyPassword == "" {
		if settings.AllowRealTransactions {
			log.Fatal("real transactions enabled but no keystore configured")
		}
		return nil
	}

	dir, address := splitKeystorePath(settings.KeystorePath)
	wallet := sol.NewWallet(dir)
	signer, err := wallet.LoadSigner(address, settings.KeyPassword)
	if err != nil {
		log.Fatal("failed to load signing key: ", err)
	}
	log.WithField("wallet", signer.PublicKey().String()).Info("signing key loaded")
	return signer
}

// splitKeystorePath splits "dir/<address>.json" into directory and address.
func splitKeystorePath(path string) (string, string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", strings.TrimSuffix(path, ".json")
	}
	return path[:idx], strings.TrimSuffix(path[idx+1:], ".json")
}

func walletAddress(signer solanago.PrivateKey) string {
	if signer == nil {
		return ""
	}
	return signer.PublicKey().String()
}

func buildExecutor(settings *config.Settings, chain *sol.Chain, pools *sol.RaydiumAPIClient, relay *sol.RelaySubmitter, jupiter *utils.JupiterClient, signer solanago.PrivateKey) *trading.Executor {
	raydium := trading.NewRaydiumVenue(chain, pools, relay, signer, trading.RaydiumVenueConfig{
		PriorityFeeLamports: settings.PriorityFeeLamports,
		ComputeUnits:        settings.ComputeUnits,
		UseJitoBundles:      settings.UseJitoBundles,
		JitoTipLamports:     settings.JitoTipLamports,
	})
	jup := trading.NewJupiterVenue(jupiter, chain, signer, settings.PriorityFeeLamports, 0)

	return trading.NewExecutor(trading.ExecutorConfig{
		AllowRealTransactions: settings.AllowRealTransactions,
		MaxPriceImpactPct:     settings.MaxPriceImpactPct,
		SlippageBps:           settings.SlippageBps,
		ExitSlippageBps:       settings.ExitSlippageBps,
	}, raydium, jup)
}

func buildNotifier(settings *config.Settings) notify.Notifier {
	var sinks notify.Multi

	if publisher, err := config.NewPublisher(); err != nil {
		log.WithError(err).Warn("trade event publisher unavailable")
	} else {
		sinks = append(sinks, notify.NewQueue(publisher, settings.TradeEventQueue))
	}
	if settings.TelegramToken != "" && settings.TelegramChatID != "" {
		sinks = append(sinks, notify.NewTelegram(settings.TelegramToken, settings.TelegramChatID))
	}

	if len(sinks) == 0 {
		return notify.Noop{}
	}
	return sinks
}

// consumeSignals validates each incoming signal and opens positions for
// accepted ones. Handler errors are returned so the message is requeued.
func consumeSignals(ctx context.Context, settings *config.Settings, v *validator.Validator, manager *trading.Manager, market *dexscreener.Client, store *trading.GormStore) {
	consumer, err := config.NewConsumer(settings.SignalQueue)
	if err != nil {
		log.Fatal("failed to create signal consumer: ", err)
	}
	defer consumer.Close()

	go func() {
		<-ctx.Done()
		consumer.Close()
	}()

	err = consumer.Consume(func(msg []byte) error {
		var sig models.Signal
		if err := json.Unmarshal(msg, &sig); err != nil {
			log.WithError(err).Error("malformed signal message, dropping")
			return nil
		}
		handleSignal(ctx, sig, v, manager, market, store)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal("signal consumer stopped: ", err)
	}
}

func handleSignal(ctx context.Context, sig models.Signal, v *validator.Validator, manager *trading.Manager, market *dexscreener.Client, store *trading.GormStore) {
	valCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if pct, ok := sig.Metadata["top_holder_pct"].(float64); ok {
		v.RecordHolderShare(sig.TokenAddress, pct)
	}

	result := v.Validate(valCtx, sig.TokenAddress, sig.Source)
	saveSignalRecord(store, result, sig.Source)
	if !result.IsValid {
		return
	}

	entry := trading.EntryRequest{
		TokenAddress: sig.TokenAddress,
		TokenName:    sig.TokenName,
		Confidence:   sig.Confidence,
	}
	if data, err := market.GetTokenData(valCtx, sig.TokenAddress); err == nil {
		entry.PriceUsd = data.PriceUsd
		if entry.TokenName == "" {
			entry.TokenName = data.Name
		}
	} else {
		log.WithError(err).WithField("token", sig.TokenAddress).Warn("no market data, skipping entry")
		return
	}

	manager.OpenPosition(ctx, entry)
}

func saveSignalRecord(store *trading.GormStore, result validator.ValidationResult, source string) {
	checks, err := json.Marshal(result.Checks)
	if err != nil {
		checks = []byte("{}")
	}
	record := &models.SignalRecord{
		TokenAddress: result.TokenAddress,
		Source:       source,
		Score:        result.Score,
		IsValid:      result.IsValid,
		Checks:       checks,
		Warnings:     strings.Join(result.Warnings, "; "),
	}
	if err := store.SaveSignalRecord(record); err != nil {
		log.WithError(err).Error("failed to save signal record")
	}
}

// consumeControl applies emergency-stop commands published by the API.
func consumeControl(ctx context.Context, settings *config.Settings, manager *trading.Manager) {
	consumer, err := config.NewConsumer(settings.ControlQueue)
	if err != nil {
		log.Fatal("failed to create control consumer: ", err)
	}
	defer consumer.Close()

	go func() {
		<-ctx.Done()
		consumer.Close()
	}()

	err = consumer.Consume(func(msg []byte) error {
		var cmd models.ControlMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			log.WithError(err).Error("malformed control message, dropping")
			return nil
		}
		if cmd.Action == "emergency_stop" {
			manager.SetEmergencyStop(cmd.Active)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal("control consumer stopped: ", err)
	}
}
