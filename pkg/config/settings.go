package config

import (
	"os"
	"strconv"
	"strings"
)

// Settings holds all trading engine configuration, loaded from environment
// variables. Defaults mirror the documented decision policy so a bare
// environment still produces a safe (simulation-only) engine.
type Settings struct {
	// Trade sizing
	MinTradeSizeSol      float64
	MaxTradeSizeSol      float64
	TradeBalanceFraction float64 // 0 disables balance-fraction sizing
	MinSolReserve        float64

	// Risk limits
	MaxDailyLossSol         float64
	DefaultTargetMultiplier float64
	DefaultStopLossPct      float64
	EmergencyStop           bool

	// Execution
	AllowRealTransactions bool
	SlippageBps           int
	ExitSlippageBps       int
	MaxPriceImpactPct     float64
	PriorityFeeLamports   uint64
	ComputeUnits          uint32
	UseJitoBundles        bool
	JitoTipLamports       uint64

	// Validation
	MinLiquidityUSD    float64
	MaxTopHolderPct    float64
	MinChannelMentions int
	ScoreThreshold     int

	// Infrastructure
	RPCEndpoints    []string
	KeystorePath    string
	KeyPassword     string
	SignalQueue     string
	TradeEventQueue string
	ControlQueue    string
	TelegramToken   string
	TelegramChatID  string
	SniperEnabled   bool
	SniperWsURL     string
}

// LoadSettings reads the settings from the environment.
func LoadSettings() *Settings {
	return &Settings{
		MinTradeSizeSol:      envFloat("MIN_TRADE_SIZE_SOL", 0.01),
		MaxTradeSizeSol:      envFloat("MAX_TRADE_SIZE_SOL", 0.1),
		TradeBalanceFraction: envFloat("TRADE_BALANCE_FRACTION", 0),
		MinSolReserve:        envFloat("MIN_SOL_RESERVE", 0.02),

		MaxDailyLossSol:         envFloat("MAX_DAILY_LOSS_SOL", 0.5),
		DefaultTargetMultiplier: envFloat("DEFAULT_TARGET_MULTIPLIER", 2.0),
		DefaultStopLossPct:      envFloat("STOP_LOSS_PCT", 0.30),
		EmergencyStop:           envBool("EMERGENCY_STOP", false),

		AllowRealTransactions: envBool("ALLOW_REAL_TRANSACTIONS", false),
		SlippageBps:           envInt("SLIPPAGE_BPS", 500),
		ExitSlippageBps:       envInt("EXIT_SLIPPAGE_BPS", 1000),
		MaxPriceImpactPct:     envFloat("MAX_PRICE_IMPACT_PCT", 10),
		PriorityFeeLamports:   uint64(envInt("PRIORITY_FEE_LAMPORTS", 10000)),
		ComputeUnits:          uint32(envInt("COMPUTE_UNITS", 200000)),
		UseJitoBundles:        envBool("USE_JITO_BUNDLES", true),
		JitoTipLamports:       uint64(envInt("JITO_TIP_LAMPORTS", 10000)),

		MinLiquidityUSD:    envFloat("MIN_LIQUIDITY_USD", 10000),
		MaxTopHolderPct:    envFloat("MAX_TOP_HOLDER_PCT", 40),
		MinChannelMentions: envInt("MIN_CHANNEL_MENTIONS", 2),
		ScoreThreshold:     envInt("VALIDATION_SCORE_THRESHOLD", 70),

		RPCEndpoints:    envList("SOLANA_RPC_ENDPOINTS"),
		KeystorePath:    os.Getenv("KEYSTORE_PATH"),
		KeyPassword:     os.Getenv("KEYSTORE_PASSWORD"),
		SignalQueue:     envString("SIGNAL_QUEUE", "token_signals"),
		TradeEventQueue: envString("TRADE_EVENT_QUEUE", "trade_events"),
		ControlQueue:    envString("CONTROL_QUEUE", "engine_control"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		SniperEnabled:   envBool("SNIPER_ENABLED", false),
		SniperWsURL:     envString("SNIPER_WS_URL", "wss://api.mainnet-beta.solana.com"),
	}
}

// ServerPort returns the control API listen port.
func ServerPort() string {
	return envString("PORT", "8080")
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envList parses a comma-separated environment variable into a slice,
// trimming whitespace and dropping empty entries.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
