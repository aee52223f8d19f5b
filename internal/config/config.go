package config

import (
	"os"
	"strconv"

	"github.com/netrasec/jaal/internal/analyzer"
)

type Config struct {
	Port            int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	LogLevel        string
	OpenRouterKey   string
	OpenRouterModel string
	CallbackURL     string
	CallbackToken   string
	APIKey          string
	ReplayStatePath string
	Tunables        analyzer.Tunables
}

func Load() Config {
	def := analyzer.DefaultTunables()
	return Config{
		Port:            envInt("JAAL_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		OpenRouterKey:   envStr("OPENROUTER_API_KEY", ""),
		OpenRouterModel: envStr("JAAL_MODEL", "meta-llama/llama-3.1-70b-instruct"),
		CallbackURL:     envStr("CALLBACK_URL", ""),
		CallbackToken:   envStr("CALLBACK_TOKEN", ""),
		APIKey:          envStr("JAAL_API_KEY", ""),
		ReplayStatePath: envStr("JAAL_REPLAY_STATE", "jaal-replay-state.json"),
		Tunables: analyzer.Tunables{
			PaymentCueBonus: envInt("THREAT_BONUS_PAYMENT", def.PaymentCueBonus),
			UrgencyCueBonus: envInt("THREAT_BONUS_URGENCY", def.UrgencyCueBonus),
			ThreatCueBonus:  envInt("THREAT_BONUS_THREAT", def.ThreatCueBonus),
			DigitRunBonus:   envInt("THREAT_BONUS_DIGITS", def.DigitRunBonus),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
