package config

import (
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// HouseholdConfig carries display and runtime settings that operators may
// tune without restarting the service.
type HouseholdConfig struct {
	HouseholdName     string  `mapstructure:"householdName"`
	CurrencySymbol    string  `mapstructure:"currencySymbol"`
	CurrencyPrecision int     `mapstructure:"currencyPrecision"`
	EnergyUnit        string  `mapstructure:"energyUnit"`
	GateCacheTTLSecs  int     `mapstructure:"gateCacheTtlSeconds"`
	ReceiptEpsilon    float64 `mapstructure:"receiptEpsilon"`
}

func DefaultHouseholdConfig() HouseholdConfig {
	return HouseholdConfig{
		HouseholdName:     "Household",
		CurrencySymbol:    "R",
		CurrencyPrecision: 2,
		EnergyUnit:        "kWh",
		GateCacheTTLSecs:  5,
		ReceiptEpsilon:    0.01,
	}
}

func (c HouseholdConfig) GateCacheTTL() time.Duration {
	if c.GateCacheTTLSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.GateCacheTTLSecs) * time.Second
}

// HouseholdConfigHolder serves the current household config and hot-reloads
// it when wattshare.yml changes on disk.
type HouseholdConfigHolder struct {
	current atomic.Value // holds HouseholdConfig
}

func NewHouseholdConfigHolder() (*HouseholdConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("wattshare")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/wattshare")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WATTSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultHouseholdConfig()
	v.SetDefault("household.householdName", defaults.HouseholdName)
	v.SetDefault("household.currencySymbol", defaults.CurrencySymbol)
	v.SetDefault("household.currencyPrecision", defaults.CurrencyPrecision)
	v.SetDefault("household.energyUnit", defaults.EnergyUnit)
	v.SetDefault("household.gateCacheTtlSeconds", defaults.GateCacheTTLSecs)
	v.SetDefault("household.receiptEpsilon", defaults.ReceiptEpsilon)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &HouseholdConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("household config reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *HouseholdConfigHolder) reload(v *viper.Viper) error {
	var cfg HouseholdConfig
	if err := v.UnmarshalKey("household", &cfg); err != nil {
		return err
	}
	if cfg.CurrencyPrecision <= 0 {
		cfg.CurrencyPrecision = 2
	}
	if cfg.ReceiptEpsilon <= 0 {
		cfg.ReceiptEpsilon = 0.01
	}
	h.current.Store(cfg)
	return nil
}

// NewStaticHouseholdConfigHolder returns a holder pinned to one config, with
// no file watching. Used by tests and one-shot tooling.
func NewStaticHouseholdConfigHolder(cfg HouseholdConfig) *HouseholdConfigHolder {
	holder := &HouseholdConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *HouseholdConfigHolder) Current() HouseholdConfig {
	if v, ok := h.current.Load().(HouseholdConfig); ok {
		return v
	}
	return DefaultHouseholdConfig()
}
