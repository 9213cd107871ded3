package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SupportConfig tunes the support console without a redeploy.
type SupportConfig struct {
	PageSize              int `mapstructure:"pageSize"`
	UnreadEscalationCount int `mapstructure:"unreadEscalationCount"`
	SearchResultLimit     int `mapstructure:"searchResultLimit"`
}

func DefaultSupportConfig() SupportConfig {
	return SupportConfig{
		PageSize:              50,
		UnreadEscalationCount: 10,
		SearchResultLimit:     200,
	}
}

// SupportConfigHolder exposes the current support console tuning and hot-reloads
// it when the underlying file changes.
type SupportConfigHolder struct {
	current atomic.Value // holds SupportConfig
}

func NewSupportConfigHolder() (*SupportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("support")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/market/config")
	v.AddConfigPath("/etc/market")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSupportConfig()
		v.SetDefault("support.pageSize", defaults.PageSize)
		v.SetDefault("support.unreadEscalationCount", defaults.UnreadEscalationCount)
		v.SetDefault("support.searchResultLimit", defaults.SearchResultLimit)
	}

	var cfg SupportConfig
	if err := v.UnmarshalKey("support", &cfg); err != nil {
		return nil, err
	}
	if err := validateSupportConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SupportConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SupportConfig
		if err := v.UnmarshalKey("support", &updated); err != nil {
			log.Printf("[support-config] reload failed: %v", err)
			return
		}
		if err := validateSupportConfig(updated); err != nil {
			log.Printf("[support-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[support-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSupportConfigHolder wraps a fixed config without file watching.
func NewStaticSupportConfigHolder(cfg SupportConfig) *SupportConfigHolder {
	holder := &SupportConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *SupportConfigHolder) Get() SupportConfig {
	return h.current.Load().(SupportConfig)
}

func validateSupportConfig(cfg SupportConfig) error {
	if cfg.PageSize <= 0 {
		return errors.New("support.pageSize must be positive")
	}
	if cfg.SearchResultLimit <= 0 {
		return errors.New("support.searchResultLimit must be positive")
	}
	return nil
}
