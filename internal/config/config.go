package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Category struct {
	Name     string
	Keywords []string
}

type Config struct {
	App struct {
		Env            string
		Timezone       string
		WarehouseActor string `mapstructure:"warehouse_actor"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Store struct {
		Driver string // postgres|sqlite|memory
	} `mapstructure:"store"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	SQLite struct {
		Path string
	} `mapstructure:"sqlite"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Stock struct {
		LowThreshold int        `mapstructure:"low_threshold"`
		Categories   []Category `mapstructure:"categories"`
	} `mapstructure:"stock"`
}

func Load(path string) (Config, error) {
	// .env is optional, real env always wins
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("STOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("app.warehouse_actor", "Depo")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("sqlite.path", "stok.db")
	v.SetDefault("stock.low_threshold", 2)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
