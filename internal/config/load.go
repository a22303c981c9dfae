package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// MEDIADASH_SERVER_ADDR or MEDIADASH_NARRATOR_API_KEY.
const EnvPrefix = "MEDIADASH"

// NewViper returns a viper instance with defaults and environment binding in
// place. Callers may bind command-line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default of every key. Registering each key also
// lets AutomaticEnv see it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_ttl", "30m")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.cookie_name", "mediadash_session")
	v.SetDefault("server.secure_cookie", false)

	v.SetDefault("upload.max_bytes", 32<<20)
	v.SetDefault("upload.delimiter", "auto")
	v.SetDefault("upload.lazy_quotes", false)

	v.SetDefault("clean.date_order", "auto")

	v.SetDefault("narrator.provider", "none")
	v.SetDefault("narrator.api_key", "")
	v.SetDefault("narrator.base_url", "")
	v.SetDefault("narrator.model", "")
	v.SetDefault("narrator.max_tokens", 1000)
	v.SetDefault("narrator.timeout", "60s")
	v.SetDefault("narrator.options", map[string]any{})

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.job", "mediadash")
	v.SetDefault("metrics.push_gateway", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("metrics.namespace", "")
	v.SetDefault("metrics.tags", []string{})

	v.SetDefault("audit.kind", "none")
	v.SetDefault("audit.dsn", "")
	v.SetDefault("audit.table", "upload_audit")
	v.SetDefault("audit.auto_create_table", true)
}

// Load reads the optional config file and .env files into a Dashboard. A
// missing .env file is not an error; a missing config file that was asked for
// explicitly is.
func Load(v *viper.Viper, file string, envFiles ...string) (Dashboard, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Dashboard{}, fmt.Errorf("load env file: %w", err)
		}
		logrus.Debug("config: no .env file found, using process environment")
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Dashboard{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var d Dashboard
	if err := v.Unmarshal(&d); err != nil {
		return Dashboard{}, fmt.Errorf("decode config: %w", err)
	}
	if d.Narrator.Options == nil {
		d.Narrator.Options = Options{}
	}
	if d.Narrator.APIKey == "" {
		d.Narrator.APIKey = providerKey(d.Narrator.Provider)
	}
	return d, nil
}

// providerKey falls back to the provider SDKs' conventional variables.
func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}
