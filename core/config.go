package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Env          string
		Build        string
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server  ServerConfig
		RestAPI RestAPIConfig
		Storage StorageConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		SecureCookies   bool
		ScopeMaxAge     time.Duration
		LoginRate       float64 // attempts per second, per client IP
		LoginBurst      int
	}

	RestAPIConfig struct {
		BaseURL   string
		LoginPath string
		Timeout   time.Duration
	}

	StorageConfig struct {
		Driver    string // memory | file | redis | postgres | sqlite
		Path      string // file
		URL       string // redis
		DSN       string // postgres | sqlite
		KeyPrefix string
		TTL       time.Duration
	}
)

// NewConfig reads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current env name, e.g. `DEV_RESTAPI_BASEURL`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "LMS Admin")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "k8x!m2^tq-zv7r)w4l$9pd+e0b@n6y(cs3h&f*ja1gu5oi")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.secureCookies", false)
	conf.SetDefault("server.scopeMaxAge", 30*24*time.Hour)
	conf.SetDefault("server.loginRate", 0.2)
	conf.SetDefault("server.loginBurst", 5)

	conf.SetDefault("restApi.baseURL", "http://localhost:3000/api")
	conf.SetDefault("restApi.loginPath", "/users/login")
	conf.SetDefault("restApi.timeout", 15*time.Second)

	conf.SetDefault("storage.driver", "memory")
	conf.SetDefault("storage.path", "")
	conf.SetDefault("storage.url", "redis://localhost:6379/0")
	conf.SetDefault("storage.dsn", "")
	conf.SetDefault("storage.keyPrefix", "lms-admin:")
	conf.SetDefault("storage.ttl", 30*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		WorkDir:      workDir,
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Address:         conf.GetString("server.address"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			SecureCookies:   conf.GetBool("server.secureCookies"),
			ScopeMaxAge:     conf.GetDuration("server.scopeMaxAge"),
			LoginRate:       conf.GetFloat64("server.loginRate"),
			LoginBurst:      conf.GetInt("server.loginBurst"),
		},
		RestAPI: RestAPIConfig{
			BaseURL:   strings.TrimRight(conf.GetString("restApi.baseURL"), "/"),
			LoginPath: conf.GetString("restApi.loginPath"),
			Timeout:   conf.GetDuration("restApi.timeout"),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(conf.GetString("storage.driver")),
			Path:      conf.GetString("storage.path"),
			URL:       conf.GetString("storage.url"),
			DSN:       conf.GetString("storage.dsn"),
			KeyPrefix: conf.GetString("storage.keyPrefix"),
			TTL:       conf.GetDuration("storage.ttl"),
		},
	}
}
