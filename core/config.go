package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultNotesDebounce is the quiet period after the last notes edit before the write is sent.
const DefaultNotesDebounce = 600 * time.Millisecond

type (
	APIConfig struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	WorkflowConfig struct {
		NotesDebounce time.Duration
	}

	ServerConfig struct {
		Address            string
		ShutdownTimeout    time.Duration
		JWTSecret          string
		JWTExpirationDelta time.Duration
	}

	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string

		API      APIConfig
		Workflow WorkflowConfig
		Server   ServerConfig
	}
)

// NewConfig reads the configuration from the environment (prefixed with the current ENV)
// and from config/.env.<env> when that file exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Masomo")
	conf.SetDefault("defaultFromEmailName", "Masomo")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("apiBaseURL", "http://localhost:8000")
	conf.SetDefault("apiToken", "")
	conf.SetDefault("apiTimeout", 15*time.Second)
	conf.SetDefault("notesDebounce", DefaultNotesDebounce)
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:  conf.GetString("appName"),
		Env:      env,
		Build:    conf.GetString("build"),
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("defaultFromEmailName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		FrontendBaseURL: conf.GetString("frontendBaseURL"),
		RollbarToken:    conf.GetString("rollbarToken"),
		SendgridAPIKey:  conf.GetString("sendgridApiKey"),
		API: APIConfig{
			BaseURL: strings.TrimRight(conf.GetString("apiBaseURL"), "/"),
			Token:   conf.GetString("apiToken"),
			Timeout: conf.GetDuration("apiTimeout"),
		},
		Workflow: WorkflowConfig{
			NotesDebounce: conf.GetDuration("notesDebounce"),
		},
		Server: ServerConfig{
			Address:            conf.GetString("serverAddress"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTSecret:          conf.GetString("secretKey"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
	}
}

// configDir returns $MASOMO_CONFIG_DIR, or ./config relative to the working directory.
func configDir() string {
	if dir := os.Getenv("MASOMO_CONFIG_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(wd, "config")
}
