package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shorts-publisher/domain/model"
	"shorts-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	TikTok      TikTok      `json:"tiktok"`
	YouTube     YouTube     `json:"youtube"`
	Publish     Publish     `json:"publish"`
	Auth        Auth        `json:"auth"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
}

type App struct {
	SecretKey    string `json:"secretKey"`
	CallbackPort int    `json:"callbackPort"`
	KeepAlive    bool   `json:"keepAlive"`

	// Origins allowed to call the callback server, e.g. the hosted login page.
	AllowOrigins []string `json:"allowOrigins"`
}

type TikTok struct {
	ClientKey    string   `json:"clientKey"`
	ClientSecret string   `json:"clientSecret"`
	LoginURL     string   `json:"loginURL"`
	RedirectURI  string   `json:"redirectURI"`
	APIBase      string   `json:"apiBase"`
	AuthorizeURL string   `json:"authorizeURL"`
	TokenFile    string   `json:"tokenFile"`
	PrivacyLevel string   `json:"privacyLevel"`
	Scopes       []string `json:"scopes"`
	// Optional seed used when the token file does not exist yet.
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	ExpiresAt    int64  `json:"-"`
}

type YouTube struct {
	ClientSecretFile string `json:"clientSecretFile"`
	TokenFile        string `json:"tokenFile"`
	CategoryID       string `json:"categoryId"`
	PrivacyStatus    string `json:"privacyStatus"`
	ChunkSize        int    `json:"chunkSize"`
}

type Publish struct {
	VideosDir   string   `json:"videosDir"`
	MetadataDir string   `json:"metadataDir"`
	ResultLog   string   `json:"resultLog"` // optional CSV of every upload result
	Platforms   []string `json:"platforms"`
}

type Auth struct {
	PromptMode    string        `json:"promptMode"` // console | web
	PromptTimeout time.Duration `json:"promptTimeout"`
}

type Database struct {
	Vendor string `json:"vendor"` // postgres | mssql | empty disables the ledger
	Psql   Db     `json:"psql"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	Channel  string `json:"channel"`
}

const (
	PromptModeConsole = "console"
	PromptModeWeb     = "web"
)

var C Config

// LoadConfig reads config[-ENV].json from the working directory or its parents, then
// applies environment overrides and defaults.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".", "../", "../../")
}

func LoadConfigFrom(paths ...string) (*Config, error) {
	name := getConfig()
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("json")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.GetLogger().WithField("config", name).Warn("Config file not found, using environment only")
		} else {
			return nil, fmt.Errorf("read config %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", name, err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	C = cfg

	logger.GetLogger().WithFields(map[string]interface{}{
		"config":     name,
		"platforms":  cfg.Publish.Platforms,
		"promptMode": cfg.Auth.PromptMode,
		"tokenFile":  cfg.TikTok.TokenFile,
		"ledger":     cfg.Database.Vendor,
	}).Info("Config set up successfully")
	return &cfg, nil
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func applyEnv(c *Config) {
	c.App.SecretKey = getConfigValue(c.App.SecretKey, "SECRET_KEY", "")
	if p, err := strconv.Atoi(os.Getenv("CALLBACK_PORT")); err == nil {
		c.App.CallbackPort = p
	}
	if v := os.Getenv("KEEP_ALIVE"); v != "" {
		c.App.KeepAlive = parseBool(v, c.App.KeepAlive)
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		c.App.AllowOrigins = splitList(v)
	}

	c.TikTok.ClientKey = getConfigValue(c.TikTok.ClientKey, "TIKTOK_CLIENT_KEY", "")
	c.TikTok.ClientSecret = getConfigValue(c.TikTok.ClientSecret, "TIKTOK_CLIENT_SECRET", "")
	c.TikTok.LoginURL = getConfigValue(c.TikTok.LoginURL, "TIKTOK_LOGIN_URL", "")
	c.TikTok.RedirectURI = getConfigValue(c.TikTok.RedirectURI, "TIKTOK_REDIRECT_URI", "")
	c.TikTok.APIBase = getConfigValue(c.TikTok.APIBase, "TIKTOK_API_BASE", "")
	c.TikTok.TokenFile = getConfigValue(c.TikTok.TokenFile, "TIKTOK_TOKEN_FILE", "")
	c.TikTok.PrivacyLevel = getConfigValue(c.TikTok.PrivacyLevel, "TIKTOK_PRIVACY_LEVEL", "")
	c.TikTok.AccessToken = getEnv("TIKTOK_ACCESS_TOKEN", "")
	c.TikTok.RefreshToken = getEnv("TIKTOK_REFRESH_TOKEN", "")
	if v, err := strconv.ParseInt(getEnv("TIKTOK_EXPIRES_AT", "0"), 10, 64); err == nil {
		c.TikTok.ExpiresAt = v
	}

	c.YouTube.ClientSecretFile = getConfigValue(c.YouTube.ClientSecretFile, "YOUTUBE_CLIENT_SECRETS_FILE", "")
	c.YouTube.TokenFile = getConfigValue(c.YouTube.TokenFile, "YOUTUBE_TOKEN_FILE", "")

	c.Publish.VideosDir = getConfigValue(c.Publish.VideosDir, "PUBLISH_VIDEOS_DIR", "")
	c.Publish.MetadataDir = getConfigValue(c.Publish.MetadataDir, "PUBLISH_METADATA_DIR", "")
	c.Publish.ResultLog = getConfigValue(c.Publish.ResultLog, "PUBLISH_RESULT_LOG", "")
	if v := os.Getenv("PUBLISH_PLATFORMS"); v != "" {
		c.Publish.Platforms = splitList(v)
	}

	c.Auth.PromptMode = getConfigValue(c.Auth.PromptMode, "AUTH_PROMPT_MODE", "")
	if d, err := time.ParseDuration(os.Getenv("AUTH_PROMPT_TIMEOUT")); err == nil {
		c.Auth.PromptTimeout = d
	}

	c.Database.Vendor = getConfigValue(c.Database.Vendor, "DB_VENDOR", "")
	c.Database.Psql.Name = getConfigValue(c.Database.Psql.Name, "DB_NAME", "")
	c.Database.Psql.Host = getConfigValue(c.Database.Psql.Host, "DB_HOST", "")
	c.Database.Psql.Port = getConfigValue(c.Database.Psql.Port, "DB_PORT", "")
	c.Database.Psql.User = getConfigValue(c.Database.Psql.User, "DB_USER", "")
	c.Database.Psql.Password = getConfigValue(c.Database.Psql.Password, "DB_PASSWORD", "")
	c.Database.Mssql.Name = getConfigValue(c.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	c.Database.Mssql.Host = getConfigValue(c.Database.Mssql.Host, "MSSQL_HOST", "")
	c.Database.Mssql.Port = getConfigValue(c.Database.Mssql.Port, "MSSQL_PORT", "")
	c.Database.Mssql.User = getConfigValue(c.Database.Mssql.User, "MSSQL_USER", "")
	c.Database.Mssql.Password = getConfigValue(c.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	c.RedisClient.Host = getConfigValue(c.RedisClient.Host, "REDIS_HOST", "")
	c.RedisClient.Port = getConfigValue(c.RedisClient.Port, "REDIS_PORT", "")
	c.RedisClient.Username = getConfigValue(c.RedisClient.Username, "REDIS_USERNAME", "")
	c.RedisClient.Password = getConfigValue(c.RedisClient.Password, "REDIS_PASSWORD", "")
}

func applyDefaults(c *Config) {
	if c.App.CallbackPort == 0 {
		c.App.CallbackPort = 8090
	}
	if c.TikTok.APIBase == "" {
		c.TikTok.APIBase = "https://open.tiktokapis.com"
	}
	if c.TikTok.AuthorizeURL == "" {
		c.TikTok.AuthorizeURL = "https://www.tiktok.com/v2/auth/authorize/"
	}
	if c.TikTok.TokenFile == "" {
		c.TikTok.TokenFile = homePath(".tiktok_token.json")
	}
	if c.TikTok.PrivacyLevel == "" {
		c.TikTok.PrivacyLevel = "PUBLIC_TO_EVERYONE"
	}
	if len(c.TikTok.Scopes) == 0 {
		c.TikTok.Scopes = []string{"user.info.basic", "video.publish", "video.upload"}
	}
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = homePath(".youtube_token.json")
	}
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = "22"
	}
	if c.YouTube.PrivacyStatus == "" {
		c.YouTube.PrivacyStatus = "public"
	}
	if c.Publish.VideosDir == "" {
		c.Publish.VideosDir = "videos"
	}
	if c.Publish.MetadataDir == "" {
		c.Publish.MetadataDir = "audio_and_subtitles"
	}
	if len(c.Publish.Platforms) == 0 {
		c.Publish.Platforms = []string{string(model.PlatformTikTok), string(model.PlatformYouTube)}
	}
	if c.Auth.PromptMode == "" {
		c.Auth.PromptMode = PromptModeConsole
	}
	if c.Auth.PromptTimeout <= 0 {
		c.Auth.PromptTimeout = 10 * time.Minute
	}
	if c.Database.Psql.Port == "" {
		c.Database.Psql.Port = "5432"
	}
	if c.Database.Mssql.Port == "" {
		c.Database.Mssql.Port = "1433"
	}
	if c.RedisClient.Channel == "" {
		c.RedisClient.Channel = "upload_results"
	}
}

// Platforms returns the configured platforms in order, without duplicates.
func (c *Config) Platforms() ([]model.Platform, error) {
	seen := make(map[model.Platform]struct{}, len(c.Publish.Platforms))
	out := make([]model.Platform, 0, len(c.Publish.Platforms))
	for _, raw := range c.Publish.Platforms {
		p, err := model.ParsePlatform(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	platforms, err := c.Platforms()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range platforms {
		switch p {
		case model.PlatformTikTok:
			if c.TikTok.ClientKey == "" {
				errs = append(errs, errors.New("tiktok.clientKey (TIKTOK_CLIENT_KEY) is required"))
			}
			if c.TikTok.LoginURL == "" {
				errs = append(errs, errors.New("tiktok.loginURL (TIKTOK_LOGIN_URL) is required"))
			}
		case model.PlatformYouTube:
			if c.YouTube.ClientSecretFile == "" {
				errs = append(errs, errors.New("youtube.clientSecretFile (YOUTUBE_CLIENT_SECRETS_FILE) is required"))
			} else if _, statErr := os.Stat(c.YouTube.ClientSecretFile); statErr != nil {
				errs = append(errs, fmt.Errorf("youtube client secrets file not found at %s", c.YouTube.ClientSecretFile))
			}
		}
	}
	switch c.Auth.PromptMode {
	case PromptModeConsole:
	case PromptModeWeb:
		if c.App.SecretKey == "" {
			errs = append(errs, errors.New("app.secretKey (SECRET_KEY) is required for the web prompt"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.promptMode must be %q or %q", PromptModeConsole, PromptModeWeb))
	}
	switch c.Database.Vendor {
	case "", "postgres", "mssql":
	default:
		errs = append(errs, fmt.Errorf("database.vendor %q is not supported", c.Database.Vendor))
	}
	return errors.Join(errs...)
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, fallback bool) bool {
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func homePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}
