package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 保存先の種類
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret       string        // JWT署名シークレット
	AccessTokenTTL  time.Duration // アクセストークン
	RefreshTokenTTL time.Duration // リフレッシュトークン

	StorageDriver string // カート・セッションの保存先（file/sqlite/redis）
	StorageDir    string // fileのときの保存ディレクトリ
	SQLitePath    string // sqliteのときのファイル
	RedisURL      string // redisのときの接続先
}

// Loadは.envと環境変数から設定を読む（.envが無くてもよい）
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "app")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("STORAGE_DRIVER", StorageFile)
	v.SetDefault("STORAGE_DIR", ".storefront")
	v.SetDefault("SQLITE_PATH", ".storefront/storage.db")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	pgPort, err := atoi(v, "POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}
	accessTTL, err := duration(v, "ACCESS_TOKEN_TTL")
	if err != nil {
		return Config{}, err
	}
	refreshTTL, err := duration(v, "REFRESH_TOKEN_TTL")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     v.GetString("PORT"),
		GoEnv:    v.GetString("GO_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseURL:      v.GetString("DATABASE_URL"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,

		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		StorageDir:    v.GetString("STORAGE_DIR"),
		SQLitePath:    v.GetString("SQLITE_PATH"),
		RedisURL:      v.GetString("REDIS_URL"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	switch cfg.StorageDriver {
	case StorageFile, StorageSQLite, StorageRedis:
	default:
		return Config{}, fmt.Errorf("STORAGE_DRIVER must be one of file, sqlite, redis: %q", cfg.StorageDriver)
	}

	return cfg, nil
}

// DSNはgorm(postgres)用の接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Addrはlisten用のアドレス（":8080"）
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func atoi(v *viper.Viper, key string) (int, error) {
	s := v.GetString(key)
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

// 本番ならcookieをSecureにする
func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}
