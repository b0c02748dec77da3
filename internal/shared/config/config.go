package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Combat    CombatConfig
	Movement  MovementConfig
	Player    PlayerConfig
	Universe  UniverseConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects the backing store. "memory" keeps all state in process.
type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
	TxMaxRetries    uint
	TxRetryMaxDelay time.Duration
}

type RedisConfig struct {
	Enabled       bool
	URL           string
	Host          string
	Port          string
	Password      string
	DB            int
	ChannelPrefix string
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

type CombatConfig struct {
	// TickInterval is how often the ticker scans for combats to advance.
	TickInterval time.Duration
	// RoundInterval is the minimum spacing between two rounds of one combat.
	RoundInterval time.Duration
	MaxConcurrent int
}

type MovementConfig struct {
	TunnelWarningUses int
}

// PlayerConfig is the starting position and purse of a newly registered player.
type PlayerConfig struct {
	StartSectorID int
	StartTurns    int
	StartCredits  int
}

// UniverseConfig drives the galaxy generator run at startup against an empty store.
type UniverseConfig struct {
	SeedOnStart  bool
	Seed         uint64
	SectorCount  int
	ExtraWarps   int
	TunnelCount  int
	PlanetChance float64
	PortChance   float64
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config := load()
	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() *Config {
	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Environment:     environment,
			ReadTimeout:     getSeconds("SERVER_READ_TIMEOUT_SECONDS", 15),
			WriteTimeout:    getSeconds("SERVER_WRITE_TIMEOUT_SECONDS", 15),
			IdleTimeout:     getSeconds("SERVER_IDLE_TIMEOUT_SECONDS", 60),
			ShutdownTimeout: getSeconds("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "sectorwars"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
			TxMaxRetries:    uint(getInt("DB_TX_MAX_RETRIES", 5)),
			TxRetryMaxDelay: time.Duration(getInt("DB_TX_RETRY_MAX_DELAY_MS", 500)) * time.Millisecond,
		},
		Redis: RedisConfig{
			Enabled:       getBool("REDIS_ENABLED", true),
			URL:           getEnv("REDIS_URL", ""),
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnv("REDIS_PORT", "6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getInt("REDIS_DB", 0),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "sectorwars"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			TokenExpiration: time.Duration(getInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
			CookieSecure:    getBool("COOKIE_SECURE", environment == "production"),
			CookieSameSite:  getEnv("COOKIE_SAMESITE", "lax"),
		},
		Frontend: FrontendConfig{
			URL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
			CORSDebug: getBool("CORS_DEBUG", false),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "debug"),
			JSONFormat: environment == "production",
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
			BurstSize:         getInt("RATE_LIMIT_BURST_SIZE", 20),
			TrustProxy:        getBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		Combat: CombatConfig{
			TickInterval:  time.Duration(getInt("COMBAT_TICK_INTERVAL_MS", 1000)) * time.Millisecond,
			RoundInterval: getSeconds("COMBAT_ROUND_INTERVAL_SECONDS", 5),
			MaxConcurrent: getInt("COMBAT_MAX_CONCURRENT", 8),
		},
		Movement: MovementConfig{
			TunnelWarningUses: getInt("TUNNEL_WARNING_USES", 3),
		},
		Player: PlayerConfig{
			StartSectorID: getInt("PLAYER_START_SECTOR", 1),
			StartTurns:    getInt("PLAYER_START_TURNS", 1000),
			StartCredits:  getInt("PLAYER_START_CREDITS", 10000),
		},
		Universe: UniverseConfig{
			SeedOnStart:  getBool("UNIVERSE_SEED_ON_START", true),
			Seed:         uint64(getInt("UNIVERSE_SEED", 0)),
			SectorCount:  getInt("UNIVERSE_SECTOR_COUNT", 100),
			ExtraWarps:   getInt("UNIVERSE_EXTRA_WARPS", 2),
			TunnelCount:  getInt("UNIVERSE_TUNNEL_COUNT", 10),
			PlanetChance: getFloat("UNIVERSE_PLANET_CHANCE", 0.3),
			PortChance:   getFloat("UNIVERSE_PORT_CHANCE", 0.2),
		},
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.Storage.Driver)
	}

	if c.Combat.RoundInterval <= 0 {
		return fmt.Errorf("COMBAT_ROUND_INTERVAL_SECONDS must be positive")
	}

	if c.Combat.TickInterval <= 0 {
		return fmt.Errorf("COMBAT_TICK_INTERVAL_MS must be positive")
	}

	if c.Combat.MaxConcurrent < 1 {
		return fmt.Errorf("COMBAT_MAX_CONCURRENT must be at least 1")
	}

	if c.Player.StartSectorID < 1 {
		return fmt.Errorf("PLAYER_START_SECTOR must be a positive sector id")
	}

	if c.Player.StartTurns < 0 || c.Player.StartCredits < 0 {
		return fmt.Errorf("PLAYER_START_TURNS and PLAYER_START_CREDITS must not be negative")
	}

	if c.Universe.SeedOnStart {
		if c.Universe.SectorCount < 2 {
			return fmt.Errorf("UNIVERSE_SECTOR_COUNT must be at least 2")
		}
		if c.Player.StartSectorID > c.Universe.SectorCount {
			return fmt.Errorf("PLAYER_START_SECTOR must lie inside the generated galaxy")
		}
		if c.Universe.ExtraWarps < 0 || c.Universe.TunnelCount < 0 {
			return fmt.Errorf("UNIVERSE_EXTRA_WARPS and UNIVERSE_TUNNEL_COUNT must not be negative")
		}
		if !inUnit(c.Universe.PlanetChance) || !inUnit(c.Universe.PortChance) {
			return fmt.Errorf("UNIVERSE_PLANET_CHANCE and UNIVERSE_PORT_CHANCE must be within [0, 1]")
		}
	}

	return nil
}

func inUnit(f float64) bool {
	return f >= 0 && f <= 1
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
