package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rewardzone/rewardzone/internal/rewardzone/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Rules carries the externally supplied business constants.
type Rules struct {
	MinWithdrawal             decimal.Decimal
	SpinCooldownHours         int
	PackPrice                 decimal.Decimal
	OwnerCommission           decimal.Decimal
	ActiveInviterCommission   decimal.Decimal
	InactiveInviterCommission decimal.Decimal
	OwnerUserID               int64
	DepositExpiry             time.Duration
}

// Config contains application configuration
type Config struct {
	RunAddress     string
	DatabaseURI    string
	JWTSecret      string
	MissionCatalog string
	Rules          Rules
}

// NewConfig creates a new configuration from an optional .env file,
// environment variables and flags. Flags are overridden by env vars.
func NewConfig() *Config {
	// Missing .env is fine; env vars may be set directly.
	godotenv.Load()

	var cfg Config

	flag.StringVar(&cfg.RunAddress, "a", "", "Server run address")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "Database URI")
	flag.StringVar(&cfg.MissionCatalog, "m", "", "Mission catalog file")
	flag.Parse()

	if envAddr := os.Getenv("RUN_ADDRESS"); envAddr != "" {
		cfg.RunAddress = envAddr
	}
	if envDBURI := os.Getenv("DATABASE_URI"); envDBURI != "" {
		cfg.DatabaseURI = envDBURI
	}
	if envCatalog := os.Getenv("MISSION_CATALOG"); envCatalog != "" {
		cfg.MissionCatalog = envCatalog
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	if cfg.RunAddress == "" {
		cfg.RunAddress = ":8080"
	}

	cfg.Rules = Rules{
		MinWithdrawal:             envDecimal("MIN_WITHDRAWAL", "670"),
		SpinCooldownHours:         envInt("SPIN_COOLDOWN_HOURS", 24),
		PackPrice:                 envDecimal("PACK_PRICE", "350"),
		OwnerCommission:           envDecimal("OWNER_COMMISSION", "200"),
		ActiveInviterCommission:   envDecimal("ACTIVE_INVITER_COMMISSION", "150"),
		InactiveInviterCommission: envDecimal("INACTIVE_INVITER_COMMISSION", "30"),
		OwnerUserID:               envInt64("OWNER_USER_ID", 0),
		DepositExpiry:             envDuration("DEPOSIT_EXPIRY", time.Hour),
	}

	return &cfg
}

func envDecimal(name, fallback string) decimal.Decimal {
	if v := os.Getenv(name); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(fallback)
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(name string, fallback int64) int64 {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// catalogEntry is one mission in the YAML catalog file.
type catalogEntry struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Reward      string `yaml:"reward"`
	XP          int64  `yaml:"xp"`
	MissionType string `yaml:"mission_type"`
	UserType    string `yaml:"user_type"`
	ActionType  string `yaml:"action_type"`
}

type catalogFile struct {
	Missions []catalogEntry `yaml:"missions"`
}

// LoadMissionCatalog reads the YAML mission catalog used to seed the
// missions table at startup.
func LoadMissionCatalog(path string) ([]models.Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	missions := make([]models.Mission, 0, len(file.Missions))
	for _, entry := range file.Missions {
		reward, err := decimal.NewFromString(entry.Reward)
		if err != nil {
			return nil, err
		}

		userType := entry.UserType
		if userType == "" {
			userType = models.AudienceAll
		}

		missions = append(missions, models.Mission{
			Title:       entry.Title,
			Description: entry.Description,
			Reward:      reward,
			XP:          entry.XP,
			MissionType: entry.MissionType,
			UserType:    userType,
			ActionType:  entry.ActionType,
			IsActive:    true,
		})
	}
	return missions, nil
}
