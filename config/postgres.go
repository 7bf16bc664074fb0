package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the connection to the watchlist database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// ParameterPrefix is the SSM path holding host, user and password in prod.
	ParameterPrefix string `mapstructure:"parameter_prefix"`
}

// DSN builds a libpq connection string. In "prod" the credentials are read from
// AWS SSM Parameter Store instead of the config file.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password

	// Production credentials live in Parameter Store
	if env == "prod" {
		host = getParameterStoreValue(cfg.ParameterPrefix+"/host", true)
		user = getParameterStoreValue(cfg.ParameterPrefix+"/user", true)
		password = getParameterStoreValue(cfg.ParameterPrefix+"/password", true)
	}
	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN points at the default "postgres" database, used to create DBName.
func (cfg *PostgresConfig) AdminDSN() string {
	return cfg.dsn(cfg.Host, cfg.User, cfg.Password, "postgres")
}

func (cfg *PostgresConfig) dsn(host, user, password, dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbname, cfg.SSLMode,
	)
	// Optional session time zone
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

// getParameterStoreValue returns "" when the parameter cannot be read.
func getParameterStoreValue(parameterName string, decrypt bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Default credential chain: env, shared config, instance role
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return ""
	}

	// Fetch the (optionally decrypted) parameter
	client := ssm.NewFromConfig(cfg)
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil || result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
