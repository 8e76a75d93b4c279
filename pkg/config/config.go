package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Port                    string `mapstructure:"PORT"`
	AppEnv                  string `mapstructure:"APP_ENV"`
	MongoURI                string `mapstructure:"MONGO_URI"`
	MongoDatabase           string `mapstructure:"MONGO_DATABASE"`
	MongoCommentsCollection string `mapstructure:"MONGO_COMMENTS_COLLECTION"`
	MongoTimeoutSeconds     int    `mapstructure:"MONGO_TIMEOUT_SECONDS"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	ServiceName             string `mapstructure:"SERVICE_NAME"`
	GRPCPort                string `mapstructure:"GRPC_PORT"`
}

func (c *AppConfig) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutSeconds) * time.Second
}

func (c *AppConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

func Read() *AppConfig {
	appConfig, err := ReadFrom(".env")
	if err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}
	return appConfig
}

// ReadFrom loads the env file at path when it exists, then lets the process
// environment override it.
func ReadFrom(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	bindEnvVariables(v)
	setDefaults(v)

	var appConfig AppConfig
	if err := v.Unmarshal(&appConfig); err != nil {
		return nil, err
	}

	return &appConfig, nil
}

func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("PORT")
	_ = v.BindEnv("APP_ENV")
	_ = v.BindEnv("MONGO_URI")
	_ = v.BindEnv("MONGO_DATABASE")
	_ = v.BindEnv("MONGO_COMMENTS_COLLECTION")
	_ = v.BindEnv("MONGO_TIMEOUT_SECONDS")
	_ = v.BindEnv("RABBITMQ_URL")
	_ = v.BindEnv("SERVICE_NAME")
	_ = v.BindEnv("GRPC_PORT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "comments")
	v.SetDefault("MONGO_COMMENTS_COLLECTION", "comments")
	v.SetDefault("MONGO_TIMEOUT_SECONDS", 10)
	v.SetDefault("SERVICE_NAME", "comments")
	v.SetDefault("GRPC_PORT", "9090")
}
