package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"60"` // 遗传算法可能运行较久
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN"` // 为空时不使用数据库保存路网
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Redis struct {
		Enabled              bool   `env:"ENABLED" envDefault:"false"`
		Host                 string `env:"HOST" envDefault:"localhost"`
		Port                 int    `env:"PORT" envDefault:"6379"`
		Password             string `env:"PASSWORD"`
		ConnectTimeout       int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		RouteCacheExpiration int    `env:"ROUTE_CACHE_EXPIRATION" envDefault:"600"` // 10 分钟
	} `envPrefix:"REDIS_"`
	Network struct {
		PlanCacheSize    int  `env:"PLAN_CACHE_SIZE" envDefault:"1024"`
		LoadFromDatabase bool `env:"LOAD_FROM_DATABASE" envDefault:"true"`
	} `envPrefix:"NETWORK_"`
	Scheduler struct {
		Workers            int    `env:"WORKERS" envDefault:"0"` // 0 表示使用 GOMAXPROCS
		Seed               int64  `env:"SEED" envDefault:"0"`    // 0 表示使用当前时间
		PriorityConvention string `env:"PRIORITY_CONVENTION" envDefault:"higher_first"`
		Resolver           struct {
			PopulationSize int     `env:"POPULATION_SIZE" envDefault:"30"`
			MaxGenerations int     `env:"MAX_GENERATIONS" envDefault:"100"`
			MutationRate   float64 `env:"MUTATION_RATE" envDefault:"0.4"`
			EliteRatio     float64 `env:"ELITE_RATIO" envDefault:"0.2"`
			HorizonMinutes float64 `env:"HORIZON_MINUTES" envDefault:"120"`
			StepMinutes    float64 `env:"STEP_MINUTES" envDefault:"1"`
			TimeBudget     int     `env:"TIME_BUDGET" envDefault:"10"` // 秒
		} `envPrefix:"RESOLVER_"`
		Optimizer struct {
			PopulationSize int     `env:"POPULATION_SIZE" envDefault:"50"`
			MaxGenerations int     `env:"MAX_GENERATIONS" envDefault:"1000"`
			MutationRate   float64 `env:"MUTATION_RATE" envDefault:"0.1"`
			EliteRatio     float64 `env:"ELITE_RATIO" envDefault:"0.1"`
			Patience       int     `env:"PATIENCE" envDefault:"50"`
			StepMinutes    float64 `env:"STEP_MINUTES" envDefault:"5"`
			TimeBudget     int     `env:"TIME_BUDGET" envDefault:"30"` // 秒
		} `envPrefix:"OPTIMIZER_"`
	} `envPrefix:"SCHEDULER_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
