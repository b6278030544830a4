package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"degree_planner/internal/logging"
	"degree_planner/internal/risk"
	"degree_planner/internal/rules"
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig        `mapstructure:"server"`
	DB         DBConfig            `mapstructure:"db"`
	Log        logging.Options     `mapstructure:"log"`
	Risk       RiskConfig          `mapstructure:"risk"`
	Solver     SolverConfig        `mapstructure:"solver"`
	Planner    PlannerConfig       `mapstructure:"planner"`
	Evaluation EvaluationConfig    `mapstructure:"evaluation"`
	Rules      rules.AcademicRules `mapstructure:"rules"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Token        string        `mapstructure:"token"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// RiskConfig points at the remote risk model. An empty URL scores every
// course with the built-in heuristic.
type RiskConfig struct {
	URL     string           `mapstructure:"url"`
	Token   string           `mapstructure:"token"`
	Timeout time.Duration    `mapstructure:"timeout"`
	Retry   risk.RetryPolicy `mapstructure:"retry"`
}

type SolverConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PlannerConfig struct {
	Horizon int `mapstructure:"horizon"`
}

type EvaluationConfig struct {
	Workers int   `mapstructure:"workers"`
	Seed    int64 `mapstructure:"seed"`
}

const envPrefix = "ADVISOR"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.token", "")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("db.path", "advisor.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("risk.url", "")
	v.SetDefault("risk.token", "")
	v.SetDefault("risk.timeout", 10*time.Second)
	v.SetDefault("risk.retry.max_retries", 3)
	v.SetDefault("risk.retry.base_delay", 200*time.Millisecond)
	v.SetDefault("risk.retry.max_delay", 5*time.Second)
	v.SetDefault("risk.retry.jitter", true)

	v.SetDefault("solver.timeout", 5*time.Second)
	v.SetDefault("planner.horizon", 4)
	v.SetDefault("evaluation.workers", 4)
	v.SetDefault("evaluation.seed", 42)

	r := rules.Defaults()
	v.SetDefault("rules.max_normal_credits", r.MaxNormalCredits)
	v.SetDefault("rules.max_overload_credits", r.MaxOverloadCredits)
	v.SetDefault("rules.min_cgpa_for_overload", r.MinCGPAForOverload)
	v.SetDefault("rules.max_backlogs_per_semester", r.MaxBacklogsPerSemester)
	v.SetDefault("rules.total_degree_credits", r.TotalDegreeCredits)
	v.SetDefault("rules.max_semesters", r.MaxSemesters)
	v.SetDefault("rules.avg_credit_load.high", r.AvgCreditLoad.High)
	v.SetDefault("rules.avg_credit_load.mid", r.AvgCreditLoad.Mid)
	v.SetDefault("rules.avg_credit_load.low", r.AvgCreditLoad.Low)
	v.SetDefault("rules.avg_credit_load.probation", r.AvgCreditLoad.Probation)
	for name, rng := range map[string]rules.CreditRange{
		"probation": r.Envelopes.Probation,
		"low":       r.Envelopes.Low,
		"normal":    r.Envelopes.Normal,
		"overload":  r.Envelopes.Overload,
	} {
		v.SetDefault("rules.envelopes."+name+".min", rng.Min)
		v.SetDefault("rules.envelopes."+name+".max", rng.Max)
	}
}

// LoadConfig reads configuration from path, or from advisor.yaml in the
// working directory when path is empty, with ADVISOR_* environment
// variables taking precedence (ADVISOR_SERVER_PORT, ADVISOR_DB_PATH, ...).
// A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("advisor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
