package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateProvider(cfg, ve)
	validateRetry(cfg, ve)
	validateQuota(cfg, ve)
	validatePlans(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Server.Addr == "" {
		ve.Add("server.addr must not be empty")
	}
	if cfg.Server.RequestsPerMin <= 0 {
		ve.Add("server.requests_per_min must be > 0")
	}
	if cfg.Server.BurstSize <= 0 {
		ve.Add("server.burst_size must be > 0")
	}
}

func validateProvider(cfg *Config, ve *ValidationError) {
	if cfg.Provider.Model == "" {
		ve.Add("provider.model must not be empty")
	}
	if cfg.Provider.ConnTimeout < 0 {
		ve.Add("provider.conn_timeout must not be negative")
	}
	if cfg.Provider.RespTimeout < 0 {
		ve.Add("provider.resp_timeout must not be negative")
	}
	// A missing api_key is allowed at startup; each request fails with a
	// configuration error until the key is provided.
}

func validateRetry(cfg *Config, ve *ValidationError) {
	if cfg.Retry.MaxAttempts < 1 {
		ve.Add("retry.max_attempts must be >= 1")
	}
	if cfg.Retry.MaxAttempts > 10 {
		ve.Add("retry.max_attempts must be <= 10")
	}
}

var validQuotaStores = map[string]bool{
	"memory": true,
	"sqlite": true,
}

func validateQuota(cfg *Config, ve *ValidationError) {
	if cfg.Quota.DailyLimit <= 0 {
		ve.Add("quota.daily_limit must be > 0")
	}
	if !validQuotaStores[cfg.Quota.Store] {
		ve.Add("quota.store must be one of: memory, sqlite (got %q)", cfg.Quota.Store)
	}
	if cfg.Quota.Store == "sqlite" && cfg.Quota.Path == "" {
		ve.Add("quota.path must be set when quota.store is sqlite")
	}
}

var validPlanResolvers = map[string]bool{
	"trusted": true,
	"token":   true,
}

var validPlanNames = map[string]bool{
	"free":   true,
	"pro":    true,
	"studio": true,
}

func validatePlans(cfg *Config, ve *ValidationError) {
	if !validPlanResolvers[cfg.Plans.Resolver] {
		ve.Add("plans.resolver must be one of: trusted, token (got %q)", cfg.Plans.Resolver)
	}
	if cfg.Plans.Resolver == "token" && len(cfg.Plans.Tokens) == 0 {
		ve.Add("plans.tokens must not be empty when plans.resolver is token")
	}
	for i, tok := range cfg.Plans.Tokens {
		if tok.Token == "" {
			ve.Add("plans.tokens[%d].token must not be empty", i)
		}
		if !validPlanNames[tok.Plan] {
			ve.Add("plans.tokens[%d].plan must be one of: free, pro, studio (got %q)", i, tok.Plan)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level must be one of: debug, info, warn, error (got %q)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format must be one of: text, json (got %q)", cfg.Logger.Format)
	}
}

var validExporters = map[string]bool{
	"stdout": true, "noop": true, "": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter must be one of: stdout, noop (got %q)", cfg.Tracer.Exporter)
	}
}
