// Package config provides configuration management for the Oddsmith application.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Built-in "datetime" covers the backtest date fields.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	switch env {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	startDate, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("invalid backtest start_date format: %w", err)
	}

	endDate, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("invalid backtest end_date format: %w", err)
	}

	if !startDate.Before(endDate) {
		return fmt.Errorf("backtest start_date must be before end_date")
	}

	// The per-bet cap can never exceed the batch budget, otherwise a single
	// bet could blow through the portfolio normalization step.
	if cfg.Staking.MaxStakePct > cfg.Staking.PortfolioBudgetPct {
		return fmt.Errorf("staking max_stake_pct (%.3f) must not exceed portfolio_budget_pct (%.3f)",
			cfg.Staking.MaxStakePct, cfg.Staking.PortfolioBudgetPct)
	}

	// Diagnostics are only meaningful if the streak trigger can actually
	// fire before the risk controller's own streak cooldown.
	if cfg.SafeMode.LossStreakLength <= 0 {
		return fmt.Errorf("safe_mode loss_streak_length must be positive")
	}

	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return fmt.Errorf("config validation failed on field '%s': rule '%s' (and %d more)",
		first.Namespace(), first.Tag(), len(errs)-1)
}
