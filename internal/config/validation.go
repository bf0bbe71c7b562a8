package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if c.Storage.HistoryPath == "" {
		errs = append(errs, ValidationError{Field: "storage.history_path", Message: "must not be empty"})
	}
	if c.Storage.TokenPath == "" {
		errs = append(errs, ValidationError{Field: "storage.token_path", Message: "must not be empty"})
	}
	if c.Storage.HistoryPath != "" && c.Storage.HistoryPath == c.Storage.TokenPath {
		errs = append(errs, ValidationError{
			Field:   "storage.token_path",
			Message: "must differ from history_path",
		})
	}

	if c.Watch.DebounceMs < 0 {
		errs = append(errs, ValidationError{Field: "watch.debounce_ms", Message: "must not be negative"})
	}
	if c.Process.IntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "process.interval_ms", Message: "must not be negative"})
	}
	if c.Browser.IntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "browser.interval_ms", Message: "must not be negative"})
	}
	if c.Clipboard.IntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "clipboard.interval_ms", Message: "must not be negative"})
	}
	if c.Clipboard.MinTextSize < 0 {
		errs = append(errs, ValidationError{Field: "clipboard.min_text_size", Message: "must not be negative"})
	}

	if c.Reporting.URL != "" {
		u, err := url.Parse(c.Reporting.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "reporting.url",
				Message: "must be an http or https URL",
			})
		}
	}
	if c.Reporting.TimeoutMs <= 0 {
		errs = append(errs, ValidationError{Field: "reporting.timeout_ms", Message: "must be positive"})
	}
	if c.Reporting.QueueSize <= 0 {
		errs = append(errs, ValidationError{Field: "reporting.queue_size", Message: "must be positive"})
	}

	if c.Token.TTLMinutes <= 0 {
		errs = append(errs, ValidationError{Field: "token.ttl_minutes", Message: "must be positive"})
	}

	if c.Admin.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Admin.Listen); err != nil {
			errs = append(errs, ValidationError{
				Field:   "admin.listen",
				Message: "must be a host:port address",
			})
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level),
		})
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", c.Logging.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
