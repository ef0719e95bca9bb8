package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int64{
		"fetch.max_bytes":            c.Fetch.MaxBytes,
		"fetch.max_duration_seconds": int64(c.Fetch.MaxDurationSeconds),
		"fetch.timeout":              int64(c.Fetch.Timeout),
		"fetch.sample_rate":          int64(c.Fetch.SampleRate),
	}); err != nil {
		return err
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must be >= 0")
	}
	if c.Fetch.RetryBackoffMillis <= 0 {
		return errors.New("fetch.retry_backoff_millis must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	return ensurePositiveMap(map[string]int64{
		"store.capacity_bytes": c.Store.CapacityBytes,
		"store.max_items":      int64(c.Store.MaxItems),
	})
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int64{
		"scheduler.workers":                   int64(c.Scheduler.Workers),
		"scheduler.max_inflight_global":       int64(c.Scheduler.MaxInflightGlobal),
		"scheduler.max_inflight_per_owner":    int64(c.Scheduler.MaxInflightPerOwner),
		"scheduler.max_queue_depth_per_owner": int64(c.Scheduler.MaxQueueDepthPerOwner),
	}); err != nil {
		return err
	}
	if c.Scheduler.MaxInflightPerOwner > c.Scheduler.MaxInflightGlobal {
		return errors.New("scheduler.max_inflight_per_owner must not exceed scheduler.max_inflight_global")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.MinConfidence < 0 || c.Recognition.MinConfidence > 1 {
		return errors.New("recognition.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int64{
		"workflow.retention_hours":      int64(c.Workflow.RetentionHours),
		"workflow.error_retry_interval": int64(c.Workflow.ErrorRetryInterval),
	})
}

func ensurePositiveMap(values map[string]int64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
