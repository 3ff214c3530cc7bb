// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Zero values mean "not set" and
// leave the current value untouched.
type fileConfig struct {
	ServiceID       string   `yaml:"serviceId"`
	StreamURL       string   `yaml:"streamUrl"`
	CensusURL       string   `yaml:"censusUrl"`
	Platforms       []string `yaml:"platforms"`
	Worlds          []string `yaml:"worlds"`
	RegistryPath    string   `yaml:"registryPath"`
	RedisAddr       string   `yaml:"redisAddr"`
	RedisPassword   string   `yaml:"redisPassword"`
	RedisDB         *int     `yaml:"redisDb"`
	CacheTTL        string   `yaml:"cacheTtl"`
	WebhookBase     string   `yaml:"webhookBase"`
	SendRate        *float64 `yaml:"sendRate"`
	SendBurst       *int     `yaml:"sendBurst"`
	BackoffBase     string   `yaml:"backoffBase"`
	BackoffCap      string   `yaml:"backoffCap"`
	StabilityWindow string   `yaml:"stabilityWindow"`
	ListenAddr      string   `yaml:"listenAddr"`
	LogLevel        string   `yaml:"logLevel"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString(&cfg.ServiceID, fc.ServiceID)
	setString(&cfg.StreamURL, fc.StreamURL)
	setString(&cfg.CensusURL, fc.CensusURL)
	if len(fc.Platforms) > 0 {
		cfg.Platforms = fc.Platforms
	}
	if len(fc.Worlds) > 0 {
		cfg.Worlds = fc.Worlds
	}
	setString(&cfg.RegistryPath, fc.RegistryPath)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != nil {
		cfg.RedisDB = *fc.RedisDB
	}
	if err := setDuration(&cfg.CacheTTL, fc.CacheTTL); err != nil {
		return fmt.Errorf("cacheTtl: %w", err)
	}
	setString(&cfg.WebhookBase, fc.WebhookBase)
	if fc.SendRate != nil {
		cfg.SendRate = *fc.SendRate
	}
	if fc.SendBurst != nil {
		cfg.SendBurst = *fc.SendBurst
	}
	if err := setDuration(&cfg.BackoffBase, fc.BackoffBase); err != nil {
		return fmt.Errorf("backoffBase: %w", err)
	}
	if err := setDuration(&cfg.BackoffCap, fc.BackoffCap); err != nil {
		return fmt.Errorf("backoffCap: %w", err)
	}
	if err := setDuration(&cfg.StabilityWindow, fc.StabilityWindow); err != nil {
		return fmt.Errorf("stabilityWindow: %w", err)
	}
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
