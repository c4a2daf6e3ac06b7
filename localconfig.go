package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ethfleet/nodesplit/internal/lib/split"
)

// ConfigFilename returns the default plan config location under the user
// config dir, creating the directory if needed.
func ConfigFilename() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	cfgPath := filepath.Join(cfgDir, "nodesplit", "nodesplit.yaml")
	err = os.MkdirAll(filepath.Dir(cfgPath), 0775) // user+group RWX, others RX
	if err != nil {
		return "", fmt.Errorf("error making directory:%s, error:%w", cfgDir, err)
	}
	return cfgPath, nil
}

// LoadPlanConfig reads a plan configuration from path, falling back to the
// default location when path is empty.  The resolved path is returned so
// callers can report or re-save it.
func LoadPlanConfig(path string) (*split.Config, string, error) {
	var err error
	if path == "" {
		path, err = ConfigFilename()
		if err != nil {
			return nil, "", err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	var cfg split.Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, path, fmt.Errorf("error parsing %s: %w", path, err)
	}
	// the threshold policy has meaningful all-zero settings, so "unset" has to
	// come from key presence, not the zero value
	var keys map[string]yaml.Node
	_ = yaml.Unmarshal(data, &keys)
	_, hasThreshold := keys["threshold"]
	applyConfigDefaults(&cfg, hasThreshold)
	return &cfg, path, nil
}

// applyConfigDefaults fills every section the file left unset, so a sparse
// file (say, just totals) still carries full tier and weight tables.  A
// section that IS present replaces the default wholesale - otherwise removing
// a client from a table would have no effect.
func applyConfigDefaults(cfg *split.Config, hasThreshold bool) {
	def := split.DefaultConfig()
	if cfg.TotalValidators == 0 {
		cfg.TotalValidators = def.TotalValidators
	}
	if cfg.ValidatorsPerMachine == 0 {
		cfg.ValidatorsPerMachine = def.ValidatorsPerMachine
	}
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.Policy == "" {
		cfg.Policy = def.Policy
	}
	if !hasThreshold {
		cfg.Threshold = def.Threshold
	}
	if cfg.Tiers == nil {
		cfg.Tiers = def.Tiers
	}
	if cfg.CLClients == nil {
		cfg.CLClients = def.CLClients
	}
	if cfg.ELClients == nil {
		cfg.ELClients = def.ELClients
	}
}

// SavePlanConfig writes the plan configuration by first saving into a temp
// file and then replacing the target only if successfully written.
func SavePlanConfig(path string, cfg *split.Config) error {
	var err error
	if path == "" {
		path, err = ConfigFilename()
		if err != nil {
			return err
		}
	}
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(temp)
	err = encoder.Encode(cfg)
	if err == nil {
		err = encoder.Close()
	}
	if err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return fmt.Errorf("error saving configuration: %w", err)
	}

	err = temp.Close()
	if err != nil {
		return err
	}

	err = os.Rename(temp.Name(), path)
	if err != nil {
		return err
	}
	slog.Info("plan config saved", "file", path)
	return nil
}
