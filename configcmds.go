package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/ethfleet/nodesplit/internal/lib/split"
)

func GetConfigCmdOpts() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the plan configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Interactively build a plan configuration file - replaces any existing one",
				Action: InitPlanConfig,
			},
			{
				Name:   "show",
				Usage:  "Display the effective plan configuration (file plus overrides)",
				Action: ShowPlanConfig,
			},
			{
				Name:   "check",
				Usage:  "Validate the plan configuration without computing anything",
				Action: CheckPlanConfig,
			},
		},
	}
}

func InitPlanConfig(ctx context.Context, cmd *cli.Command) error {
	_, path, err := LoadPlanConfig(cmd.String("config"))
	if err == nil {
		result, _ := yesNo("A plan configuration already exists, do you REALLY want to replace it")
		if result != "y" {
			return nil
		}
		return DefinePlanConfig(path)
	}
	if errors.Is(err, os.ErrNotExist) {
		result, _ := yesNo("No plan configuration found.  Create a new one")
		if result != "y" {
			return nil
		}
		return DefinePlanConfig(path)
	}
	// file exists but can't be parsed - offer to replace it
	result, _ := yesNo(fmt.Sprintf("Existing plan configuration is unreadable (%v), replace it", err))
	if result != "y" {
		return cli.Exit(err, 1)
	}
	return DefinePlanConfig(path)
}

// DefinePlanConfig walks through the tunable knobs of the calculator.  The
// client weight tables start from the built-in defaults; edit the saved yaml
// to change those.
func DefinePlanConfig(path string) error {
	cfg := split.DefaultConfig()
	var err error

	cfg.TotalValidators, err = getInt("Enter the total validator count", cfg.TotalValidators, 1, 100_000_000)
	if err != nil {
		return err
	}

	strategyIdx, _, err := (&promptui.Select{
		Label: "How are tier machine targets set",
		Items: []string{"fixed machine counts per tier", "share of a machine total derived from validator count"},
	}).Run()
	if err != nil {
		return err
	}

	if strategyIdx == 0 {
		cfg.Strategy = split.StrategyFixedCount
		for i := range cfg.Tiers {
			cfg.Tiers[i].MachineCount, err = getInt(
				fmt.Sprintf("Enter the machine count for the '%s' tier", cfg.Tiers[i].Name),
				cfg.Tiers[i].MachineCount, 0, 100_000)
			if err != nil {
				return err
			}
		}
	} else {
		cfg.Strategy = split.StrategyShareOfTotal
		cfg.ValidatorsPerMachine, err = getInt("Enter the reference validators per machine", cfg.ValidatorsPerMachine, 1, 100_000)
		if err != nil {
			return err
		}
		for i := range cfg.Tiers {
			cfg.Tiers[i].MachineShare, err = getFloat(
				fmt.Sprintf("Enter the machine share for the '%s' tier (0-1)", cfg.Tiers[i].Name),
				cfg.Tiers[i].MachineShare, 0, 1)
			if err != nil {
				return err
			}
		}
	}

	policyIdx, _, err := (&promptui.Select{
		Label: "Rounding policy",
		Items: []string{"largest remainder (reproducible, preferred)", "threshold based"},
	}).Run()
	if err != nil {
		return err
	}
	if policyIdx == 0 {
		cfg.Policy = split.PolicyLargestRemainder
	} else {
		cfg.Policy = split.PolicyThreshold
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return SavePlanConfig(path, &cfg)
}

func ShowPlanConfig(ctx context.Context, cmd *cli.Command) error {
	cfg := App.planConfig

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "total validators\t%d\n", cfg.TotalValidators)
	fmt.Fprintf(tw, "validators per machine\t%d\n", cfg.ValidatorsPerMachine)
	fmt.Fprintf(tw, "strategy\t%s\n", cfg.Strategy)
	fmt.Fprintf(tw, "policy\t%s\n", cfg.Policy)
	for _, tier := range cfg.Tiers {
		fmt.Fprintf(tw, "tier %s\tvalidators %.0f%%, machines %.0f%% / %d fixed\n",
			tier.Name, tier.ValidatorShare*100, tier.MachineShare*100, tier.MachineCount)
	}
	fmt.Fprintf(tw, "cl clients\t%s\n", weightTable(cfg.CLClients))
	fmt.Fprintf(tw, "el clients\t%s\n", weightTable(cfg.ELClients))
	if App.configPath != "" {
		fmt.Fprintf(tw, "config file\t%s\n", App.configPath)
	} else {
		fmt.Fprintf(tw, "config file\t(built-in defaults)\n")
	}
	return tw.Flush()
}

func CheckPlanConfig(ctx context.Context, cmd *cli.Command) error {
	if err := App.planConfig.Validate(); err != nil {
		return cli.Exit(err, 1)
	}
	cells := len(App.planConfig.CLClients) * len(App.planConfig.ELClients) * len(App.planConfig.Tiers)
	slog.Info("plan configuration valid", "cells", cells)
	return nil
}

func weightTable(weights map[string]float64) string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, weights[name]))
	}
	return strings.Join(parts, ", ")
}

func getInt(prompt string, defVal int, minVal int, maxVal int) (int, error) {
	validate := func(input string) error {
		value, err := strconv.Atoi(input)
		if err != nil {
			return err
		}
		if value < minVal || value > maxVal {
			return fmt.Errorf("value must be between %d and %d", minVal, maxVal)
		}
		return nil
	}
	result, err := (&promptui.Prompt{
		Label:    prompt,
		Default:  strconv.Itoa(defVal),
		Validate: validate,
	}).Run()
	if err != nil {
		return 0, err
	}
	value, _ := strconv.Atoi(result)
	return value, nil
}

func getFloat(prompt string, defVal float64, minVal float64, maxVal float64) (float64, error) {
	validate := func(input string) error {
		value, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return err
		}
		if value < minVal || value > maxVal {
			return fmt.Errorf("value must be between %.2f and %.2f", minVal, maxVal)
		}
		return nil
	}
	result, err := (&promptui.Prompt{
		Label:    prompt,
		Default:  strconv.FormatFloat(defVal, 'f', -1, 64),
		Validate: validate,
	}).Run()
	if err != nil {
		return 0, err
	}
	value, _ := strconv.ParseFloat(result, 64)
	return value, nil
}

func yesNo(prompt string) (string, error) {
	return (&promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}).Run()
}
