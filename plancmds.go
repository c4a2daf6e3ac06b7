package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ethfleet/nodesplit/internal/lib/misc"
	"github.com/ethfleet/nodesplit/internal/lib/split"
)

func GetPlanCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "plan",
		Aliases: []string{"p"},
		Usage:   "Compute the split and emit the summary plus terraform variable blocks",
		Before:  checkPlanConfig,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Usage:   "Write output to a file instead of stdout",
				Aliases: []string{"o"},
			},
		},
		Action: RunPlan,
	}
}

func RunPlan(ctx context.Context, cmd *cli.Command) error {
	cfg := *App.planConfig

	plan, err := split.BuildPlan(cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}
	res := split.Apportion(plan, cfg)
	for _, warning := range res.Warnings {
		misc.Warnf(App.logger, "%s", warning)
	}

	blocks := split.Render(res)
	output := split.Summary(cfg, plan, res) + "\n" + blocks

	if outFile := cmd.String("out"); outFile != "" {
		if err := os.WriteFile(outFile, []byte(output), 0644); err != nil {
			return fmt.Errorf("error writing %s: %w", outFile, err)
		}
		misc.Infof(App.logger, "wrote %d allocations to %s", len(res.Allocations), outFile)
		return nil
	}
	fmt.Print(output)
	return nil
}
