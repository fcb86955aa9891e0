package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/vesting"
)

var scheduleCommand = cli.Command{
	Name:  "schedule",
	Usage: "Print the release table of a grant under a vesting schedule",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "vesting", Usage: "Vesting schedule ID (required)"},
		cli.StringFlag{Name: "amount", Value: "1000", Usage: "Grant size in whole tokens"},
		cli.StringFlag{Name: "start", Usage: "Grant start as RFC 3339 (default: now)"},
	},
	Action: runSchedule,
}

func runSchedule(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}

	id := c.String("vesting")
	if id == "" {
		return fmt.Errorf("--vesting is required")
	}
	def, ok := env.VestingByID(id)
	if !ok {
		return fmt.Errorf("environment %s has no vesting %q", env.Name, id)
	}

	total, err := fixedpoint.ParseUnits(c.String("amount"), fixedpoint.Decimals)
	if err != nil {
		return err
	}

	start := time.Now().UTC().Truncate(time.Second)
	if s := c.String("start"); s != "" {
		start, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	sched, err := def.Schedule()
	if err != nil {
		return err
	}
	validated, err := vesting.NewSchedule(sched)
	if err != nil {
		return err
	}
	table, err := validated.ReleaseTable(total, start)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRANCHE\tRELEASED AT\tCUMULATIVE\n")
	for _, tr := range table {
		fmt.Fprintf(w, "%d\t%s\t%s\n", tr.Index, tr.At.UTC().Format(time.RFC3339), fixedpoint.FormatUnits(tr.Cumulative, fixedpoint.Decimals))
	}
	return w.Flush()
}
