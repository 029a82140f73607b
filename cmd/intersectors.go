package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/curvebvh/accel"
	"github.com/achilleasa/curvebvh/parallel"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the dispatch table generated for the configured layout and widths.
func ListIntersectors(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	tree, err := buildTree(ctx, cfg, parallel.NewPool(cfg.Builder.Workers))
	if err != nil {
		return err
	}

	set, err := accel.NewBVHAccelSet(0, tree, cfg.Query)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Width", "Intersector", "Convention"})
	for _, d := range set.Intersectors().Describe() {
		name, convention := d.Name, d.Convention
		if !d.Defined {
			name, convention = "-", "-"
		}
		table.Append([]string{d.Width, name, convention})
	}
	table.SetFooter([]string{"", "Mode", fmt.Sprint(cfg.Query.Mode)})

	table.Render()
	logger.Noticef("dispatch table:\n%s", buf.String())
	return nil
}
