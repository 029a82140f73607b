package bvh

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/achilleasa/curvebvh/leaf"
	"github.com/olekukonko/tablewriter"
)

// The memory footprint of an arena block.
const nodeBlockBytes = unsafe.Sizeof(nodeBlock{})

// Stats describes a built BVH.
type Stats struct {
	Layout leaf.Layout

	// Primitives in the scene and primitives stored in leaves. Primitives
	// with invalid bounds are not stored.
	ScenePrimitives int
	Primitives      int

	Nodes      int
	Leaves     int
	LeafBlocks int
	MaxDepth   int

	// Build state counters: every record starts out as split needed and is
	// then either split sequentially, split in parallel or turned into a leaf.
	Records          int
	SequentialSplits int
	ParallelSplits   int

	// Splits that fell back to the object median and leaf spaces that fell
	// back to the canonical axis.
	DegenerateSplits int
	DegenerateSpaces int

	ArenaBlocks int
	NodeBytes   int
	LeafBytes   int

	BuildTime time.Duration
}

// Render the stats as a table.
func (s Stats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Section", "Item", "Value"})
	table.Append([]string{"Primitives", "Scene", fmt.Sprint(s.ScenePrimitives)})
	table.Append([]string{"", "Indexed", fmt.Sprint(s.Primitives)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Tree", "Nodes", fmt.Sprint(s.Nodes)})
	table.Append([]string{"", "Leaves", fmt.Sprint(s.Leaves)})
	table.Append([]string{"", "Leaf blocks", fmt.Sprint(s.LeafBlocks)})
	table.Append([]string{"", "Max depth", fmt.Sprint(s.MaxDepth)})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Build", "Records", fmt.Sprint(s.Records)})
	table.Append([]string{"", "Sequential splits", fmt.Sprint(s.SequentialSplits)})
	table.Append([]string{"", "Parallel splits", fmt.Sprint(s.ParallelSplits)})
	table.Append([]string{"", "Median splits", fmt.Sprint(s.DegenerateSplits)})
	table.Append([]string{"", "Canonical axis spaces", fmt.Sprint(s.DegenerateSpaces)})
	table.Append([]string{"", "Time", s.BuildTime.Round(time.Microsecond).String()})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Memory", "Nodes", fmtSize(s.NodeBytes)})
	table.Append([]string{"", "Leaves (" + s.Layout.String() + ")", fmtSize(s.LeafBytes)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(s.NodeBytes+s.LeafBytes), " ")})

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}
