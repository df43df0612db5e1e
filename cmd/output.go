package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jopdorp/timberframe/internal/app"
	"github.com/jopdorp/timberframe/pkg/analysis"
	"github.com/jopdorp/timberframe/pkg/fem/calculix"
	"github.com/jopdorp/timberframe/pkg/frame"
	"github.com/jopdorp/timberframe/pkg/kernel"
)

const rule = "═══════════════════════════════════════════════════════════════"

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "     %s\n", title)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// printParts lists the parts with their sizes and, when meshes is set,
// triangle counts.
func printParts(w io.Writer, parts []frame.Part, meshes []*kernel.Mesh) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if meshes != nil {
		fmt.Fprintln(tw, "  PART\tKIND\tLENGTH\tSECTION\tTRIANGLES")
	} else {
		fmt.Fprintln(tw, "  PART\tKIND\tLENGTH\tSECTION")
	}
	for i, p := range parts {
		t := p.Timber
		fmt.Fprintf(tw, "  %s\t%s\t%.0f\t%.0f x %.0f", p.Name, t.Category, t.Length, t.Width, t.Height)
		if meshes != nil && i < len(meshes) {
			fmt.Fprintf(tw, "\t%d", meshes[i].TriangleCount())
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printMessages(w io.Writer, label string, msgs []app.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "  %s: %s\n", label, m)
	}
}

func printResult(w io.Writer, res app.Result) {
	for _, f := range res.Frames {
		printHeader(w, fmt.Sprintf("%s %s", f.Kind, f.Name))
		fmt.Fprint(w, f.Summary)
		fmt.Fprintln(w)
		printParts(w, f.Parts, f.Meshes)
	}
	if len(res.Warnings) > 0 || len(res.Errors) > 0 {
		fmt.Fprintln(w)
	}
	printMessages(w, "warning", res.Warnings)
	printMessages(w, "error", res.Errors)
}

func printReport(w io.Writer, rep *analysis.Report, mat string) {
	printHeader(w, "FRAME ANALYSIS - "+rep.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Run\t%s\n", rep.ID)
	fmt.Fprintf(tw, "  Directory\t%s\n", rep.Dir)
	fmt.Fprintf(tw, "  Parts\t%d\n", rep.Parts)
	fmt.Fprintf(tw, "  Nodes / elements\t%d / %d\n", rep.Nodes, rep.Elements)
	fmt.Fprintf(tw, "  Contact pairs\t%d\n", len(rep.Pairs))
	fmt.Fprintf(tw, "  Fixed nodes\t%d\n", rep.FixedNodes)
	if rep.LoadedBeam != "" {
		fmt.Fprintf(tw, "  Loaded beam\t%s (%d nodes)\n", rep.LoadedBeam, rep.LoadNodes)
	}
	fmt.Fprintf(tw, "  Refined parts\t%d\n", len(rep.Refined))
	fmt.Fprintf(tw, "  Solver\t%s (%s)\n", rep.Message, rep.Solver.Duration.Round(time.Millisecond))
	tw.Flush()

	for _, p := range rep.Pairs {
		fmt.Fprintf(w, "    %s\n", p)
	}
	for _, f := range rep.Failures {
		if f.Coarse {
			continue
		}
		fmt.Fprintf(w, "  warning: refined mesh of %s failed, coarse mesh used: %s\n", f.Part, f.Error)
	}

	if !rep.Success || rep.Results == nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  ✗ Analysis failed: %s\n", rep.Message)
		return
	}
	r := rep.Results
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  Max displacement\t%.3f mm\n", r.MaxDisplacement)
	fmt.Fprintf(tw, "  Max vertical displacement\t%.3f mm\n", r.MaxUz)
	if len(r.Stresses) > 0 {
		fmt.Fprintf(tw, "  Max von Mises stress\t%.2f MPa\n", r.MaxVonMises)
		fmt.Fprintf(tw, "  Max normal stress\t%.2f MPa\n", r.MaxStress)
		if m, err := calculix.MaterialByName(mat); err == nil {
			fmt.Fprintf(tw, "  Utilization (%s)\t%.0f%%\n", m.Name, 100*r.Utilization(m))
		}
	}
	tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ✓ Completed in %s\n", rep.Duration.Round(time.Millisecond))
}
