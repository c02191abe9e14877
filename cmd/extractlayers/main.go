// Command extractlayers splits a layered PSD or OpenRaster document into the
// PNG fragments and layer metadata used by the mascot compositor.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/setanarut/mascotlayer"
	"github.com/setanarut/mascotlayer/extract"
	"github.com/setanarut/mascotlayer/internal/logging"
	"github.com/setanarut/mascotlayer/utils"
)

func main() {
	var (
		source       = flag.String("source", "../assets/zunda.3.2.psd", "layered source document (.psd or .ora)")
		output       = flag.String("output", "../assets/zundamon_layers", "output directory")
		dryRun       = flag.Bool("dry-run", false, "analyse only, write nothing")
		force        = flag.Bool("force", false, "extract without asking for confirmation")
		verbose      = flag.Bool("verbose", false, "debug logging on the console")
		choiceGroups = flag.String("choice-groups", "", "comma separated groups whose layers are all choices")
		swatches     = flag.Int("swatches", 0, "colours per layer swatch, 0 disables")
		palette      = flag.String("palette", "kmeans", "swatch palette method: kmeans or dominantcolor")
		logFile      = flag.String("log", "debug/extractlayers.log", "log file, empty disables")
		analyzeOut   = flag.String("analyze", "", "write the layer structure report to this file and exit")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger, cleanup, err := logging.Init(logging.Config{File: *logFile, Console: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialise logging:", err)
		os.Exit(1)
	}
	defer cleanup()
	mascotlayer.SetLogger(logger)

	if *analyzeOut != "" {
		if err := analyze(*source, *analyzeOut); err != nil {
			slog.Error("analysis failed", "error", err)
			cleanup()
			os.Exit(1)
		}
		return
	}
	if err := run(*source, *output, *dryRun, *force, *choiceGroups, *swatches, *palette); err != nil {
		slog.Error("extraction failed", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(source, output string, dryRun, force bool, choiceGroups string, swatches int, palette string) error {
	method, err := utils.ParsePaletteMethod(palette)
	if err != nil {
		return err
	}
	opts := extract.DefaultOptions()
	opts.Swatches = swatches
	opts.PaletteMethod = method
	if choiceGroups != "" {
		opts.ChoiceGroups = strings.Split(choiceGroups, ",")
	}

	ex := extract.New(source, output, opts)
	info, err := ex.DryRun()
	if err != nil {
		return err
	}
	fmt.Printf("Source:          %s\n", source)
	fmt.Printf("Total layers:    %d\n", info.Layers)
	fmt.Printf("Groups:          %d\n", info.Groups)
	fmt.Printf("Radio groups:    %d\n", info.RadioGroups)
	fmt.Printf("Estimated size:  %.2f MB\n", info.EstimatedMB())
	fmt.Printf("Output:          %s\n", info.OutputDir)
	for _, id := range info.Conflicts {
		fmt.Printf("Conflict:        %s is both required and a choice\n", id)
	}
	if dryRun {
		fmt.Println("Dry run complete. Use -force to extract without confirmation.")
		return nil
	}

	if !force && !confirm(fmt.Sprintf("Extract %d layer images?", info.Layers)) {
		fmt.Println("Extraction cancelled.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	report, err := ex.Extract(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted:       %d\n", report.Extracted)
	if report.Failed > 0 {
		fmt.Printf("Failed:          %d\n", report.Failed)
		for _, f := range report.Failures {
			fmt.Printf("  %s: %v\n", f.Layer, f.Err)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(report.Strategies)) {
		fmt.Printf("Strategy %-8s %d\n", name+":", report.Strategies[name])
	}
	fmt.Printf("Success rate:    %.1f%%\n", report.SuccessRate()*100)
	fmt.Printf("Duration:        %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Metadata:        %s\n", report.MetadataPath)
	return nil
}

func analyze(source, out string) error {
	doc, err := extract.Open(source)
	if err != nil {
		return err
	}
	a := extract.Describe(doc)
	if err := extract.WriteAnalysis(out, a); err != nil {
		return err
	}
	fmt.Printf("Source:          %s\n", source)
	fmt.Printf("Canvas:          %dx%d %s\n", a.Structure.Width, a.Structure.Height, a.Structure.ColorMode)
	for _, group := range slices.Sorted(maps.Keys(a.RadioGroups)) {
		fmt.Printf("Radio group %s: %s\n", group, strings.Join(a.RadioGroups[group], ", "))
	}
	for _, param := range slices.Sorted(maps.Keys(a.APIParameters)) {
		fmt.Printf("Parameter %s: %s\n", param, strings.Join(a.APIParameters[param], ", "))
	}
	fmt.Printf("Structure:       %s\n", out)
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
