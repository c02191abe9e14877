package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/mascotlayer"
	"github.com/setanarut/mascotlayer/utils"
)

type Options struct {
	// Enclosing groups whose layers are all mutually exclusive choices, in
	// addition to layers marked with "*".
	ChoiceGroups []string
	// Extraction methods, tried in order for every layer.
	Strategies []Strategy
	// Expected PNG bytes per canvas pixel, used by dry runs.
	BytesPerPixel float64
	// Colours per layer swatch. Zero disables swatch output.
	Swatches int
	// Palette extraction method for swatches.
	PaletteMethod utils.PaletteMethod
}

func DefaultOptions() Options {
	return Options{
		Strategies:    DefaultStrategies,
		BytesPerPixel: 1.0,
		PaletteMethod: utils.PaletteMethodKMeans,
	}
}

// Failure records a layer that could not be extracted.
type Failure struct {
	Layer string
	Err   error
}

// Report summarises an extraction or dry run.
type Report struct {
	DryRun         bool
	Layers         int
	RadioGroups    int
	Groups         int
	EstimatedBytes int64
	OutputDir      string

	Extracted    int
	Failed       int
	Failures     []Failure
	Conflicts    []string
	Strategies   map[string]int
	MetadataPath string
}

// EstimatedMB is EstimatedBytes in megabytes.
func (r *Report) EstimatedMB() float64 {
	return float64(r.EstimatedBytes) / (1024 * 1024)
}

// SuccessRate is the share of attempted layers that were extracted.
func (r *Report) SuccessRate() float64 {
	total := r.Extracted + r.Failed
	if total == 0 {
		return 0
	}
	return float64(r.Extracted) / float64(total)
}

// Extractor converts one source document into a layer directory.
// Re-running it overwrites previous output.
type Extractor struct {
	source    string
	outputDir string
	opts      Options
}

func New(source, outputDir string, opts Options) *Extractor {
	if len(opts.Strategies) == 0 {
		opts.Strategies = DefaultStrategies
	}
	if opts.BytesPerPixel <= 0 {
		opts.BytesPerPixel = 1.0
	}
	return &Extractor{source: source, outputDir: outputDir, opts: opts}
}

func (e *Extractor) analyze() (*Document, *Plan, *Report, error) {
	doc, err := Open(e.source)
	if err != nil {
		return nil, nil, nil, err
	}
	mascotlayer.Logger().Info("source document loaded",
		"path", e.source, "size", fmt.Sprintf("%dx%d", doc.Size.X, doc.Size.Y), "color_mode", doc.ColorMode)
	plan := Analyze(doc, e.opts)
	report := &Report{
		Layers:         len(plan.Entries),
		RadioGroups:    len(plan.Store.RadioGroups),
		Groups:         plan.Groups,
		EstimatedBytes: plan.EstimatedBytes(e.opts.BytesPerPixel),
		OutputDir:      e.outputDir,
		Conflicts:      plan.Conflicts,
		Strategies:     make(map[string]int),
	}
	return doc, plan, report, nil
}

// DryRun analyses the document and reports what an extraction would produce.
// Nothing is written.
func (e *Extractor) DryRun() (*Report, error) {
	_, _, report, err := e.analyze()
	if err != nil {
		return nil, err
	}
	report.DryRun = true
	mascotlayer.Logger().Info("dry run",
		"layers", report.Layers,
		"radio_groups", report.RadioGroups,
		"estimated_mb", fmt.Sprintf("%.2f", report.EstimatedMB()),
		"output", report.OutputDir)
	return report, nil
}

// Extract writes every layer as a PNG fragment followed by the metadata
// document. A layer that cannot be extracted is logged, counted and left out
// of the metadata; only failing to open the source, to create the output
// directory or to write the metadata aborts the run. Cancellation is
// checked between layers.
func (e *Extractor) Extract(ctx context.Context) (*Report, error) {
	doc, plan, report, err := e.analyze()
	if err != nil {
		return nil, err
	}
	log := mascotlayer.Logger()
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	log.Info("starting extraction", "layers", report.Layers, "output", e.outputDir)

	swatches := make(map[string][]colorful.Color)
	for _, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		meta := plan.Store.Layers[entry.ID]
		img, strategy, err := Run(e.opts.Strategies, doc, Target{Node: entry.Node, Ancestors: entry.Ancestors})
		if err == nil {
			err = utils.SaveImage(img, filepath.Join(e.outputDir, filepath.FromSlash(meta.File)))
		}
		if err != nil {
			log.Warn("layer extraction failed", "layer", entry.ID, "name", entry.Node.Name, "error", err)
			report.Failed++
			report.Failures = append(report.Failures, Failure{Layer: entry.ID, Err: err})
			plan.drop(entry.ID)
			continue
		}
		report.Extracted++
		report.Strategies[strategy]++
		log.Debug("extracted layer", "layer", entry.ID, "file", meta.File, "strategy", strategy)

		if e.opts.Swatches > 0 {
			palette := utils.ExtractPalette(img, e.opts.Swatches, e.opts.PaletteMethod)
			utils.SortPaletteByBrightness(palette)
			swatches[entry.ID] = palette
		}
	}

	report.MetadataPath = filepath.Join(e.outputDir, mascotlayer.MetadataFile)
	if err := mascotlayer.SaveStore(report.MetadataPath, plan.Store); err != nil {
		return report, fmt.Errorf("write layer metadata: %w", err)
	}
	if len(swatches) > 0 {
		if err := writeSwatches(e.outputDir, swatches); err != nil {
			log.Warn("failed to write swatches", "error", err)
		}
	}
	log.Info("extraction completed",
		"extracted", report.Extracted,
		"failed", report.Failed,
		"metadata", report.MetadataPath)
	return report, nil
}
