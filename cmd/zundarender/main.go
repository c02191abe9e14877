// Command zundarender composes a mascot image from extracted layers.
//
//	zundarender -layers assets/zundamon_layers -set expression_mouth=あは -out out.png
//	zundarender -layers assets/zundamon_layers -options
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/setanarut/mascotlayer"
	"github.com/setanarut/mascotlayer/internal/logging"
)

// paramFlag collects repeated key=value flags.
type paramFlag mascotlayer.Params

func (p paramFlag) String() string { return fmt.Sprint(map[string]string(p)) }

func (p paramFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	p[k] = v
	return nil
}

func main() {
	params := paramFlag{}
	var (
		layers     = flag.String("layers", "assets/zundamon_layers", "extracted layer directory")
		format     = flag.String("format", "PNG", "output format: PNG or JPEG")
		output     = flag.String("out", "zundamon.png", "output file")
		paramsFile = flag.String("params", "", "JSON file with request parameters")
		profile    = flag.String("profile", "", "JSON deployment profile, default is the built-in Zundamon profile")
		background = flag.String("background", "#ffffff", "JPEG background colour")
		quality    = flag.Int("quality", 0, "JPEG quality (1-100)")
		options    = flag.Bool("options", false, "print accepted parameter values and exit")
		verbose    = flag.Bool("verbose", false, "debug logging")
		logFile    = flag.String("log", "", "log file, empty disables")
	)
	flag.Var(params, "set", "request parameter key=value, repeatable")
	flag.Parse()

	level := slog.LevelWarn
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

	opts := mascotlayer.DefaultOptions()
	opts.Background = *background
	if *quality > 0 {
		opts.JPEGQuality = *quality
	}
	if *profile != "" {
		p, err := mascotlayer.LoadProfile(*profile)
		if err != nil {
			fatal("load profile", err)
		}
		opts.Profile = p
	}

	c := mascotlayer.NewCompositor(*layers, opts)
	if err := c.Ready(); err != nil {
		fatal("compositor", err)
	}

	if *options {
		avail, err := c.AvailableOptions()
		if err != nil {
			fatal("options", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(avail); err != nil {
			fatal("options", err)
		}
		return
	}

	req := mascotlayer.Params{}
	if *paramsFile != "" {
		data, err := os.ReadFile(*paramsFile)
		if err != nil {
			fatal("read params", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			fatal("decode params", err)
		}
	}
	for k, v := range params {
		req[k] = v
	}

	f, err := mascotlayer.ParseFormat(*format)
	if err != nil {
		fatal("format", err)
	}
	r, err := c.Compose(req, f)
	if err != nil {
		fatal("compose", err)
	}
	if err := os.WriteFile(*output, r.Data, 0o644); err != nil {
		fatal("write output", err)
	}
	fmt.Printf("%s: %d bytes, %s, layers: %s\n", *output, len(r.Data), r.MIMEType, strings.Join(r.Layers, ", "))
}

func fatal(what string, err error) {
	slog.Error(what, "error", err)
	os.Exit(1)
}
