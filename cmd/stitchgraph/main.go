package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	eventbus "github.com/hanpama/stitchgraph/internal/eventbus"
	language "github.com/hanpama/stitchgraph/internal/language"
	manifest "github.com/hanpama/stitchgraph/internal/manifest"
	"github.com/hanpama/stitchgraph/internal/otel"
	plan "github.com/hanpama/stitchgraph/internal/plan"
	server "github.com/hanpama/stitchgraph/internal/server"
	split "github.com/hanpama/stitchgraph/internal/split"
)

const rootUsage = `stitchgraph — schema federation & query-splitting compiler

USAGE:
  stitchgraph <command> [flags]

COMMANDS:
  merge            Merge source schemas from a stitch manifest into one SDL
  plan             Compile a query against a stitched schema into a query plan
  serve            Run the HTTP compile service
  help             Show help for any command
`

const mergeUsage = `merge FLAGS:
  -manifest <file>  Stitch manifest (default: stitch.yaml)
  -out <file>       Write merged SDL to file (default: stdout)
`

const planUsage = `plan FLAGS:
  -manifest <file>  Stitch manifest (default: stitch.yaml)
  -query <file>     Query file to compile (required)
  -out <file>       Write plan JSON to file (default: stdout)
`

const serveUsage = `serve FLAGS:
  -manifest <file>          Stitch manifest (default: stitch.yaml)
  -server.addr <addr>       HTTP listen address (default: :8080)
  -server.pretty            Pretty-print JSON responses
  -server.timeout <duration> Per-request timeout, e.g. 10s (default: 10s)
  -otel.endpoint <addr>     OTLP collector endpoint
  -otel.service <name>      OpenTelemetry service name (default: stitchgraph)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("stitchgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "merge":
		return cmdMerge(cmdArgs)
	case "plan":
		return cmdPlan(cmdArgs)
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "merge":
		fmt.Print(mergeUsage)
	case "plan":
		fmt.Print(planUsage)
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdMerge(args []string) error {
	manifestPath := "stitch.yaml"
	outFile := ""
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&manifestPath, "manifest", manifestPath, "Stitch manifest")
	fs.StringVar(&outFile, "out", outFile, "Write merged SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, mergeUsage)
		return err
	}

	compiled, err := buildManifest(manifestPath)
	if err != nil {
		return err
	}
	sdl := language.PrintSchema(compiled.Merged.Document)
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdPlan(args []string) error {
	manifestPath := "stitch.yaml"
	queryFile := ""
	outFile := ""
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&manifestPath, "manifest", manifestPath, "Stitch manifest")
	fs.StringVar(&queryFile, "query", queryFile, "Query file to compile")
	fs.StringVar(&outFile, "out", outFile, "Write plan JSON to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, planUsage)
		return err
	}
	if queryFile == "" {
		fmt.Fprint(os.Stderr, planUsage)
		return fmt.Errorf("-query is required")
	}

	compiled, err := buildManifest(manifestPath)
	if err != nil {
		return err
	}
	queryText, err := os.ReadFile(queryFile)
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	doc, err := language.ParseQuery(string(queryText))
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}
	result, err := split.Query(doc, compiled.Merged)
	if err != nil {
		return fmt.Errorf("split query: %w", err)
	}
	qp, err := plan.Build(result)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	raw, err := json.MarshalIndent(qp.Describe(), "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if outFile == "" {
		fmt.Print(string(raw))
		return nil
	}
	return os.WriteFile(outFile, raw, 0644)
}

func cmdServe(args []string) error {
	manifestPath := "stitch.yaml"
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	otelEndpoint := ""
	otelService := "stitchgraph"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&manifestPath, "manifest", manifestPath, "Stitch manifest")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	compiled, err := buildManifest(manifestPath)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var sopts []server.Option
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	h := server.New(compiled.Merged, sopts...)

	log.Printf("stitchgraph compile service listening on %s", addr)
	return http.ListenAndServe(addr, h)
}

func buildManifest(path string) (*manifest.Compiled, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	compiled, err := m.Build()
	if err != nil {
		return nil, fmt.Errorf("build stitched schema: %w", err)
	}
	return compiled, nil
}
