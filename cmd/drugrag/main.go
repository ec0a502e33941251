// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/alan-mat/drugrag/internal/config"
	"github.com/alan-mat/drugrag/internal/trace"
)

const (
	ProgramName   = "drugrag"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/drugrag"
)

type ingestCmd struct {
	CSV   string `arg:"--csv" help:"CSV file with a text column to index"`
	Index string `arg:"--index" help:"name of the index to write to"`
}

type evaluateCmd struct {
	Fixture string `arg:"--fixture" help:"yaml file with questions and reference answers"`
	Index   string `arg:"--index" help:"name of the index to query"`
}

type args struct {
	Ingest   *ingestCmd   `arg:"subcommand:ingest" help:"chunk, embed and index a CSV file"`
	Evaluate *evaluateCmd `arg:"subcommand:evaluate" help:"score retrieval against the reference answers"`

	Config  string `arg:"--config,-c" default:"config.yaml" help:"path to the config file"`
	EnvFile string `arg:"--env-file" default:".env" help:"file with API keys, ignored if missing"`
	Verbose bool   `arg:"--verbose,-v" help:"enable debug logging"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: ProgramName}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	if p.Subcommand() == nil {
		p.WriteUsage(os.Stdout)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(args.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", args.EnvFile, "err", err)
	}

	conf, err := config.ReadConfig(args.Config)
	if err != nil {
		slog.Error("failed to read config", "path", args.Config, "err", err)
		os.Exit(1)
	}
	conf.Keys = config.KeysFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		name string
		cmd  func(context.Context, *config.Config, *trace.Trace) error
	)

	switch c := p.Subcommand().(type) {
	case *ingestCmd:
		name = "ingest"
		cmd = func(ctx context.Context, conf *config.Config, tr *trace.Trace) error {
			return runIngest(ctx, c, conf, tr)
		}
	case *evaluateCmd:
		name = "evaluate"
		cmd = func(ctx context.Context, conf *config.Config, tr *trace.Trace) error {
			return runEvaluate(ctx, c, conf, tr)
		}
	default:
		p.FailSubcommand("unrecognized command", p.SubcommandNames()...)
	}

	if err := execute(ctx, conf, name, cmd); err != nil {
		stop()
		os.Exit(1)
	}
}

// execute runs cmd under a trace and saves the trace when it is done.
func execute(ctx context.Context, conf *config.Config, name string, cmd func(context.Context, *config.Config, *trace.Trace) error) error {
	store := trace.NewStore(conf.Trace)
	defer store.Close()

	tr := trace.New(name)
	slog.Debug("starting run", "pipeline", name, "trace", tr.ID)

	err := cmd(ctx, conf, tr)
	if err != nil {
		slog.Error("run failed", "pipeline", name, "err", err)
		tr.Fail(err)
	} else {
		tr.Complete()
	}

	// the run context may already be cancelled
	if serr := store.Save(context.WithoutCancel(ctx), tr); serr != nil {
		slog.Warn("failed to save trace", "trace", tr.ID, "err", serr)
	}
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func storeLabel(conf *config.Config) string {
	return strings.ToLower(conf.VectorStore.Type) + "_vectorstore"
}
