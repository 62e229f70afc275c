package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"exoplanet-backend/cmd"
	"exoplanet-backend/internal/config"
	"exoplanet-backend/internal/core"
	"exoplanet-backend/internal/core/utils"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type batchOptions struct {
	envPath     string
	modelPath   string
	modelType   string
	onnxRuntime string
	outDir      string
	concurrency int
}

func newRootCmd() *cobra.Command {
	var opts batchOptions

	command := &cobra.Command{
		Use:   "batch FILE.csv...",
		Short: "Annotate CSV files with model predictions offline",
		Example: `
  # Annotate two files into ./out
  batch --model RNN_15-4.onnx --out-dir out data/a.csv data/b.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			return run(command, opts, args)
		},
	}

	command.Flags().StringVar(&opts.envPath, "env", "", "path to load env from")
	command.Flags().StringVar(&opts.modelPath, "model", "", "path to the model artifact (defaults to MODEL_PATH)")
	command.Flags().StringVar(&opts.modelType, "model-type", "", "model type (defaults to MODEL_TYPE)")
	command.Flags().StringVar(&opts.onnxRuntime, "onnx-runtime", "", "path to the onnxruntime shared library (defaults to ONNX_RUNTIME_DYLIB)")
	command.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory to write the annotated workbooks to")
	command.Flags().IntVar(&opts.concurrency, "concurrency", 4, "number of files to annotate in parallel")

	return command
}

func run(command *cobra.Command, opts batchOptions, files []string) error {
	cmd.LoadEnvFrom(opts.envPath)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.modelPath != "" {
		cfg.Model.Path = opts.modelPath
	}
	if opts.modelType != "" {
		cfg.Model.Type = opts.modelType
	}
	if opts.onnxRuntime != "" {
		cfg.Model.OnnxRuntimeDylib = opts.onnxRuntime
	}

	logs := cmd.InitLogging(cfg.Log)
	defer logs.Close()

	predictor := cmd.InitializePredictor(context.Background(), cfg)
	defer func() {
		predictor.Release()
		if err := core.DestroyOnnxRuntime(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}()

	if !predictor.Ready() {
		return fmt.Errorf("model could not be loaded from %s", cfg.Model.Path)
	}

	results, err := annotateFiles(predictor, files, opts.outDir, opts.concurrency, command.ErrOrStderr())
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(command.ErrOrStderr(), "❌ %s: %v\n", res.Input, res.Error)
		} else {
			fmt.Fprintf(command.OutOrStdout(), "✅ %s: %d rows, %d positive\n", res.Result.Output, res.Result.Summary.Rows, res.Result.Summary.Positives)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

type annotatedFile struct {
	Output  string
	Summary core.Summary
}

func outputPath(outDir, input string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outDir, name+"_predictions.xlsx")
}

func annotateFiles(predictor *core.Predictor, files []string, outDir string, concurrency int, progress io.Writer) ([]utils.CompletedTask[string, annotatedFile], error) {
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	worker := func(input string) (annotatedFile, error) {
		file, err := os.Open(input)
		if err != nil {
			return annotatedFile{}, err
		}
		defer file.Close()

		var buf bytes.Buffer
		summary, err := predictor.Annotate(file, &buf)
		if err != nil {
			slog.Error("error annotating file", "file", input, "error", fmt.Sprintf("%+v", err))
			return annotatedFile{}, err
		}

		output := outputPath(outDir, input)
		if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
			return annotatedFile{}, fmt.Errorf("error writing workbook: %w", err)
		}

		return annotatedFile{Output: output, Summary: summary}, nil
	}

	queue := make(chan string, len(files))
	for _, file := range files {
		queue <- file
	}
	close(queue)

	completed := make(chan utils.CompletedTask[string, annotatedFile], len(files))
	utils.RunInPool(worker, queue, completed, concurrency)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("⏳ annotating"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]utils.CompletedTask[string, annotatedFile], 0, len(files))
	for res := range completed {
		results = append(results, res)
		_ = bar.Add(1)
	}

	return results, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
