package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"mindtv/internal/acquisition"
	"mindtv/internal/batch"
	"mindtv/internal/classify"
	"mindtv/internal/config"
	"mindtv/internal/export"
	"mindtv/internal/logger"
	"mindtv/internal/model"
	"mindtv/internal/transport"
)

var errNoModel = errors.New("a model file is required to classify")

type result struct {
	Outcome        acquisition.Outcome
	Path           string           // empty when nothing was written
	Classification *classify.Result // nil without a model or samples
}

// collect runs one acquisition with cfg's device and default duration.
// Samples gathered before a transport failure are still written.
func collect(ctx context.Context, cfg config.Config, content string, opener transport.Opener, out io.Writer, log *logger.Logger) (result, error) {
	layout, err := export.ParseLayout(cfg.Export.Layout)
	if err != nil {
		return result{}, err
	}
	var classifier classify.Classifier
	if cfg.Model.Path != "" {
		forest, err := model.Load(cfg.Model.Path)
		if err != nil {
			return result{}, err
		}
		classifier = forest
	}

	eng := acquisition.NewEngine(opener, &consoleSink{out: out, lastPct: -1}, acquisition.WithLogger(log))
	run, err := eng.Start(ctx, acquisition.Config{
		Port:         cfg.Device.Port,
		BaudRate:     cfg.Device.BaudRate,
		Duration:     cfg.Acquisition.DefaultDuration,
		ReadTimeout:  cfg.Device.ReadTimeout,
		StartCommand: []byte(cfg.Device.StartCommand),
		StopCommand:  []byte(cfg.Device.StopCommand),
	})
	if err != nil {
		return result{}, err
	}
	fmt.Fprintf(out, "collecting from %s for %s\n", cfg.Device.Port, cfg.Acquisition.DefaultDuration)

	res := result{Outcome: run.Wait()}
	b := res.Outcome.Batch
	if b.Len() > 0 && cfg.Export.Dir != "" {
		path, err := export.WriteFile(cfg.Export.Dir, cfg.Export.BaseName, b.Samples(), layout, content)
		if err != nil {
			return res, err
		}
		res.Path = path
		fmt.Fprintf(out, "saved %d samples to %s\n", b.Len(), path)
	}
	if classifier != nil && b.Len() > 0 {
		cr, err := classify.Classify(b, classifier)
		if err != nil {
			return res, err
		}
		res.Classification = &cr
		fmt.Fprintf(out, "predicted content: %s (%d of %d samples)\n", cr.Label, cr.Count, cr.Total)
	}
	if res.Outcome.State == acquisition.StateFailed {
		return res, res.Outcome.Err
	}
	return res, nil
}

// classifyFile classifies the samples of a previously exported CSV file in
// either layout.
func classifyFile(csvPath, modelPath string, out io.Writer) (classify.Result, error) {
	if modelPath == "" {
		return classify.Result{}, errNoModel
	}
	forest, err := model.Load(modelPath)
	if err != nil {
		return classify.Result{}, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return classify.Result{}, err
	}
	defer f.Close()
	samples, content, err := export.ReadCSV(f)
	if err != nil {
		return classify.Result{}, fmt.Errorf("%s: %w", csvPath, err)
	}

	cr, err := classify.Classify(batch.FromSamples(samples), forest)
	if err != nil {
		return classify.Result{}, err
	}
	if content != "" {
		fmt.Fprintf(out, "labelled content: %s\n", content)
	}
	fmt.Fprintf(out, "predicted content: %s (%d of %d samples)\n", cr.Label, cr.Count, cr.Total)
	return cr, nil
}

// consoleSink prints device lines as they arrive and progress in 10% steps.
type consoleSink struct {
	out     io.Writer
	lastPct int
}

func (s *consoleSink) Emit(e acquisition.Event) {
	switch e.Kind {
	case acquisition.EventLogLine:
		fmt.Fprintln(s.out, e.Text)
	case acquisition.EventProgress:
		if step := e.Percent / 10 * 10; step > s.lastPct {
			s.lastPct = step
			fmt.Fprintf(s.out, "-- %d%%\n", step)
		}
	case acquisition.EventCompleted:
		if e.Cancelled {
			fmt.Fprintf(s.out, "cancelled with %d samples\n", e.Samples)
			return
		}
		fmt.Fprintf(s.out, "completed with %d samples\n", e.Samples)
	case acquisition.EventFailed:
		fmt.Fprintf(s.out, "failed (%s): %s\n", e.ErrKind, e.Message)
	}
}
