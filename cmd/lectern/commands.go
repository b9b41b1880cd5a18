package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lectern"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/quiz"
	"github.com/poiesic/lectern/rag"
)

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if kind := c.String("index"); kind != "" {
		cfg.VectorIndex.Kind = kind
	}
	return cfg, cfg.Validate()
}

func openEngine(c *cli.Context) (*lectern.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	engine, err := lectern.NewEngine(lectern.WithConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one file is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := c.Context
	projectID := c.String("project")
	ids := make(map[string]bool, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		doc, err := engine.Upload(ctx, projectID, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}
		ids[doc.ID] = true
		fmt.Fprintf(os.Stderr, "Queued %s as %s\n", path, doc.ID)
	}

	tracker := ingestion.NewProgressTracker(os.Stderr, len(ids))
	tracker.Start()
	ticker := time.NewTicker(c.Duration("poll"))
	defer ticker.Stop()

	var docs []*core.Document
	for {
		docs, err = uploaded(ctx, engine, projectID, ids)
		if err != nil {
			return err
		}
		if tracker.Observe(docs) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	tracker.Finish()

	// Topic extraction runs after completion.
	engine.Wait()
	return printDocuments(os.Stdout, docs)
}

func uploaded(ctx context.Context, engine *lectern.Engine, projectID string, ids map[string]bool) ([]*core.Document, error) {
	all, err := engine.Documents(ctx, projectID)
	if err != nil {
		return nil, err
	}
	docs := make([]*core.Document, 0, len(ids))
	for _, d := range all {
		if ids[d.ID] {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func printDocuments(w io.Writer, docs []*core.Document) error {
	for _, d := range docs {
		line := fmt.Sprintf("%s\t%-10s\t%s", d.ID, d.Status, d.Filename)
		if d.Message != "" {
			line += "\t" + d.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func documentsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := engine.Documents(c.Context, c.String("project"))
	if err != nil {
		return err
	}
	return printDocuments(os.Stdout, docs)
}

func deleteCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	return engine.DeleteDocument(c.Context, c.String("project"), c.String("id"))
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	q := rag.Question{
		ProjectID:   c.String("project"),
		Text:        question,
		DocumentIDs: c.StringSlice("doc"),
	}

	if !c.Bool("stream") {
		answer, err := engine.Ask(c.Context, q)
		if err != nil {
			return err
		}
		fmt.Println(answer.Text)
		printSources(os.Stdout, answer.Sources)
		return nil
	}

	printer := newStreamPrinter(os.Stdout)
	if err := engine.AskStream(c.Context, printer, q); err != nil {
		return err
	}
	_, sources, err := rag.ParseStream(printer.String())
	if err != nil {
		return err
	}
	fmt.Println()
	printSources(os.Stdout, sources)
	return nil
}

// streamPrinter echoes answer deltas as they arrive and keeps the whole
// stream for decoding. The sources payload arrives as a single write.
type streamPrinter struct {
	out io.Writer
	buf bytes.Buffer
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

func (p *streamPrinter) Write(b []byte) (int, error) {
	p.buf.Write(b)
	if bytes.HasPrefix(b, []byte(rag.SourcesMarker)) {
		return len(b), nil
	}
	return p.out.Write(b)
}

func (p *streamPrinter) String() string {
	return p.buf.String()
}

func printSources(w io.Writer, sources []core.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for _, s := range sources {
		fmt.Fprintf(w, "  - %s (%s): %s\n", s.DocName, s.DocID, s.ChunkText)
	}
}

func historyCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	messages, err := engine.History(c.Context, c.String("project"), c.Int("limit"))
	if err != nil {
		return err
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.DateTime), m.Role, m.Content)
	}
	return nil
}

func summaryCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, err := engine.Summary(c.Context, c.String("project"), c.StringSlice("doc"))
	if err != nil {
		return err
	}
	fmt.Println(summary.Text)
	printSources(os.Stdout, summary.Sources)
	return nil
}

func topicsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	topics, err := engine.Topics(c.Context, c.String("project"))
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, topics)
}

func quizGenerateCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	q, err := engine.GenerateQuiz(c.Context, quiz.Request{
		ProjectID:   c.String("project"),
		Topic:       c.String("topic"),
		Count:       c.Int("count"),
		DocumentIDs: c.StringSlice("doc"),
	})
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, q)
}

func quizSubmitCommand(c *cli.Context) error {
	answers, err := parseAnswers(c.Args().Slice())
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.SubmitQuiz(c.Context, c.String("id"), answers)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, result)
}

// parseAnswers turns "2=B" arguments, numbered from 1, into zero-based answers.
func parseAnswers(args []string) (map[int]string, error) {
	answers := make(map[int]string, len(args))
	for _, arg := range args {
		num, letter, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid answer %q: want NUMBER=LETTER", arg)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid question number in %q", arg)
		}
		answers[n-1] = strings.TrimSpace(letter)
	}
	return answers, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
