package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/applytrack/applytrack/pkg/config"
	"github.com/applytrack/applytrack/pkg/crypto"
	"github.com/applytrack/applytrack/pkg/database"
	"github.com/applytrack/applytrack/pkg/llm"
	"github.com/applytrack/applytrack/pkg/metrics"
	"github.com/applytrack/applytrack/pkg/models"
	"github.com/applytrack/applytrack/pkg/render"
	"github.com/applytrack/applytrack/pkg/repositories"
	"github.com/applytrack/applytrack/pkg/services"
)

var errUsage = errors.New("usage")

// cli wires the store, repositories and services for one command run.
type cli struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	stdout  io.Writer
	stderr  io.Writer

	// factory overrides the AI client factory (tests).
	factory llm.ClientFactory
}

// deps holds everything built over an open store.
type deps struct {
	db           *database.DB
	profiles     repositories.ProfileRepository
	applications repositories.ApplicationRepository
	templates    repositories.TemplateRepository
	aiConfig     services.AIConfigService
}

func (c *cli) open(ctx context.Context) (*deps, error) {
	db, err := database.Open(ctx, &database.Config{
		Path:        c.cfg.Store.Path,
		BusyTimeout: c.cfg.Store.BusyTimeout(),
		Metrics:     c.metrics,
	}, c.logger)
	if err != nil {
		return nil, err
	}

	var encryptor *crypto.SecretEncryptor
	if c.cfg.CredentialsKey != "" {
		encryptor, err = crypto.NewSecretEncryptor(c.cfg.CredentialsKey)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create credentials encryptor: %w", err)
		}
	}

	factory := c.factory
	if factory == nil {
		factory = llm.NewFactory(llm.FactoryConfig{
			RequestTimeout: c.cfg.AI.RequestTimeout(),
			GeminiBaseURL:  c.cfg.AI.GeminiBaseURL,
			Metrics:        c.metrics,
		}, c.logger)
	}

	return &deps{
		db:           db,
		profiles:     repositories.NewProfileRepository(db),
		applications: repositories.NewApplicationRepository(db),
		templates:    repositories.NewTemplateRepository(db),
		aiConfig:     services.NewAIConfigService(repositories.NewAIConfigRepository(db, encryptor), factory, c.logger),
	}, nil
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	type handler func(ctx context.Context, d *deps, args []string) error
	handlers := map[string]handler{
		"migrate":      c.migrate,
		"version":      c.version,
		"applications": c.listApplications,
		"status":       c.changeStatus,
		"render":       c.render,
		"letter":       c.letter,
		"design":       c.design,
		"models":       c.listModels,
		"settings":     c.settings,
		"generate":     c.generate,
	}

	h, ok := handlers[command]
	if !ok {
		fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", command, usage)
		return errUsage
	}

	d, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer d.db.Close()

	return h(ctx, d, args)
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func (c *cli) migrate(ctx context.Context, d *deps, args []string) error {
	v, err := d.db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s is at schema version %d\n", d.db.Path, v)
	return nil
}

func (c *cli) version(ctx context.Context, d *deps, args []string) error {
	v, err := d.db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "applytrack %s (schema %d of %d)\n", c.cfg.Version, v, len(database.Migrations()))
	return nil
}

func (c *cli) listApplications(ctx context.Context, d *deps, args []string) error {
	apps, err := d.applications.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tJOB TITLE\tCOMPANY")
	for _, a := range apps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.CreatedAt.Local().Format(time.DateTime), a.Status, a.JobTitle, a.Company)
	}
	return w.Flush()
}

func (c *cli) changeStatus(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("status")
	id := fs.Int64("application", 0, "application id")
	status := fs.String("status", "", "Draft, Sent, Rejected or Accepted")
	if err := parse(fs, args); err != nil {
		return err
	}

	app, err := services.NewApplicationService(d.applications, c.logger).
		ChangeStatus(ctx, *id, models.ApplicationStatus(*status))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "application %d is now %s\n", app.ID, app.Status)
	return nil
}

func (c *cli) render(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("render")
	templateID := fs.Int64("template", 0, "template id")
	appID := fs.Int64("application", 0, "application id")
	out := fs.String("out", "", "write the HTML page to this file instead of stdout")
	apply := fs.Bool("apply", false, "store the rendered documents on the application")
	if err := parse(fs, args); err != nil {
		return err
	}

	renderer := render.Renderer{DateLayout: c.cfg.Render.DateLayout}
	docService := services.NewDocumentService(d.templates, d.profiles, d.applications, renderer, c.metrics, c.logger)

	var (
		docs *services.RenderedDocuments
		err  error
	)
	if *apply {
		docs, err = docService.ApplyTemplate(ctx, *templateID, *appID)
	} else {
		docs, err = docService.RenderApplication(ctx, *templateID, *appID)
	}
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = io.WriteString(c.stdout, docs.HTML())
		return err
	}
	if err := os.WriteFile(*out, []byte(docs.HTML()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", *out)
	return nil
}

func (c *cli) letter(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("letter")
	appID := fs.Int64("application", 0, "application id")
	stream := fs.Bool("stream", false, "print the draft while it is generated")
	if err := parse(fs, args); err != nil {
		return err
	}

	var onChunk func(string)
	if *stream {
		onChunk = func(chunk string) { io.WriteString(c.stdout, chunk) } //nolint:errcheck // terminal output
	}

	letter, err := services.NewLetterService(d.aiConfig, d.profiles, d.applications, c.logger).
		GenerateLetter(ctx, *appID, onChunk)
	if err != nil {
		return err
	}
	if *stream {
		fmt.Fprintln(c.stdout)
		return nil
	}
	fmt.Fprintln(c.stdout, letter)
	return nil
}

func (c *cli) design(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("design")
	imagePath := fs.String("image", "", "screenshot of the document design")
	hint := fs.String("hint", "", "extra guidance for the design")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *imagePath == "" {
		fmt.Fprintln(c.stderr, "design: -image is required")
		return errUsage
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	tmpl, err := services.NewTemplateDesignService(d.aiConfig, d.templates, c.logger).
		DesignFromImage(ctx, image, *hint)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "created template %d %q\n", tmpl.ID, tmpl.Name)
	return nil
}

func (c *cli) listModels(ctx context.Context, d *deps, args []string) error {
	names, err := d.aiConfig.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.stdout, name)
	}
	return nil
}

// settings shows the AI settings, updating the fields whose flags are given.
func (c *cli) settings(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("settings")
	provider := fs.String("provider", "", "Ollama or Gemini")
	ollamaURL := fs.String("ollama-url", "", "Ollama base URL")
	model := fs.String("model", "", "default Ollama model")
	geminiKey := fs.String("gemini-key", "", "Gemini API key")
	geminiModel := fs.String("gemini-model", "", "Gemini model")
	temperature := fs.Float64("temperature", 0, "sampling temperature (0 to 2)")
	if err := parse(fs, args); err != nil {
		return err
	}

	cfg, err := d.aiConfig.Get(ctx)
	if err != nil {
		return err
	}

	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "provider":
			cfg.SelectedProvider = models.AIProvider(*provider)
		case "ollama-url":
			cfg.OllamaURL = *ollamaURL
		case "model":
			cfg.DefaultOllamaModel = *model
		case "gemini-key":
			cfg.GeminiAPIKey = *geminiKey
		case "gemini-model":
			cfg.GeminiModel = *geminiModel
		case "temperature":
			cfg.Temperature = *temperature
		}
	})
	if changed {
		if err := d.aiConfig.Save(ctx, cfg); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "provider\t%s\n", cfg.SelectedProvider)
	fmt.Fprintf(w, "ollama url\t%s\n", cfg.OllamaURL)
	fmt.Fprintf(w, "ollama model\t%s\n", cfg.DefaultOllamaModel)
	fmt.Fprintf(w, "gemini key\t%s\n", models.MaskedAPIKey(cfg.GeminiAPIKey))
	fmt.Fprintf(w, "gemini model\t%s\n", cfg.GeminiModel)
	fmt.Fprintf(w, "temperature\t%g\n", cfg.Temperature)
	return w.Flush()
}

func (c *cli) generate(ctx context.Context, d *deps, args []string) error {
	fs := c.flags("generate")
	prompt := fs.String("prompt", "", "prompt text")
	stream := fs.Bool("stream", false, "print the answer while it is generated")
	imagePath := fs.String("image", "", "optional image to send with the prompt")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *prompt == "" {
		fmt.Fprintln(c.stderr, "generate: -prompt is required")
		return errUsage
	}

	req := &llm.Request{Prompt: *prompt}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		mimeType := http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return fmt.Errorf("unsupported image type %q", mimeType)
		}
		req.Image = &llm.InlineImage{Data: data, MIMEType: mimeType}
	}
	if *stream {
		req.OnChunk = func(chunk string) { io.WriteString(c.stdout, chunk) } //nolint:errcheck // terminal output
	}

	client, err := d.aiConfig.Client(ctx)
	if err != nil {
		return err
	}
	text, err := client.Generate(ctx, req)
	if err != nil {
		return err
	}
	if *stream {
		fmt.Fprintln(c.stdout)
		return nil
	}
	fmt.Fprintln(c.stdout, text)
	return nil
}
