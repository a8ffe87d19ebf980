package main

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/vinsol/interviewsim/internal/config"
	"github.com/vinsol/interviewsim/internal/handler"
	appI18n "github.com/vinsol/interviewsim/internal/i18n"
	"github.com/vinsol/interviewsim/internal/model"
	"github.com/vinsol/interviewsim/internal/scoring"
	"github.com/vinsol/interviewsim/internal/semantic"
	"github.com/vinsol/interviewsim/internal/speech"
	"github.com/vinsol/interviewsim/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewsim",
		Short: "Mock interview practice server with adaptive scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `interviewsim --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interview HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "interviewsim.db", "SQLite database path")
	f.StringSliceP("questions", "q", []string{"questions/software_engineer_en.json", "questions/data_scientist_en.json"}, "Paths to question bank JSON files (repeatable)")
	f.String("ai-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("ai-key", "ollama", "API key for the AI endpoint")
	f.String("embed-model", "nomic-embed-text", "Embedding model for semantic similarity")
	f.String("whisper-model", "whisper-1", "Speech-to-text model")
	f.String("tts-model", "tts-1", "Text-to-speech model")
	f.String("tts-voice", "alloy", "Text-to-speech voice")
	f.Bool("no-semantic", false, "Disable semantic scoring (lexical fallback only)")
	f.Bool("no-speech", false, "Disable transcription and spoken questions")
	f.StringP("lang", "l", "en", "Recommendation language (en, ru)")
	f.String("admin-password", "", "Initial admin password (or set INTERVIEWSIM_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session results",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "interviewsim.db", "SQLite database path")
	f.StringP("format", "f", "json", "Output format (json, csv)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewsim")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewsim")
	v.AddConfigPath("/etc/interviewsim")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load scoring config: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	aiURL := v.GetString("ai-url")
	aiKey := v.GetString("ai-key")

	// Semantic similarity is optional: without it every answer gets the
	// degraded lexical fallback instead of a hard failure.
	var scorer scoring.SimilarityScorer
	if !v.GetBool("no-semantic") {
		client := semantic.New(aiURL, aiKey, v.GetString("embed-model"))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.SimilarityTimeout)
		err := client.Ping(ctx)
		cancel()
		if err != nil {
			slog.Warn("embedding endpoint unreachable, semantic scoring degraded",
				"url", aiURL, "error", err)
		} else {
			slog.Info("embedding endpoint OK", "url", aiURL, "model", v.GetString("embed-model"))
		}
		scorer = client
	}

	var transcriber speech.Transcriber
	var tts speech.Synthesizer
	if !v.GetBool("no-speech") {
		transcriber = speech.NewRetryTranscriber(
			speech.NewWhisperTranscriber(aiURL, aiKey, v.GetString("whisper-model"), cfg.FillerWords),
			cfg.TranscribeRetries,
		)
		tts = speech.NewSynthesizer(aiURL, aiKey, v.GetString("tts-model"), v.GetString("tts-voice"))
	}

	engine, err := scoring.NewEngine(cfg, scorer)
	if err != nil {
		return fmt.Errorf("create scoring engine: %w", err)
	}

	h := handler.New(db, engine, transcriber, tts)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"ai_url", aiURL,
		"embed_model", v.GetString("embed-model"),
		"whisper_model", v.GetString("whisper-model"),
		"lang", lang,
		"semantic", !v.GetBool("no-semantic"),
		"speech", !v.GetBool("no-speech"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch strings.ToLower(v.GetString("format")) {
	case "csv":
		return writeCSV(w, results)
	case "json":
		export := model.SessionsExport{
			GeneratedAt: time.Now(),
			NumSessions: len(results),
			Results:     results,
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		_, _ = fmt.Fprintln(w)
		return nil
	default:
		return fmt.Errorf("unknown format %q", v.GetString("format"))
	}
}

// writeCSV flattens the export to one row per answer.
func writeCSV(w io.Writer, results []model.SessionResult) error {
	cw := csv.NewWriter(w)
	header := []string{
		"session_id", "candidate", "role", "status", "started_at",
		"position", "question", "difficulty", "lexical", "semantic",
		"delivery", "combined", "degraded", "reviewer_score", "authoritative",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		for _, a := range r.Answers {
			reviewerScore := ""
			if a.ReviewerScore != nil {
				reviewerScore = formatScore(*a.ReviewerScore)
			}
			row := []string{
				strconv.FormatInt(r.SessionID, 10),
				r.Candidate,
				r.Role,
				string(r.Status),
				r.StartedAt.Format(time.RFC3339),
				strconv.Itoa(a.Position),
				a.QuestionText,
				string(a.Difficulty),
				formatScore(a.Lexical),
				formatScore(a.Semantic),
				formatScore(a.Delivery),
				formatScore(a.Combined),
				strconv.FormatBool(a.Degraded),
				reviewerScore,
				formatScore(a.Authoritative),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func loadQuestions(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("question bank unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("question bank changed since last import, skipping to keep existing sessions consistent",
				"path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, qi := range questions {
			if !qi.Difficulty.Valid() {
				return fmt.Errorf("question %q in %s: unknown difficulty %q", qi.Text, path, qi.Difficulty)
			}
			_, err := db.InsertQuestion(model.Question{
				Role:        qi.Role,
				Text:        qi.Text,
				Difficulty:  qi.Difficulty,
				Keywords:    qi.Keywords,
				ModelAnswer: qi.ModelAnswer,
			})
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or INTERVIEWSIM_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
