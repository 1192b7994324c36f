// Command reindex rebuilds the item and client search indices from the ERP
// views in PostgreSQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/francpeal/buscador/internal/app"
	"github.com/francpeal/buscador/internal/config"
	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/pkg/logger"
)

func main() {
	targetFlag := flag.String("target", string(domain.TargetAll), "entities to rebuild: items, clients or all")
	flag.Parse()

	target, err := domain.ParseTarget(*targetFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(app.ServiceName+"-reindex", cfg.LogLevel)
	if err := run(cfg, target, log); err != nil {
		log.Error("reindex failed", errorAttrs(err)...)
		os.Exit(1)
	}
}

func run(cfg *config.Config, target domain.Target, log *slog.Logger) error {
	r, err := app.NewReindexer(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn("reindex cleanup failed", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reports, err := r.Run(ctx, target)
	for _, rep := range reports {
		log.Info("index rebuilt",
			slog.String("entity", string(rep.Entity)),
			slog.String("index", rep.Index),
			slog.Int("documents", rep.Documents),
			slog.Int("flushes", rep.Flushes),
			slog.Duration("duration", rep.Duration),
		)
	}
	return err
}

// errorAttrs expands the rebuild failure kinds into structured fields.
func errorAttrs(err error) []any {
	attrs := []any{slog.String("error", err.Error())}

	var bulkErr *domain.BulkWriteError
	var rowErr *domain.MalformedRowError
	switch {
	case errors.As(err, &bulkErr):
		attrs = append(attrs,
			slog.String("entity", string(bulkErr.Entity)),
			slog.String("document_id", bulkErr.DocumentID),
			slog.Int("status", bulkErr.Status),
			slog.String("error_type", bulkErr.Type),
			slog.String("reason", bulkErr.Reason),
		)
	case errors.As(err, &rowErr):
		attrs = append(attrs,
			slog.String("entity", string(rowErr.Entity)),
			slog.String("column", rowErr.Column),
		)
	case errors.Is(err, domain.ErrRebuildInProgress):
		attrs = append(attrs, slog.Bool("locked", true))
	}
	return attrs
}
