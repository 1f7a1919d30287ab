// Package pipeline runs one harvest end to end: search, visit, extract,
// export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/qaharvest/internal/export"
	"github.com/FranksOps/qaharvest/internal/qa"
	"github.com/FranksOps/qaharvest/internal/scraper"
	"github.com/FranksOps/qaharvest/internal/serp"
	"github.com/FranksOps/qaharvest/internal/storage"
	"github.com/google/uuid"
)

// Harvester visits URLs and extracts records from them.
type Harvester interface {
	Run(ctx context.Context, urls []string) ([]scraper.Result, error)
}

// Exporter writes all records of a run in one go.
type Exporter interface {
	Export(records []qa.Record) error
	Destination() string
}

// Pipeline wires the stages together. Every field except RunID and Logger
// is required.
type Pipeline struct {
	Provider  serp.Provider
	Harvester Harvester
	Exporter  Exporter
	// MaxURLs caps how many result links are visited (0 = all).
	MaxURLs int
	RunID   string
	Logger  *slog.Logger
}

// Result is everything a run produced.
type Result struct {
	RunID    string
	Query    string
	Links    []string
	Visits   []*storage.Visit
	Records  []qa.Record
	Output   string // empty unless a file was written
	Started  time.Time
	Finished time.Time
}

// Run executes the stages in order. A search failure is returned as is. When
// nothing was extracted the partial result comes back with
// export.ErrNoRecords and no file is written.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	if p.Provider == nil {
		return nil, errors.New("pipeline: no search provider")
	}
	if p.Harvester == nil {
		return nil, errors.New("pipeline: no harvester")
	}
	if p.Exporter == nil {
		return nil, errors.New("pipeline: no exporter")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{
		RunID:   p.RunID,
		Query:   query,
		Started: time.Now().UTC(),
	}
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	defer func() { res.Finished = time.Now().UTC() }()

	links, err := p.Provider.Search(ctx, query, p.MaxURLs)
	if err != nil {
		return res, fmt.Errorf("search: %w", err)
	}
	if p.MaxURLs > 0 && len(links) > p.MaxURLs {
		links = links[:p.MaxURLs]
	}
	res.Links = links
	logger.Info("collected result links", "run_id", res.RunID, "links", len(links))

	results, err := p.Harvester.Run(ctx, links)
	for _, r := range results {
		res.Visits = append(res.Visits, r.Visit)
		res.Records = append(res.Records, r.Records...)
	}
	if err != nil {
		return res, fmt.Errorf("harvest: %w", err)
	}

	if len(res.Records) == 0 {
		return res, export.ErrNoRecords
	}
	if err := p.Exporter.Export(res.Records); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	res.Output = p.Exporter.Destination()
	logger.Info("exported records", "run_id", res.RunID, "records", len(res.Records), "output", res.Output)

	return res, nil
}
