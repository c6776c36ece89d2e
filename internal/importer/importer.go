// Package importer loads promotion exports into storage.
//
// Exports are gzip-compressed NDJSON files, one promotion object per line.
// Files are decompressed and decoded concurrently; the result keeps input
// order so that the first occurrence of a code wins.
package importer

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/wire"
)

const (
	bloomFPR      = 0.001
	minBloomSize  = 1024
	maxLineBytes  = 1 << 20
	progressEvery = 100_000
	upsertBatch   = 1000
)

// Store is the promotion storage the importer writes to.
type Store interface {
	Codes(ctx context.Context) ([]string, error)
	ExistingCodes(ctx context.Context, codes []string) ([]string, error)
	Upsert(ctx context.Context, promos []promotion.Promotion) error
}

// Stats summarizes an import run.
type Stats struct {
	Lines      int
	Invalid    int
	Duplicates int
	Existing   int
	Imported   int
}

// Options tune an import run.
type Options struct {
	// Overwrite updates promotions whose code already exists instead of
	// skipping them.
	Overwrite bool
	// DryRun reads and filters without writing.
	DryRun bool
}

// Importer streams promotion exports into a Store.
type Importer struct {
	store Store
	lg    *zap.Logger
}

// New creates an Importer.
func New(store Store, lg *zap.Logger) *Importer {
	return &Importer{store: store, lg: lg}
}

// fileResult is the decoded content of one export file.
type fileResult struct {
	promos  []promotion.Promotion
	lines   int
	invalid int
}

// Run imports every file in paths.
func (im *Importer) Run(ctx context.Context, paths []string, opts Options) (Stats, error) {
	var stats Stats

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			r, err := im.readFile(gctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	var all []promotion.Promotion
	for _, r := range results {
		stats.Lines += r.lines
		stats.Invalid += r.invalid
		all = append(all, r.promos...)
	}

	unique := Dedupe(all)
	stats.Duplicates = len(all) - len(unique)

	fresh := unique
	if !opts.Overwrite {
		var err error
		fresh, err = im.skipExisting(ctx, unique)
		if err != nil {
			return stats, err
		}
		stats.Existing = len(unique) - len(fresh)
	}

	im.lg.Info("Promotions filtered",
		zap.Int("lines", stats.Lines),
		zap.Int("invalid", stats.Invalid),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("existing", stats.Existing),
		zap.Int("to_import", len(fresh)),
	)
	if opts.DryRun {
		return stats, nil
	}

	for start := 0; start < len(fresh); start += upsertBatch {
		end := min(start+upsertBatch, len(fresh))
		if err := im.store.Upsert(ctx, fresh[start:end]); err != nil {
			return stats, errors.Wrap(err, "upsert promotions")
		}
		stats.Imported = end
		im.lg.Info("Write progress", zap.Int("written", end), zap.Int("total", len(fresh)))
	}
	return stats, nil
}

// readFile decodes one gzip NDJSON export. Malformed or invalid lines are
// logged and skipped.
func (im *Importer) readFile(ctx context.Context, path string) (fileResult, error) {
	var r fileResult

	f, err := os.Open(path)
	if err != nil {
		return r, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return r, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	lg := im.lg.With(zap.String("file", path))
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.lines++
		if r.lines%progressEvery == 0 {
			lg.Info("Read progress", zap.Int("lines", r.lines))
		}

		p, err := wire.DecodePromotion(jx.DecodeStr(line))
		if err == nil {
			err = validate(&p)
		}
		if err != nil {
			r.invalid++
			lg.Debug("Skipping line", zap.Int("line", r.lines), zap.Error(err))
			continue
		}
		r.promos = append(r.promos, p)
	}
	if err := scanner.Err(); err != nil {
		return r, errors.Wrap(err, "scan")
	}

	lg.Info("File read", zap.Int("lines", r.lines), zap.Int("invalid", r.invalid))
	return r, nil
}

// validate rejects promotions the engine could never apply and assigns an
// id when the export has none.
func validate(p *promotion.Promotion) error {
	p.Code = strings.TrimSpace(p.Code)
	switch {
	case p.Code == "":
		return errors.New("missing code")
	case !p.Type.Known():
		return errors.Errorf("unknown promotion type %q", p.Type)
	case p.Proportion != promotion.ProportionPercentage && p.Proportion != promotion.ProportionAbsolute:
		return errors.Errorf("unknown proportion %q", p.Proportion)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Dedupe keeps the first promotion of every code, preserving order.
func Dedupe(promos []promotion.Promotion) []promotion.Promotion {
	seen := make(map[string]struct{}, len(promos))
	out := make([]promotion.Promotion, 0, len(promos))
	for _, p := range promos {
		if _, ok := seen[p.Code]; ok {
			continue
		}
		seen[p.Code] = struct{}{}
		out = append(out, p)
	}
	return out
}

// skipExisting drops promotions whose code is already stored. Stored codes
// are loaded into a bloom filter and only its positives are confirmed with
// an exact lookup.
func (im *Importer) skipExisting(ctx context.Context, promos []promotion.Promotion) ([]promotion.Promotion, error) {
	stored, err := im.store.Codes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load stored codes")
	}
	if len(stored) == 0 {
		return promos, nil
	}

	filter := bloom.NewWithEstimates(uint(max(len(stored), minBloomSize)), bloomFPR)
	for _, code := range stored {
		filter.AddString(code)
	}

	var candidates []string
	for _, p := range promos {
		if filter.TestString(p.Code) {
			candidates = append(candidates, p.Code)
		}
	}
	if len(candidates) == 0 {
		return promos, nil
	}

	existing, err := im.store.ExistingCodes(ctx, candidates)
	if err != nil {
		return nil, errors.Wrap(err, "confirm stored codes")
	}
	im.lg.Debug("Bloom filter candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("confirmed", len(existing)),
	)

	skip := make(map[string]struct{}, len(existing))
	for _, code := range existing {
		skip[code] = struct{}{}
	}
	out := make([]promotion.Promotion, 0, len(promos))
	for _, p := range promos {
		if _, ok := skip[p.Code]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}
