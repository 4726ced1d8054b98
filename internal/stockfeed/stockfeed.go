// Package stockfeed reads gzip-compressed stock level feeds.
//
// A feed holds one "product_id;stock" pair per line. Blank lines and lines
// starting with '#' are ignored. Feeds are parsed concurrently and merged in
// the order given, so a product listed in several feeds takes its level from
// the last one.
package stockfeed

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
)

// Options tunes feed reading.
type Options struct {
	// ExpectedItems sizes the per-feed bloom filters.
	ExpectedItems uint
	// FalsePositiveRate of the per-feed bloom filters.
	FalsePositiveRate float64
}

func (o Options) withDefaults() Options {
	if o.ExpectedItems == 0 {
		o.ExpectedItems = defaultCapacity
	}
	if o.FalsePositiveRate <= 0 || o.FalsePositiveRate >= 1 {
		o.FalsePositiveRate = defaultFPR
	}
	return o
}

// Result is the merged content of a set of feeds.
type Result struct {
	// Levels maps product id to its final stock level.
	Levels map[string]int
	// Duplicates lists product ids found in more than one feed, in first
	// seen order.
	Duplicates []string
	// Skipped counts malformed lines.
	Skipped int
}

type entry struct {
	productID string
	stock     int
}

type feed struct {
	path    string
	entries []entry
	levels  map[string]int
	pos     map[string]int
	filter  *bloom.BloomFilter
	skipped int
}

// Read parses all feeds concurrently and merges them.
func Read(ctx context.Context, paths []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	feeds := make([]*feed, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			f, err := readFeed(gctx, p, opts)
			if err != nil {
				return errors.Wrapf(err, "read feed %s", p)
			}
			feeds[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(ctx, feeds), nil
}

func merge(ctx context.Context, feeds []*feed) *Result {
	lg := zctx.From(ctx)
	res := &Result{Levels: make(map[string]int)}
	reported := make(map[string]struct{})

	for i, f := range feeds {
		res.Skipped += f.skipped
		for _, e := range f.entries {
			if _, ok := reported[e.productID]; !ok && inOtherFeed(feeds, i, e.productID) {
				reported[e.productID] = struct{}{}
				res.Duplicates = append(res.Duplicates, e.productID)
				lg.Warn("Product listed in several feeds",
					zap.String("product_id", e.productID),
					zap.String("feed", f.path),
				)
			}
			res.Levels[e.productID] = e.stock
		}
	}
	return res
}

// inOtherFeed reports whether id appears in a feed other than feeds[idx].
// The bloom filters rule out most ids before the exact lookup.
func inOtherFeed(feeds []*feed, idx int, id string) bool {
	for j, other := range feeds {
		if j == idx || !other.filter.TestString(id) {
			continue
		}
		if _, ok := other.levels[id]; ok {
			return true
		}
	}
	return false
}

func readFeed(ctx context.Context, path string, opts Options) (*feed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = file.Close() }()

	gz, err := pgzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	f := &feed{
		path:   path,
		levels: make(map[string]int),
		pos:    make(map[string]int),
		filter: bloom.NewWithEstimates(opts.ExpectedItems, opts.FalsePositiveRate),
	}
	lg := zctx.From(ctx)

	scanner := bufio.NewScanner(gz)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++

		e, ok, err := parseLine(scanner.Text())
		if err != nil {
			f.skipped++
			lg.Debug("Skipping malformed line",
				zap.String("feed", path),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		if k, seen := f.pos[e.productID]; seen {
			// Later lines of the same feed win.
			f.entries[k].stock = e.stock
		} else {
			f.pos[e.productID] = len(f.entries)
			f.entries = append(f.entries, e)
			f.filter.AddString(e.productID)
		}
		f.levels[e.productID] = e.stock
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	lg.Info("Feed parsed",
		zap.String("feed", path),
		zap.Int("products", len(f.entries)),
		zap.Int("skipped", f.skipped),
	)
	return f, nil
}

// parseLine returns ok=false for lines that carry no entry.
func parseLine(line string) (entry, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return entry{}, false, nil
	}

	id, stockStr, found := strings.Cut(line, ";")
	if !found {
		return entry{}, false, errors.Errorf("missing separator in %q", line)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return entry{}, false, errors.Errorf("empty product id in %q", line)
	}
	stock, err := strconv.Atoi(strings.TrimSpace(stockStr))
	if err != nil {
		return entry{}, false, errors.Wrapf(err, "parse stock in %q", line)
	}
	if stock < 0 {
		return entry{}, false, errors.Errorf("negative stock in %q", line)
	}
	return entry{productID: id, stock: stock}, true, nil
}
