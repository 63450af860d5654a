package aggregate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
	"github.com/dd0wney/cluso-pathbench/pkg/parallel"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
)

// Block outcomes, also used as metric label values.
const (
	OutcomeParsed  = "parsed"
	OutcomeNoQuery = "no_query"
	OutcomeNoCount = "no_count"
)

var (
	blockDelimiter = regexp.MustCompile(`Query received:\s*\n`)

	primaryQuery = regexp.MustCompile(
		`(?ms)(MATCH\s+\(.+?\)=\[[A-Z]+(?: [A-Z]+)* \?\w+\s+\(.+?\)\]=>\(\?\w+\)\s+RETURN \?\w+.*?)(?:\s*$|\n)`)
	fallbackQuery = regexp.MustCompile(`(?ms)(MATCH.+?RETURN.+?)(?:\s*$|\n)`)

	resultCount  = regexp.MustCompile(`Results:\s*(\d+)`)
	execDuration = regexp.MustCompile(`Execution duration:\s*([\d.]+)\s*ms`)
)

// Stats counts what happened to each log block.
type Stats struct {
	Blocks  int `json:"blocks"`
	Parsed  int `json:"parsed"`
	NoQuery int `json:"no_query"`
	NoCount int `json:"no_count"`
	Repeats int `json:"repeats"`
}

// Result is the output of Aggregate. Records are in first-seen order.
type Result struct {
	Records []Record
	Stats   Stats
}

// Aggregator parses execution logs. It is stateless between calls.
type Aggregator struct {
	logger  logging.Logger
	metrics *metrics.Registry
	workers int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used for skipped-block diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics records block outcomes in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(a *Aggregator) { a.metrics = r }
}

// WithWorkers sets how many goroutines parse blocks. Zero means one per
// CPU. Records and diagnostics keep log order regardless.
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

// New returns an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{}
	for _, o := range opts {
		o(a)
	}
	a.logger = logging.OrDefault(a.logger).With(logging.Component("aggregate"))
	return a
}

// ExtractQuery returns the query text of one log block.
func ExtractQuery(block string) (string, bool) {
	m := primaryQuery.FindStringSubmatch(block)
	if m == nil {
		m = fallbackQuery.FindStringSubmatch(block)
	}
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

type parsedBlock struct {
	outcome string
	query   string
	paths   int
	sample  Sample
	err     error
}

// parseBlock extracts the query, result count and duration of one block.
func parseBlock(block string) parsedBlock {
	query, ok := ExtractQuery(block)
	if !ok {
		return parsedBlock{outcome: OutcomeNoQuery}
	}
	cm := resultCount.FindStringSubmatch(block)
	if cm == nil {
		return parsedBlock{outcome: OutcomeNoCount, query: query}
	}
	paths, err := strconv.Atoi(cm[1])
	if err != nil {
		return parsedBlock{outcome: OutcomeNoCount, query: query, err: err}
	}

	pb := parsedBlock{outcome: OutcomeParsed, query: query, paths: paths}
	if dm := execDuration.FindStringSubmatch(block); dm != nil {
		if ms, err := strconv.ParseFloat(dm[1], 64); err == nil {
			pb.sample = Sample{Ms: ms, Defined: true}
		}
	}
	return pb
}

// Aggregate splits raw into blocks and groups them by query text. Text
// before the first delimiter is ignored. Blocks without a query or a result
// count are skipped with a warning; a missing duration is kept as an
// undefined sample. Repeats of a query add samples and are assumed to
// return the same path count.
func (a *Aggregator) Aggregate(raw string, index pattern.SideIndex, qnums map[string]int) Result {
	var res Result

	blocks := blockDelimiter.Split(raw, -1)
	if len(blocks) > 0 {
		blocks = blocks[1:]
	}
	res.Stats.Blocks = len(blocks)

	parsed := make([]parsedBlock, len(blocks))
	parallel.ForEach(len(blocks), a.workers, a.logger, func(i int) {
		parsed[i] = parseBlock(blocks[i])
	})

	byQuery := make(map[string]int)
	for i, pb := range parsed {
		n := i + 1
		query, paths, sample := pb.query, pb.paths, pb.sample

		switch pb.outcome {
		case OutcomeNoQuery:
			a.logger.Warn("could not extract query from block", logging.Int("block", n))
			a.metrics.RecordLogBlock(OutcomeNoQuery)
			res.Stats.NoQuery++
			continue
		case OutcomeNoCount:
			if pb.err != nil {
				a.logger.Warn("result count out of range", logging.Int("block", n), logging.Error(pb.err))
			} else {
				a.logger.Warn("no result count in block", logging.Int("block", n), logging.Query(query))
			}
			a.metrics.RecordLogBlock(OutcomeNoCount)
			res.Stats.NoCount++
			continue
		}

		res.Stats.Parsed++
		a.metrics.RecordLogBlock(OutcomeParsed)

		if at, seen := byQuery[query]; seen {
			rec := &res.Records[at]
			rec.Samples = append(rec.Samples, sample)
			rec.Executions++
			res.Stats.Repeats++
			continue
		}

		rec := Record{
			Query:      query,
			Pattern:    pattern.UnknownPattern,
			Template:   pattern.UnknownPattern,
			NodeID:     pattern.UnknownPattern,
			PathCount:  paths,
			Samples:    []Sample{sample},
			Executions: 1,
		}
		if entry, ok := index[query]; ok {
			rec.Pattern = entry.Pattern
			if entry.Template != "" {
				rec.Template = entry.Template
			}
			if entry.NodeID != "" {
				rec.NodeID = entry.NodeID
			}
			rec.QNumber = qnums[entry.Pattern]
		}
		byQuery[query] = len(res.Records)
		res.Records = append(res.Records, rec)
	}

	for i := range res.Records {
		res.Records[i].finalize()
	}

	a.metrics.RecordAggregation(len(res.Records), res.Stats.Repeats)
	a.logger.Info("log aggregated",
		logging.Int("blocks", res.Stats.Blocks),
		logging.Int("parsed", res.Stats.Parsed),
		logging.Int("distinct", len(res.Records)),
		logging.Int("repeats", res.Stats.Repeats),
		logging.Int("dropped", res.Stats.NoQuery+res.Stats.NoCount),
	)
	return res
}
