// Package export writes rankings and pools as CSV tables and to PostgreSQL,
// and reads exported ranking tables back for the rankings-reuse mode.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// File layout inside a rankings directory.
const (
	AbstractFile = "rankingAbstract.csv"
	TemplatesDir = "rankingTemplates"
)

var (
	abstractHeader = []string{"rank", "q_number", "pattern", "score", "mean_time_ms", "samples", "max_paths", "min_paths"}
	templateHeader = []string{"rank", "template", "score", "mean_time_ms", "samples", "max_paths", "min_paths"}
	poolHeader     = []string{"real_query", "pattern", "q_number", "template", "node_id", "path_count", "mean_time_ms", "stddev_time_ms", "selection_type"}
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// TemplateFile returns the per-pattern template ranking file name: Q<n>.csv,
// or a sanitized pattern name when the pattern has no Q number.
func TemplateFile(p ranking.Score) string {
	if p.QNumber > 0 {
		return fmt.Sprintf("Q%d.csv", p.QNumber)
	}
	return unsafeName.ReplaceAllString(p.Name, "_") + ".csv"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(s ranking.Score) string {
	if !s.HasTiming {
		return ""
	}
	return formatFloat(s.MeanTimeMs)
}

func formatQ(n int) string {
	if n <= 0 {
		return ""
	}
	return "Q" + strconv.Itoa(n)
}

// WriteAbstractRanking writes a pattern ranking table.
func WriteAbstractRanking(w io.Writer, rows []ranking.Score) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(abstractHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Rank), formatQ(r.QNumber), r.Name, formatFloat(r.Score), formatTime(r),
			strconv.Itoa(r.Samples), strconv.Itoa(r.MaxPaths), strconv.Itoa(r.MinPaths),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplateRanking writes the template ranking of one pattern.
func WriteTemplateRanking(w io.Writer, rows []ranking.Score) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(templateHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Rank), r.Name, formatFloat(r.Score), formatTime(r),
			strconv.Itoa(r.Samples), strconv.Itoa(r.MaxPaths), strconv.Itoa(r.MinPaths),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePool writes the pool entries as CSV rows.
func WritePool(w io.Writer, p *pool.Pool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(poolHeader); err != nil {
		return err
	}
	for _, e := range p.Entries {
		rec := []string{
			e.RealQuery, e.Pattern, strconv.Itoa(e.QNumber), e.Template, e.NodeID,
			strconv.Itoa(e.PathCount), formatFloat(e.MeanTimeMs), formatFloat(e.StdDevTimeMs),
			string(e.SelectionType),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteRankings writes rankingAbstract.csv and one template ranking per
// pattern under rankingTemplates/ in dir.
func WriteRankings(dir string, r ranking.Rankings) error {
	tdir := filepath.Join(dir, TemplatesDir)
	if err := os.MkdirAll(tdir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", tdir, err)
	}
	if err := writeFile(filepath.Join(dir, AbstractFile), func(w io.Writer) error {
		return WriteAbstractRanking(w, r.Patterns)
	}); err != nil {
		return err
	}
	for _, p := range r.Patterns {
		rows := r.TemplatesFor(p)
		if err := writeFile(filepath.Join(tdir, TemplateFile(p)), func(w io.Writer) error {
			return WriteTemplateRanking(w, rows)
		}); err != nil {
			return err
		}
	}
	return nil
}

// WritePoolFile writes the pool CSV to path.
func WritePoolFile(path string, p *pool.Pool) error {
	return writeFile(path, func(w io.Writer) error { return WritePool(w, p) })
}

type columns map[string]int

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func readTable(kind, path string, r io.Reader, required []string, row func(columns, []string, int) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &artifact.ParseError{Kind: kind, Path: path, Line: 1, Cause: err}
	}
	cols := make(columns, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return &artifact.ParseError{Kind: kind, Path: path, Line: 1, Cause: fmt.Errorf("missing column %q", name)}
		}
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &artifact.ParseError{Kind: kind, Path: path, Line: line, Cause: err}
		}
		if err := row(cols, rec, line); err != nil {
			return &artifact.ParseError{Kind: kind, Path: path, Line: line, Cause: err}
		}
	}
}

func parseScore(cols columns, rec []string) (ranking.Score, error) {
	var s ranking.Score
	var err error
	if s.Rank, err = strconv.Atoi(cols.get(rec, "rank")); err != nil {
		return s, fmt.Errorf("rank: %w", err)
	}
	if v := cols.get(rec, "score"); v != "" {
		if s.Score, err = strconv.ParseFloat(v, 64); err != nil {
			return s, fmt.Errorf("score: %w", err)
		}
	}
	if v := cols.get(rec, "mean_time_ms"); v != "" {
		if s.MeanTimeMs, err = strconv.ParseFloat(v, 64); err != nil {
			return s, fmt.Errorf("mean_time_ms: %w", err)
		}
		s.HasTiming = true
	}
	// counts are informational; a blank or garbled cell reads as zero
	s.Samples, _ = strconv.Atoi(cols.get(rec, "samples"))
	s.MaxPaths, _ = strconv.Atoi(cols.get(rec, "max_paths"))
	s.MinPaths, _ = strconv.Atoi(cols.get(rec, "min_paths"))
	return s, nil
}

func parseQ(v string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(v, "Q"), "q"))
	if err != nil {
		return 0
	}
	return n
}

// ReadAbstractRanking reads a pattern ranking table in file order.
func ReadAbstractRanking(r io.Reader) ([]ranking.Score, error) {
	var rows []ranking.Score
	err := readTable("abstract ranking", "", r, []string{"rank", "q_number", "pattern"}, func(cols columns, rec []string, _ int) error {
		s, err := parseScore(cols, rec)
		if err != nil {
			return err
		}
		s.Name = cols.get(rec, "pattern")
		s.QNumber = parseQ(cols.get(rec, "q_number"))
		rows = append(rows, s)
		return nil
	})
	return rows, err
}

// ReadTemplateRanking reads the template ranking of the pattern with Q
// number qnum.
func ReadTemplateRanking(r io.Reader, qnum int) ([]ranking.Score, error) {
	var rows []ranking.Score
	err := readTable("template ranking", "", r, []string{"rank", "template"}, func(cols columns, rec []string, _ int) error {
		s, err := parseScore(cols, rec)
		if err != nil {
			return err
		}
		s.Name = cols.get(rec, "template")
		s.QNumber = qnum
		rows = append(rows, s)
		return nil
	})
	return rows, err
}

func openTable(kind, path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &artifact.MissingError{Kind: kind, Path: path}
	}
	return f, err
}

// LoadRankings reads a rankings directory written by WriteRankings. The
// abstract ranking is required; a missing template file leaves that Q
// number without templates.
func LoadRankings(dir string) ([]ranking.Score, map[int][]ranking.Score, error) {
	path := filepath.Join(dir, AbstractFile)
	f, err := openTable("abstract ranking", path)
	if err != nil {
		return nil, nil, err
	}
	patterns, err := ReadAbstractRanking(f)
	f.Close()
	if err != nil {
		return nil, nil, withPath(err, path)
	}

	templates := make(map[int][]ranking.Score, len(patterns))
	for _, p := range patterns {
		if p.QNumber <= 0 {
			continue
		}
		tpath := filepath.Join(dir, TemplatesDir, TemplateFile(p))
		tf, err := openTable("template ranking", tpath)
		if artifact.IsMissing(err) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		rows, err := ReadTemplateRanking(tf, p.QNumber)
		tf.Close()
		if err != nil {
			return nil, nil, withPath(err, tpath)
		}
		templates[p.QNumber] = rows
	}
	return patterns, templates, nil
}

func withPath(err error, path string) error {
	var pe *artifact.ParseError
	if errors.As(err, &pe) {
		pe.Path = path
	}
	return err
}
