package artifact

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
)

// EdgeStats counts lines seen while reading an edge list.
type EdgeStats struct {
	Lines   int
	Edges   int
	Skipped int
}

// ReadEdges streams "origin,relation,target[,...]" lines to fn. Lines with
// fewer than three fields are skipped; extra fields are ignored.
func ReadEdges(r io.Reader, log logging.Logger, fn func(noderank.Edge)) (EdgeStats, error) {
	log = logging.OrDefault(log)

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comment = '#'

	var st EdgeStats
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		st.Lines++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Debug("unreadable edge line", logging.Line(perr.Line), logging.Error(err))
				st.Skipped++
				continue
			}
			return st, err
		}
		if len(record) < 3 {
			st.Skipped++
			continue
		}
		fn(noderank.Edge{
			Origin:   strings.TrimSpace(record[0]),
			Relation: strings.TrimSpace(record[1]),
			Target:   strings.TrimSpace(record[2]),
		})
		st.Edges++
	}
	if st.Skipped > 0 {
		log.Warn("skipped short edge lines", logging.Count(st.Skipped))
	}
	return st, nil
}

// LoadEdges reads an edge list and builds per-label node rankings.
func LoadEdges(path string, log logging.Logger) (*noderank.Rankings, EdgeStats, error) {
	f, err := open("edge list", path)
	if err != nil {
		return nil, EdgeStats{}, err
	}
	defer f.Close()

	b := noderank.NewBuilder()
	st, err := ReadEdges(f, logging.OrDefault(log).With(logging.Path(path)), b.Add)
	if err != nil {
		return nil, st, &ParseError{Kind: "edge list", Path: path, Cause: err}
	}
	return b.Rankings(), st, nil
}
