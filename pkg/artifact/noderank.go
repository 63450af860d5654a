package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
)

const rankingExt = ".txt"

// WriteNodeRanking writes <dir>/<label>.txt: the full ranking as
// "position,nodeId,count" lines, followed by comment lines with summary
// statistics and the nodes each selection mode picked.
func WriteNodeRanking(dir string, nr noderank.NodeRanking, sel []noderank.ModeSelection, source string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ranking dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, nr.Label+rankingExt))
	if err != nil {
		return fmt.Errorf("create node ranking: %w", err)
	}
	w := bufio.NewWriter(f)
	writeNodeRanking(w, nr, sel, source)
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeNodeRanking(w io.Writer, nr noderank.NodeRanking, sel []noderank.ModeSelection, source string) {
	fmt.Fprintf(w, "# Node ranking for label: %s\n", nr.Label)
	fmt.Fprintf(w, "# Nodes with outgoing edges: %d\n", nr.Len())
	fmt.Fprintf(w, "# Format: position,nodeId,outgoingCount\n")
	if source != "" {
		fmt.Fprintf(w, "# Source: %s\n", source)
	}
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("=", 60))

	for i, nc := range nr.Nodes {
		fmt.Fprintf(w, "%d,%s,%d\n", i+1, nc.Node, nc.Count)
	}

	if nr.Len() == 0 {
		return
	}
	s := noderank.Summarize(nr)
	fmt.Fprintf(w, "\n# Statistics\n")
	fmt.Fprintf(w, "# Total nodes: %d\n", s.Total)
	fmt.Fprintf(w, "# Max count: %d\n", s.Max)
	fmt.Fprintf(w, "# Min count: %d\n", s.Min)
	fmt.Fprintf(w, "# Mean count: %.2f\n", s.Mean)
	fmt.Fprintf(w, "# Median count: %g\n", s.Median)

	if len(sel) == 0 {
		return
	}
	fmt.Fprintf(w, "\n# Selected nodes by mode:\n")
	for _, ms := range sel {
		fmt.Fprintf(w, "# Mode %s:\n", strings.ToUpper(string(ms.Mode)))
		for i, nc := range ms.Nodes {
			fmt.Fprintf(w, "#   %d. %s (pos %d, %d edges)\n", i+1, nc.Node, nr.Position(nc.Node), nc.Count)
		}
	}
}

// ReadNodeRanking parses the ranking lines written by WriteNodeRanking.
// Comment lines and lines with fewer than two fields are ignored; a
// missing or unparsable count is read as zero.
func ReadNodeRanking(label string, r io.Reader) (noderank.NodeRanking, error) {
	nr := noderank.NodeRanking{Label: label}
	seen := make(map[string]bool)
	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		node := strings.TrimSpace(parts[1])
		if node == "" || seen[node] {
			continue
		}
		seen[node] = true
		count := 0
		if len(parts) > 2 {
			count, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
		}
		nr.Nodes = append(nr.Nodes, noderank.NodeCount{Node: node, Count: count})
	}
	return nr, sc.Err()
}

// LoadNodeRankings reads every <label>.txt file in dir. Labels are
// returned in sorted order.
func LoadNodeRankings(dir string) (*noderank.Rankings, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingError{Kind: "node ranking directory", Path: dir}
		}
		return nil, fmt.Errorf("read ranking dir: %w", err)
	}

	r := &noderank.Rankings{ByLabel: make(map[string]noderank.NodeRanking)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), rankingExt) {
			continue
		}
		label := strings.TrimSuffix(e.Name(), rankingExt)
		path := filepath.Join(dir, e.Name())

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open node ranking: %w", err)
		}
		nr, err := ReadNodeRanking(label, f)
		f.Close()
		if err != nil {
			return nil, &ParseError{Kind: "node ranking", Path: path, Cause: err}
		}
		if nr.Len() == 0 {
			continue
		}
		r.ByLabel[label] = nr
		r.Labels = append(r.Labels, label)
	}
	slices.Sort(r.Labels)
	return r, nil
}
