package artifact

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
)

// LoadMappings reads "label,node1,node2,..." lines, or a JSON object of
// label to node list when path ends in .json. A label listed twice keeps
// its last line.
func LoadMappings(path string) (noderank.Mappings, error) {
	f, err := open("node mappings", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".json") {
		var m noderank.Mappings
		if err := json.NewDecoder(f).Decode(&m); err != nil {
			return nil, &ParseError{Kind: "node mappings", Path: path, Cause: err}
		}
		return m, nil
	}
	m, err := ReadMappings(f)
	if err != nil {
		return nil, &ParseError{Kind: "node mappings", Path: path, Cause: err}
	}
	return m, nil
}

// ReadMappings reads the line format of LoadMappings.
func ReadMappings(r io.Reader) (noderank.Mappings, error) {
	m := make(noderank.Mappings)
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
		nodes := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			if p = strings.TrimSpace(p); p != "" {
				nodes = append(nodes, p)
			}
		}
		m[strings.TrimSpace(parts[0])] = nodes
	}
	return m, sc.Err()
}

// WriteMappings writes m in the line format, labels sorted.
func WriteMappings(path string, m noderank.Mappings, modes []noderank.Mode, perLabel int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create node mappings: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# Label to start node mapping\n")
	fmt.Fprintf(w, "# Format: label,node1,node2,...\n")
	fmt.Fprintf(w, "# %d nodes per label using modes: %s\n\n", perLabel, noderank.FormatModes(modes))
	for _, label := range m.Labels() {
		fmt.Fprintf(w, "%s,%s\n", label, strings.Join(m[label], ","))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
