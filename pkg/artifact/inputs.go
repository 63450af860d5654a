// Package artifact reads and writes the files exchanged with the external
// query runner: templates, abstract patterns, edge lists, node rankings,
// label mappings, the side index, execution logs and the final pool.
package artifact

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
)

const maxLine = 1 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

// LoadTemplates reads query templates, one per line. Blank lines and lines
// starting with '#' are ignored. A path ending in .json holds a JSON array
// of strings instead.
func LoadTemplates(path string) ([]string, error) {
	f, err := open("templates", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".json") {
		var out []string
		if err := json.NewDecoder(f).Decode(&out); err != nil {
			return nil, &ParseError{Kind: "templates", Path: path, Cause: err}
		}
		return out, nil
	}
	out, err := ReadTemplates(f)
	if err != nil {
		return nil, &ParseError{Kind: "templates", Path: path, Cause: err}
	}
	return out, nil
}

// ReadTemplates reads the line format of LoadTemplates.
func ReadTemplates(r io.Reader) ([]string, error) {
	var out []string
	sc := newScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

var patternLine = regexp.MustCompile(`^(.*?)\s*#(\d+)#\s*$`)

// LoadPatterns reads "<name> #<count>#" lines. Q numbers follow line order.
// Malformed lines are logged and skipped.
func LoadPatterns(path string, log logging.Logger) ([]pattern.Abstract, error) {
	f, err := open("abstract patterns", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out, err := ReadPatterns(f, logging.OrDefault(log).With(logging.Path(path)))
	if err != nil {
		return nil, &ParseError{Kind: "abstract patterns", Path: path, Cause: err}
	}
	return out, nil
}

// ReadPatterns reads the format of LoadPatterns.
func ReadPatterns(r io.Reader, log logging.Logger) ([]pattern.Abstract, error) {
	log = logging.OrDefault(log)
	var out []pattern.Abstract
	sc := newScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := patternLine.FindStringSubmatch(line)
		if m == nil {
			log.Warn("malformed pattern line", logging.Line(n), logging.String("text", line))
			continue
		}
		count, err := strconv.Atoi(m[2])
		if err != nil {
			log.Warn("invalid pattern count", logging.Line(n), logging.Error(err))
			continue
		}
		out = append(out, pattern.Abstract{Name: strings.TrimSpace(m[1]), ExpectedCount: count})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pattern.Numbered(out), nil
}
