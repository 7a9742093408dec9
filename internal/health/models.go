package health

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CatalogLister yields the model identifiers currently available
// upstream. Implementations live at the system boundary; the diffing
// logic below never cares how the list was obtained.
type CatalogLister interface {
	List(ctx context.Context) ([]string, error)
}

// Versioned model identifiers: a name stem plus at least one
// `.`/`_`/`-`/`:` separated segment, e.g. "llama3.1:8b".
var modelIDPattern = regexp.MustCompile(`[a-z][a-z0-9]*(?:[._:-][a-z0-9]+)+`)

// CLILister scrapes model identifiers out of a catalog CLI's text
// output. Only lines mentioning a tracked prefix are scanned, keeping
// noise (headers, sizes, digests) out of the identifier set.
type CLILister struct {
	command  string
	args     []string
	prefixes []string
	timeout  time.Duration
}

// NewCLILister builds a catalog lister around an external command
func NewCLILister(command string, args, prefixes []string, timeout time.Duration) *CLILister {
	return &CLILister{command: command, args: args, prefixes: prefixes, timeout: timeout}
}

// List invokes the catalog CLI and extracts tracked identifiers from its
// combined output, deduplicated in first-seen order.
func (l *CLILister) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.command, l.args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("catalog command failed: %w", err)
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(out), "\n") {
		lower := strings.ToLower(line)
		if !l.tracked(lower) {
			continue
		}
		for _, id := range modelIDPattern.FindAllString(lower, -1) {
			id = strings.TrimSpace(id)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (l *CLILister) tracked(line string) bool {
	for _, p := range l.prefixes {
		if strings.Contains(line, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// NewModels diffs the available catalog against the running set and
// returns identifiers not yet adopted, deduplicated in first-seen order.
func NewModels(available, running []string) []string {
	current := make(map[string]struct{}, len(running))
	for _, id := range running {
		current[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}

	var fresh []string
	seen := make(map[string]struct{})
	for _, id := range available {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, have := current[id]; have {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, id)
	}
	return fresh
}

// ModelScanner composes a catalog lister with the running-set diff.
// Lister failures are never fatal: the scan degrades to an empty list.
type ModelScanner struct {
	lister  CatalogLister
	running []string
}

// NewModelScanner builds a scanner over the given lister
func NewModelScanner(lister CatalogLister, running []string) *ModelScanner {
	return &ModelScanner{lister: lister, running: running}
}

// Scan returns model identifiers available upstream but not running
func (s *ModelScanner) Scan(ctx context.Context) []string {
	if s.lister == nil {
		return nil
	}
	available, err := s.lister.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Model catalog scan failed, skipping")
		return nil
	}
	return NewModels(available, s.running)
}
