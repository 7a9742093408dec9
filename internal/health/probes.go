package health

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/quantpulse/tradeaudit/internal/secrets"
)

// Probe names are stable identifiers used in status derivation and metrics
const (
	ProbeMarketData  = "market-data"
	ProbeMacroData   = "macro-data"
	ProbeLLM         = "llm-cli"
	ProbeDisclosures = "disclosures"
)

// Probe is a single bounded reachability check against one external
// collaborator. Check never panics and never blocks past its timeout;
// every failure mode is folded into the returned Outcome.
type Probe interface {
	Name() string
	Check(ctx context.Context) Outcome
}

// RunProbes executes all probes concurrently and returns outcomes sorted
// by probe name. Ordering is a display convenience only.
func RunProbes(ctx context.Context, probes []Probe) []Outcome {
	outcomes := make([]Outcome, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			outcomes[i] = p.Check(ctx)
		}(i, p)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Probe < outcomes[j].Probe })
	return outcomes
}

// HTTPProbe checks that an HTTP endpoint answers within the timeout.
// A shared rate limiter keeps concurrent probes polite when several
// target the same upstream.
type HTTPProbe struct {
	name        string
	url         string
	client      *http.Client
	limiter     *rate.Limiter
	timeout     time.Duration
	keyName     string           // optional query credential
	keyParam    string
	secretsSrc  secrets.Provider
	acceptCodes func(int) bool
}

// HTTPProbeOption customises an HTTPProbe
type HTTPProbeOption func(*HTTPProbe)

// WithQueryCredential makes the probe append ?param=<secret> to the URL.
// A missing credential is a soft failure: the probe reports down with a
// descriptive cause instead of erroring.
func WithQueryCredential(src secrets.Provider, name, param string) HTTPProbeOption {
	return func(p *HTTPProbe) {
		p.secretsSrc = src
		p.keyName = name
		p.keyParam = param
	}
}

// WithAcceptedStatus overrides which HTTP status codes count as reachable
func WithAcceptedStatus(accept func(int) bool) HTTPProbeOption {
	return func(p *HTTPProbe) { p.acceptCodes = accept }
}

// NewHTTPProbe builds a bounded HTTP reachability probe
func NewHTTPProbe(name, url string, timeout time.Duration, limiter *rate.Limiter, opts ...HTTPProbeOption) *HTTPProbe {
	p := &HTTPProbe{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		timeout: timeout,
		acceptCodes: func(code int) bool {
			return code >= 200 && code < 300
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProbe) Name() string { return p.name }

// Check performs a single GET with no retries; retry policy belongs to
// the orchestration layer, not the probe.
func (p *HTTPProbe) Check(ctx context.Context) Outcome {
	start := time.Now()
	down := func(format string, args ...interface{}) Outcome {
		return Outcome{Probe: p.name, OK: false, Detail: fmt.Sprintf(format, args...), Elapsed: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := p.url
	if p.keyName != "" {
		key, err := p.secretsSrc.Get(ctx, p.keyName)
		if err != nil {
			return down("api key not configured: %s", p.keyName)
		}
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + p.keyParam + "=" + key
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return down("rate limit wait: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return down("bad request: %v", err)
	}
	req.Header.Set("User-Agent", "tradeaudit/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return down("unreachable: %v", err)
	}
	defer resp.Body.Close()

	if !p.acceptCodes(resp.StatusCode) {
		return down("HTTP %d", resp.StatusCode)
	}

	log.Debug().Str("probe", p.name).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("Probe succeeded")

	return Outcome{
		Probe:   p.name,
		OK:      true,
		Detail:  fmt.Sprintf("HTTP %d", resp.StatusCode),
		Elapsed: time.Since(start),
	}
}

// AntiBotTolerant treats bot-wall rejections (403, 429) as reachable:
// the site answered, which is all a reachability probe asks.
func AntiBotTolerant(code int) bool {
	if code >= 200 && code < 300 {
		return true
	}
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// CLIProbe checks that an external command-line tool is installed and
// answers a cheap invocation within the timeout.
type CLIProbe struct {
	name    string
	command string
	args    []string
	timeout time.Duration
}

// NewCLIProbe builds a bounded CLI reachability probe
func NewCLIProbe(name, command string, args []string, timeout time.Duration) *CLIProbe {
	return &CLIProbe{name: name, command: command, args: args, timeout: timeout}
}

func (p *CLIProbe) Name() string { return p.name }

func (p *CLIProbe) Check(ctx context.Context) Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := err.Error()
		if line := firstLine(string(out)); line != "" {
			detail = fmt.Sprintf("%s: %s", err, line)
		}
		return Outcome{Probe: p.name, OK: false, Detail: detail, Elapsed: time.Since(start)}
	}

	detail := firstLine(string(out))
	if detail == "" {
		detail = "exit 0"
	}
	return Outcome{Probe: p.name, OK: true, Detail: detail, Elapsed: time.Since(start)}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return strings.TrimSpace(s)
}
