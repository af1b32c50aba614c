// Package stream simulates token-by-token AI text generation: a thinking
// delay, variable inter-token pacing and an explicit cancellation point.
// The engine itself is scripted and deterministic under a seeded RNG;
// which text gets streamed is the caller's business.
package stream

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Preset is a pacing profile. Two are used in practice: check results
// stream fast, findings stream at reading pace.
type Preset struct {
	ThinkingDelay    time.Duration
	BaseDelay        time.Duration
	MinDelay         time.Duration
	MaxDelay         time.Duration
	PunctuationPause time.Duration
	ParagraphPause   time.Duration
}

func CheckResultPreset() Preset {
	return Preset{
		ThinkingDelay:    1200 * time.Millisecond,
		BaseDelay:        28 * time.Millisecond,
		MinDelay:         8 * time.Millisecond,
		MaxDelay:         120 * time.Millisecond,
		PunctuationPause: 90 * time.Millisecond,
		ParagraphPause:   180 * time.Millisecond,
	}
}

func FindingsPreset() Preset {
	return Preset{
		ThinkingDelay:    2000 * time.Millisecond,
		BaseDelay:        45 * time.Millisecond,
		MinDelay:         12 * time.Millisecond,
		MaxDelay:         200 * time.Millisecond,
		PunctuationPause: 150 * time.Millisecond,
		ParagraphPause:   320 * time.Millisecond,
	}
}

// Hooks are the stream callbacks. OnThinking fires as soon as the session
// starts, OnStart right before the first token, OnUpdate after every
// token with the buffer so far, OnComplete once with the full text.
// After Stop returns, no hook fires again.
type Hooks struct {
	OnThinking func()
	OnStart    func()
	OnUpdate   func(buffer string)
	OnComplete func(full string)
}

// Session is one in-flight stream. It is not reusable.
type Session struct {
	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// Start begins streaming text through the hooks and returns immediately.
func Start(text string, p Preset, h Hooks) *Session {
	return start(text, p, h, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// StartWithRand is Start with a caller-supplied RNG for deterministic
// pacing in tests.
func StartWithRand(text string, p Preset, h Hooks, rng *rand.Rand) *Session {
	return start(text, p, h, rng)
}

func start(text string, p Preset, h Hooks, rng *rand.Rand) *Session {
	s := &Session{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	tokens := Tokenize(text)

	// The thinking hook fires before generation begins, not after the
	// thinking delay.
	s.invoke(h.OnThinking)

	go func() {
		defer close(s.done)
		if !s.wait(p.ThinkingDelay) {
			return
		}
		if !s.invoke(h.OnStart) {
			return
		}
		var buf strings.Builder
		prev := ""
		for i, tok := range tokens {
			if !s.wait(tokenDelay(p, rng, i, len(tokens), tok, prev)) {
				return
			}
			buf.WriteString(tok)
			out := buf.String()
			if !s.invoke(func() {
				if h.OnUpdate != nil {
					h.OnUpdate(out)
				}
			}) {
				return
			}
			prev = tok
		}
		s.invoke(func() {
			if h.OnComplete != nil {
				h.OnComplete(buf.String())
			}
		})
	}()
	return s
}

// Stop cancels the session. It blocks until any in-flight hook returns,
// so once Stop returns no hook will fire. Calling Stop from inside a
// hook deadlocks; hooks must hand cancellation off instead.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
}

// Done is closed when the session finishes or is stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// wait sleeps for d unless the session is stopped first.
func (s *Session) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.stopCh:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.stopCh:
		return false
	case <-t.C:
		return true
	}
}

// invoke runs fn under the session lock so it is mutually exclusive with
// Stop. Returns false without calling fn when already stopped.
func (s *Session) invoke(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

var tableRowRe = regexp.MustCompile(`^\s*\|.*\|\s*$`)

// IsTableRow reports whether the token is a whole markdown table row.
// Table rows stream as one atomic token so tabular content does not
// render choppy.
func IsTableRow(tok string) bool {
	return tableRowRe.MatchString(strings.TrimSuffix(tok, "\n"))
}

// Tokenize splits text into streamable tokens preserving all whitespace:
// concatenating the tokens reproduces the input exactly. Regular tokens
// are a word plus its trailing whitespace; a line shaped like a table
// row is emitted whole.
func Tokenize(text string) []string {
	var tokens []string
	for _, line := range splitAfterNewlines(text) {
		if IsTableRow(line) {
			tokens = append(tokens, line)
			continue
		}
		tokens = append(tokens, splitWords(line)...)
	}
	return tokens
}

func splitAfterNewlines(text string) []string {
	var lines []string
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

func splitWords(line string) []string {
	var tokens []string
	i := 0
	for i < len(line) {
		start := i
		// leading whitespace run forms its own token
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i > start {
			tokens = append(tokens, line[start:i])
			continue
		}
		// word plus its trailing whitespace
		for i < len(line) && !isSpace(line[i]) {
			i++
		}
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		tokens = append(tokens, line[start:i])
	}
	return tokens
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// tokenDelay computes the pause before emitting token i. The stream
// starts slow and accelerates (1.5x down to 0.6x of base), jitters
// +-30%, pauses extra after sentence enders and paragraph breaks, and
// emits table rows at 0.3x.
func tokenDelay(p Preset, rng *rand.Rand, i, n int, tok, prev string) time.Duration {
	progress := 0.0
	if n > 1 {
		progress = float64(i) / float64(n-1)
	}
	accel := 1.5 + (0.6-1.5)*progress
	jitter := 0.7 + rng.Float64()*0.6
	d := time.Duration(float64(p.BaseDelay) * jitter * accel)

	if endsSentence(prev) {
		d += p.PunctuationPause
	}
	if strings.Contains(prev, "\n\n") || strings.HasSuffix(prev, "\n") && strings.TrimSpace(prev) == "" {
		d += p.ParagraphPause
	}

	if d < p.MinDelay {
		d = p.MinDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if IsTableRow(tok) {
		d = time.Duration(float64(d) * 0.3)
	}
	return d
}

func endsSentence(tok string) bool {
	t := strings.TrimRight(tok, " \t\r\n")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
