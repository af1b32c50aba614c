package stream

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
)

func fastPreset() Preset {
	return Preset{
		ThinkingDelay:    0,
		BaseDelay:        time.Millisecond,
		MinDelay:         0,
		MaxDelay:         2 * time.Millisecond,
		PunctuationPause: 0,
		ParagraphPause:   0,
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"two words",
		"  leading space and trailing  ",
		"line one\nline two\n\nparagraph",
		"before\n| a | b |\n| --- | --- |\n| 1 | 2 |\nafter",
		"tabs\tand  doubles   spaces",
	}
	for _, in := range inputs {
		got := strings.Join(Tokenize(in), "")
		if got != in {
			t.Fatalf("tokenize round trip mismatch:\n in: %q\nout: %q", in, got)
		}
	}
}

func TestTokenizeTableRowIsAtomic(t *testing.T) {
	text := "intro line\n| Account | Amount |\n| --- | --- |\n| Cash | 100.00 |\nclosing line"
	rows := 0
	for _, tok := range Tokenize(text) {
		if IsTableRow(tok) {
			rows++
			if strings.Count(tok, "|") < 2 {
				t.Fatalf("table row token split apart: %q", tok)
			}
		}
	}
	if rows != 3 {
		t.Fatalf("expected 3 atomic table-row tokens, got %d", rows)
	}
}

func TestStreamDeliversBufferProgressively(t *testing.T) {
	text := "First sentence. Second one follows.\n\nNew paragraph here."

	var mu sync.Mutex
	var updates []string
	var thinkingAt, startAt int
	completed := make(chan string, 1)

	s := StartWithRand(text, fastPreset(), Hooks{
		OnThinking: func() {
			mu.Lock()
			thinkingAt = len(updates)
			mu.Unlock()
		},
		OnStart: func() {
			mu.Lock()
			startAt = len(updates)
			mu.Unlock()
		},
		OnUpdate: func(buffer string) {
			mu.Lock()
			updates = append(updates, buffer)
			mu.Unlock()
		},
		OnComplete: func(full string) { completed <- full },
	}, rand.New(rand.NewSource(1)))

	select {
	case full := <-completed:
		if full != text {
			t.Fatalf("completion text mismatch: %q", full)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not complete")
	}
	<-s.Done()

	mu.Lock()
	defer mu.Unlock()
	if thinkingAt != 0 || startAt != 0 {
		t.Fatalf("thinking/start hooks fired after updates began: thinking=%d start=%d", thinkingAt, startAt)
	}
	if len(updates) == 0 {
		t.Fatal("no updates received")
	}
	if updates[len(updates)-1] != text {
		t.Fatalf("last update is not the full text: %q", updates[len(updates)-1])
	}
	// each buffer extends the previous one
	for i := 1; i < len(updates); i++ {
		if !strings.HasPrefix(updates[i], updates[i-1]) {
			t.Fatalf("update %d does not extend update %d", i, i-1)
		}
	}
}

func TestStopPreventsFurtherCallbacks(t *testing.T) {
	text := strings.Repeat("word ", 200)
	p := fastPreset()
	p.BaseDelay = 3 * time.Millisecond
	p.MinDelay = 2 * time.Millisecond
	p.MaxDelay = 5 * time.Millisecond

	var mu sync.Mutex
	updates := 0
	completeFired := false

	s := StartWithRand(text, p, Hooks{
		OnUpdate: func(string) {
			mu.Lock()
			updates++
			mu.Unlock()
		},
		OnComplete: func(string) {
			mu.Lock()
			completeFired = true
			mu.Unlock()
		},
	}, rand.New(rand.NewSource(2)))

	// wait for a few tokens, then cancel mid-stream
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := updates
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream never produced updates")
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()

	mu.Lock()
	atStop := updates
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if updates != atStop {
		t.Fatalf("updates fired after Stop: %d -> %d", atStop, updates)
	}
	if completeFired {
		t.Fatal("completion callback fired after Stop")
	}
}

func TestStopBeforeFirstTokenSuppressesEverything(t *testing.T) {
	p := fastPreset()
	p.ThinkingDelay = 50 * time.Millisecond

	var mu sync.Mutex
	startFired, updateFired := false, false

	s := StartWithRand("some text here", p, Hooks{
		OnStart: func() {
			mu.Lock()
			startFired = true
			mu.Unlock()
		},
		OnUpdate: func(string) {
			mu.Lock()
			updateFired = true
			mu.Unlock()
		},
	}, rand.New(rand.NewSource(3)))

	s.Stop()
	<-s.Done()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if startFired || updateFired {
		t.Fatalf("callbacks fired after Stop during thinking: start=%v update=%v", startFired, updateFired)
	}
}

func TestDoneClosesOnCompletion(t *testing.T) {
	s := StartWithRand("a b c", fastPreset(), Hooks{}, rand.New(rand.NewSource(4)))
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed after completion")
	}
}
