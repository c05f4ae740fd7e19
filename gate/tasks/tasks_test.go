package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/subgate/gate/provider"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type getCall struct {
	locale string
	limit  int
}

// scriptedProvider replays one response per GetTasks call and answers
// CheckTask from a fixed set.
type scriptedProvider struct {
	mu        sync.Mutex
	responses [][]provider.Task
	errs      []error
	calls     []getCall
	completed map[string]bool
	checkErr  map[string]error
	inFlight  int
	maxFlight int
}

func (p *scriptedProvider) GetTasks(_ context.Context, _ int64, locale string, limit int) ([]provider.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, getCall{locale: locale, limit: limit})
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return nil, nil
}

func (p *scriptedProvider) CheckTask(_ context.Context, _ int64, sig string) (bool, error) {
	p.mu.Lock()
	p.inFlight++
	p.maxFlight = max(p.maxFlight, p.inFlight)
	p.mu.Unlock()

	time.Sleep(time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
	if err := p.checkErr[sig]; err != nil {
		return false, err
	}
	return p.completed[sig], nil
}

func tasksOf(sigs ...string) []provider.Task {
	out := make([]provider.Task, len(sigs))
	for i, s := range sigs {
		out[i] = provider.Task{Signature: s}
	}
	return out
}

func sigsOf(ts []provider.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Signature
	}
	return out
}

func noDelay() FetcherOptions { return FetcherOptions{RetryDelay: -1} }

func TestFetchUniqueStopsWhenFull(t *testing.T) {
	p := &scriptedProvider{responses: [][]provider.Task{tasksOf("a", "b", "c")}}
	f := NewFetcher(p, noDelay())

	got := f.FetchUnique(context.Background(), 1, "de", nil, 2)
	assert.Equal(t, []string{"a", "b"}, sigsOf(got))
	require.Len(t, p.calls, 1)
	assert.Equal(t, getCall{locale: "de", limit: 7}, p.calls[0])
}

func TestFetchUniqueDedupAcrossAttempts(t *testing.T) {
	p := &scriptedProvider{responses: [][]provider.Task{
		tasksOf("a", "x", "a"),
		tasksOf("", "b", "a"),
		tasksOf("c"),
	}}
	f := NewFetcher(p, noDelay())

	got := f.FetchUnique(context.Background(), 1, "ru", map[string]struct{}{"x": {}}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, sigsOf(got))
	assert.Len(t, p.calls, 3)
}

func TestFetchUniqueShortAfterMaxAttempts(t *testing.T) {
	p := &scriptedProvider{responses: [][]provider.Task{tasksOf("a"), tasksOf("a"), tasksOf("a"), tasksOf("a"), tasksOf("b")}}
	f := NewFetcher(p, noDelay())

	got := f.FetchUnique(context.Background(), 1, "en", nil, 2)
	assert.Equal(t, []string{"a"}, sigsOf(got))
	assert.Len(t, p.calls, DefaultMaxAttempts)
}

func TestFetchUniqueLocaleFallback(t *testing.T) {
	p := &scriptedProvider{}
	f := NewFetcher(p, FetcherOptions{MaxAttempts: 5, RetryDelay: -1})
	_ = f.FetchUnique(context.Background(), 1, "de-AT", nil, 1)

	var locales []string
	for _, c := range p.calls {
		locales = append(locales, c.locale)
	}
	assert.Equal(t, []string{"de", "ru", "en", "", ""}, locales)
}

func TestFetchUniqueFailuresCountAsEmpty(t *testing.T) {
	boom := errors.New("boom")
	p := &scriptedProvider{
		errs:      []error{boom, boom},
		responses: [][]provider.Task{nil, nil, tasksOf("a", "b")},
	}
	f := NewFetcher(p, FetcherOptions{RetryDelay: time.Millisecond})

	got := f.FetchUnique(context.Background(), 1, "ru", nil, 2)
	assert.Equal(t, []string{"a", "b"}, sigsOf(got))
	assert.Len(t, p.calls, 3)
}

func TestFetchUniqueHonoursCancel(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("down")}}
	f := NewFetcher(p, FetcherOptions{RetryDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	got := f.FetchUnique(ctx, 1, "ru", nil, 2)
	assert.Empty(t, got)
	assert.Len(t, p.calls, 1)
}

func TestFetchUniqueZeroLimit(t *testing.T) {
	p := &scriptedProvider{}
	assert.Nil(t, NewFetcher(p, noDelay()).FetchUnique(context.Background(), 1, "", nil, 0))
	assert.Empty(t, p.calls)
}

func TestVerifyCountsCompleted(t *testing.T) {
	p := &scriptedProvider{
		completed: map[string]bool{"a": true, "c": true},
		checkErr:  map[string]error{"d": errors.New("timeout")},
	}
	v := NewVerifier(p, 2)

	assert.Equal(t, 2, v.Verify(context.Background(), 1, []string{"a", "b", "c", "d"}))
	assert.LessOrEqual(t, p.maxFlight, 2)
	assert.Zero(t, v.Verify(context.Background(), 1, nil))
}

func TestVerifyDefaultConcurrency(t *testing.T) {
	v := NewVerifier(&scriptedProvider{}, 0)
	assert.Equal(t, DefaultVerifyConcurrency, v.concurrency)
}

func TestLocaleChain(t *testing.T) {
	assert.Equal(t, []string{"ru", "en", ""}, LocaleChain(""))
	assert.Equal(t, []string{"ru", "en", ""}, LocaleChain("ru"))
	assert.Equal(t, []string{"en", "ru", ""}, LocaleChain("en-US"))
	assert.Equal(t, []string{"pt", "ru", "en", ""}, LocaleChain("pt_BR"))
}

func TestNormalizeLocale(t *testing.T) {
	assert.Equal(t, "uk", NormalizeLocale("uk"))
	assert.Equal(t, "en", NormalizeLocale("EN_gb"))
	assert.Empty(t, NormalizeLocale(""))
	assert.Empty(t, NormalizeLocale("!!"))
}

func TestFetchUniqueProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sigGen := gen.IntRange(0, 12).Map(func(n int) string { return fmt.Sprintf("s%d", n) })

	properties.Property("results are distinct, fresh and bounded by limit", prop.ForAll(
		func(pages [][]string, exclude []string, limit int) bool {
			p := &scriptedProvider{}
			for _, page := range pages {
				p.responses = append(p.responses, tasksOf(page...))
			}
			ex := make(map[string]struct{}, len(exclude))
			for _, s := range exclude {
				ex[s] = struct{}{}
			}

			got := NewFetcher(p, noDelay()).FetchUnique(context.Background(), 1, "ru", ex, limit)
			if len(got) > limit || len(p.calls) > DefaultMaxAttempts {
				return false
			}
			seen := map[string]struct{}{}
			for _, t := range got {
				if _, dup := seen[t.Signature]; dup {
					return false
				}
				if _, bad := ex[t.Signature]; bad {
					return false
				}
				seen[t.Signature] = struct{}{}
			}
			return true
		},
		gen.SliceOf(gen.SliceOf(sigGen)),
		gen.SliceOf(sigGen),
		gen.IntRange(1, 6),
	))

	properties.Property("verified count never exceeds batch size", prop.ForAll(
		func(batch []string, done []string) bool {
			completed := map[string]bool{}
			for _, s := range done {
				completed[s] = true
			}
			p := &scriptedProvider{completed: completed}
			n := NewVerifier(p, 3).Verify(context.Background(), 1, batch)
			return n >= 0 && n <= len(batch)
		},
		gen.SliceOf(sigGen),
		gen.SliceOf(sigGen),
	))

	properties.TestingRun(t)
}
