// Package statistics summarizes built call trees.
package statistics

import (
	"sort"
	"strings"

	"github.com/trace-callgraph/internal/callgraph"
	"github.com/trace-callgraph/internal/symbol"
)

// TopFuncsCalculator ranks functions by self time.
type TopFuncsCalculator struct {
	topN     int
	resolver symbol.Resolver
}

// TopFuncsOption configures the TopFuncsCalculator.
type TopFuncsOption func(*TopFuncsCalculator)

// WithTopN sets the number of top functions to return.
func WithTopN(n int) TopFuncsOption {
	return func(c *TopFuncsCalculator) {
		c.topN = n
	}
}

// WithResolver names functions with r instead of their raw symbol.
func WithResolver(r symbol.Resolver) TopFuncsOption {
	return func(c *TopFuncsCalculator) {
		c.resolver = r
	}
}

// NewTopFuncsCalculator creates a new TopFuncsCalculator.
func NewTopFuncsCalculator(opts ...TopFuncsOption) *TopFuncsCalculator {
	c := &TopFuncsCalculator{
		topN: 15,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopFuncEntry represents a function with its statistics. TotalTime counts
// recursive invocations once.
type TopFuncEntry struct {
	Name        string  `json:"name"`
	SelfTime    int64   `json:"self"`
	TotalTime   int64   `json:"total"`
	Calls       int64   `json:"calls"`
	SelfPercent float64 `json:"selfPercent"`
}

// TopFuncsResult holds the calculation result.
type TopFuncsResult struct {
	TopFuncs       []TopFuncEntry
	TotalTime      int64
	FuncCallstacks map[string]map[string]int64
}

type funcAccumulator struct {
	self, total, calls int64
}

// Calculate ranks the functions found in every thread of res.
func (c *TopFuncsCalculator) Calculate(res *callgraph.Result) *TopFuncsResult {
	result := &TopFuncsResult{
		TopFuncs:       make([]TopFuncEntry, 0),
		FuncCallstacks: make(map[string]map[string]int64),
	}
	if res == nil {
		return result
	}

	funcs := make(map[string]*funcAccumulator)
	for _, thread := range res.ThreadNodes() {
		result.TotalTime += thread.Duration
		for _, site := range thread.Children() {
			c.walk(site, nil, make(map[string]bool), funcs, result.FuncCallstacks)
		}
	}

	entries := make([]TopFuncEntry, 0, len(funcs))
	for name, acc := range funcs {
		pct := 0.0
		if result.TotalTime > 0 {
			pct = float64(acc.self) / float64(result.TotalTime) * 100
		}
		entries = append(entries, TopFuncEntry{
			Name:        name,
			SelfTime:    acc.self,
			TotalTime:   acc.total,
			Calls:       acc.calls,
			SelfPercent: pct,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SelfTime != entries[j].SelfTime {
			return entries[i].SelfTime > entries[j].SelfTime
		}
		return entries[i].Name < entries[j].Name
	})

	topN := c.topN
	if topN <= 0 || topN > len(entries) {
		topN = len(entries)
	}
	result.TopFuncs = entries[:topN]

	return result
}

func (c *TopFuncsCalculator) walk(site *callgraph.AggregatedCallSite, stack []string, onStack map[string]bool,
	funcs map[string]*funcAccumulator, callstacks map[string]map[string]int64) {
	name := c.name(site.Symbol)

	acc, ok := funcs[name]
	if !ok {
		acc = &funcAccumulator{}
		funcs[name] = acc
	}
	acc.self += site.SelfTime
	acc.calls += site.Calls
	if !onStack[name] {
		acc.total += site.Duration
	}

	stack = append(stack, name)
	if site.SelfTime > 0 {
		if _, ok := callstacks[name]; !ok {
			callstacks[name] = make(map[string]int64)
		}
		callstacks[name][strings.Join(stack, ";")] += site.SelfTime
	}

	wasOnStack := onStack[name]
	onStack[name] = true
	for _, child := range site.Children() {
		c.walk(child, stack, onStack, funcs, callstacks)
	}
	onStack[name] = wasOnStack
}

func (c *TopFuncsCalculator) name(sym symbol.Symbol) string {
	if name := symbol.Name(c.resolver, sym); name != "" {
		return name
	}
	return sym.String()
}

// CallStackInfo lists the heaviest call paths ending in one function.
type CallStackInfo struct {
	FunctionName string   `json:"function"`
	CallStacks   []string `json:"callstacks"`
	Count        int      `json:"count"`
}

// GetTopFuncsCallstacks returns call stack information for top functions.
func (r *TopFuncsResult) GetTopFuncsCallstacks(maxCallstacks int) map[string]*CallStackInfo {
	result := make(map[string]*CallStackInfo)

	for _, entry := range r.TopFuncs {
		callstacks, ok := r.FuncCallstacks[entry.Name]
		if !ok {
			continue
		}

		type csEntry struct {
			stack string
			time  int64
		}
		csEntries := make([]csEntry, 0, len(callstacks))
		for stack, time := range callstacks {
			csEntries = append(csEntries, csEntry{stack: stack, time: time})
		}

		sort.Slice(csEntries, func(i, j int) bool {
			if csEntries[i].time != csEntries[j].time {
				return csEntries[i].time > csEntries[j].time
			}
			return csEntries[i].stack < csEntries[j].stack
		})

		topStacks := make([]string, 0, maxCallstacks)
		for i := 0; i < len(csEntries) && i < maxCallstacks; i++ {
			topStacks = append(topStacks, csEntries[i].stack)
		}

		result[entry.Name] = &CallStackInfo{
			FunctionName: entry.Name,
			CallStacks:   topStacks,
			Count:        len(callstacks),
		}
	}

	return result
}
