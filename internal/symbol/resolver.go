package symbol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Resolver turns a symbol into a human readable function name.
type Resolver interface {
	Resolve(sym Symbol) (string, error)
}

// Name resolves sym with r. Resolution failures degrade to an empty string.
func Name(r Resolver, sym Symbol) string {
	if sym == nil {
		return ""
	}
	if r == nil {
		return sym.String()
	}
	name, err := r.Resolve(sym)
	if err != nil {
		return ""
	}
	return name
}

// RawResolver renders every symbol as-is.
type RawResolver struct{}

// Resolve implements Resolver.
func (RawResolver) Resolve(sym Symbol) (string, error) {
	return sym.String(), nil
}

// MapResolver maps function addresses to names. Named symbols resolve to
// themselves; unknown addresses fall back to their hex form.
type MapResolver struct {
	mu    sync.RWMutex
	names map[uint64]string
}

// NewMapResolver creates a resolver over the given address table.
func NewMapResolver(names map[uint64]string) *MapResolver {
	m := &MapResolver{names: make(map[uint64]string, len(names))}
	for addr, name := range names {
		m.names[addr] = name
	}
	return m
}

// Add registers a name for addr.
func (m *MapResolver) Add(addr uint64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[addr] = name
}

// Len returns the number of known addresses.
func (m *MapResolver) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}

// Resolve implements Resolver.
func (m *MapResolver) Resolve(sym Symbol) (string, error) {
	switch s := sym.(type) {
	case StringSymbol:
		return string(s), nil
	case AddressSymbol:
		m.mu.RLock()
		name, ok := m.names[uint64(s)]
		m.mu.RUnlock()
		if ok {
			return name, nil
		}
		return s.String(), nil
	default:
		return "", fmt.Errorf("unsupported symbol kind %T", sym)
	}
}

// LoadMapResolver reads an nm-style table: one "<hex address> <name>" pair
// per line. Blank lines and lines starting with # are skipped.
func LoadMapResolver(r io.Reader) (*MapResolver, error) {
	m := NewMapResolver(nil)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected address and name", lineNo)
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.names[addr] = fields[len(fields)-1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
