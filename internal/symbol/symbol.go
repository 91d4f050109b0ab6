// Package symbol models the polymorphic function identity carried by call
// stack intervals and the resolvers that turn it into display names.
package symbol

import (
	"fmt"

	"github.com/trace-callgraph/pkg/model"
)

// Symbol identifies the function a call executes.
type Symbol interface {
	// String renders the raw symbol.
	String() string
	// Key is unique across symbol kinds and is used to merge call sites.
	Key() string
}

// StringSymbol is a function already known by name.
type StringSymbol string

func (s StringSymbol) String() string { return string(s) }

// Key implements Symbol.
func (s StringSymbol) Key() string { return "s:" + string(s) }

// AddressSymbol is a numeric function address awaiting resolution.
type AddressSymbol uint64

func (a AddressSymbol) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Key implements Symbol.
func (a AddressSymbol) Key() string { return fmt.Sprintf("a:%x", uint64(a)) }

// ValueSymbol wraps any other resolver-defined value.
type ValueSymbol struct {
	Value any
}

func (v ValueSymbol) String() string { return fmt.Sprint(v.Value) }

// Key implements Symbol.
func (v ValueSymbol) Key() string { return fmt.Sprintf("v:%T:%v", v.Value, v.Value) }

// New picks the symbol variant matching a raw interval value.
func New(raw any) Symbol {
	switch v := raw.(type) {
	case Symbol:
		return v
	case string:
		return StringSymbol(v)
	}
	if n, ok := model.IntegerValue(raw); ok {
		return AddressSymbol(uint64(n))
	}
	return ValueSymbol{Value: raw}
}
