package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTableDefineAndLookup(t *testing.T) {
	st := NewSymbolTable()
	res := st.Define(1, NewConst(42))
	assert.False(t, res.Redefined)

	sym, ok := st.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, NewConst(42), sym.Addr)
}

func TestSymbolTableRedefinitionWithinPassIsError(t *testing.T) {
	st := NewSymbolTable()
	st.StartPass()
	st.Define(1, NewConst(1))
	res := st.Define(1, NewConst(2))
	assert.True(t, res.Redefined)
}

func TestSymbolTableRedefinitionAcrossPassesTracksAddressChange(t *testing.T) {
	st := NewSymbolTable()
	st.StartPass()
	st.Define(1, NewSegment(Code, 10))
	assert.True(t, st.AnyChangedThisPass())

	st.StartPass()
	res := st.Define(1, NewSegment(Code, 20))
	assert.False(t, res.Redefined)
	assert.True(t, res.AddressChanged)
	assert.True(t, st.AnyChangedThisPass())
}

func TestSymbolTableUnchangedAddressAcrossPassesIsNotFlagged(t *testing.T) {
	st := NewSymbolTable()
	st.StartPass()
	st.Define(1, NewSegment(Code, 10))

	st.StartPass()
	res := st.Define(1, NewSegment(Code, 10))
	assert.False(t, res.Redefined)
	assert.False(t, res.AddressChanged)
	assert.False(t, st.AnyChangedThisPass())
}

func TestSymbolTableReferenceCreatesUndefinedPlaceholder(t *testing.T) {
	st := NewSymbolTable()
	sym := st.Reference(99)
	assert.False(t, sym.Addr.IsDefined())

	// A later Define on the same id must reuse, not replace, the entry.
	st.Define(99, NewConst(7))
	sym2, _ := st.Lookup(99)
	assert.Equal(t, sym, sym2)
	assert.Equal(t, NewConst(7), sym2.Addr)
}

func TestSymbolTablePublicAndExternLists(t *testing.T) {
	st := NewSymbolTable()
	st.MarkPublic(1)
	st.MarkExtern(2)
	st.Define(3, NewConst(0))

	assert.ElementsMatch(t, []int{1}, st.AllPublic())
	assert.ElementsMatch(t, []int{2}, st.AllExtern())
}

func TestSymbolTableExternAddressIsExternal(t *testing.T) {
	st := NewSymbolTable()
	st.MarkExtern(5)
	sym, ok := st.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, ExternalAddr, sym.Addr.Tag)
	assert.Equal(t, 5, sym.Addr.ExternID)
}

func TestSymbolTableUndefinedExcludesExtern(t *testing.T) {
	st := NewSymbolTable()
	st.Reference(1) // referenced, never defined
	st.MarkExtern(2)

	undef := st.Undefined()
	assert.ElementsMatch(t, []int{1}, undef)
}

func TestSymbolTableStartPassResetsDefinedThisPassOnly(t *testing.T) {
	st := NewSymbolTable()
	st.StartPass()
	st.Define(1, NewConst(1))
	// Same pass: redefining is an error.
	assert.True(t, st.Define(1, NewConst(2)).Redefined)

	st.StartPass()
	// New pass: no longer flagged as redefined, but address change is
	// tracked.
	res := st.Define(1, NewConst(2))
	assert.False(t, res.Redefined)
	assert.True(t, res.AddressChanged)
}
