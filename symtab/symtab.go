package symtab

import "sort"

// Symbol is one entry in the SymbolTable: a name (identified by its
// token.Tokenizer identifier-table id) together with its current
// address and whether it has been declared PUBLIC or EXTRN.
type Symbol struct {
	NameID  int
	Addr    Address
	Public  bool
	Extern  bool
	definedThisPass bool
}

// SymbolTable maps identifier ids to Symbols across the two-pass
// fixpoint loop. It tracks, per Define call, whether the symbol's
// address changed from the prior pass; the driver uses that signal
// to decide whether another pass is needed.
type SymbolTable struct {
	syms       map[int]*Symbol
	anyChanged bool
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{syms: make(map[int]*Symbol)}
}

// Lookup returns the symbol for nameID, or (nil, false) if it has
// never been referenced or defined.
func (t *SymbolTable) Lookup(nameID int) (*Symbol, bool) {
	s, ok := t.syms[nameID]
	return s, ok
}

// Reference ensures a Symbol exists for nameID, creating an Undefined
// placeholder the first time it is used (so a forward reference in
// pass 1 has something to attach an AddressUsage fix-up to).
func (t *SymbolTable) Reference(nameID int) *Symbol {
	s, ok := t.syms[nameID]
	if !ok {
		s = &Symbol{NameID: nameID, Addr: NewUndefined()}
		t.syms[nameID] = s
	}
	return s
}

// DefineResult reports the outcome of a Define call.
type DefineResult struct {
	// Redefined is true when nameID already carried a defined address
	// earlier in this same pass (a genuine multiple-definition error).
	Redefined bool
	// AddressChanged is true when addr differs from the symbol's
	// address at the end of the previous pass. A symbol whose address
	// is unchanged from the prior pass still reports success without
	// setting AddressChanged; the two are deliberately not conflated.
	AddressChanged bool
}

// Define records addr as nameID's address for the current pass.
func (t *SymbolTable) Define(nameID int, addr Address) DefineResult {
	s, ok := t.syms[nameID]
	if !ok {
		s = &Symbol{NameID: nameID}
		t.syms[nameID] = s
	}
	if s.definedThisPass {
		return DefineResult{Redefined: true}
	}
	changed := s.Addr != addr
	s.Addr = addr
	s.definedThisPass = true
	if changed {
		t.anyChanged = true
	}
	return DefineResult{AddressChanged: changed}
}

// AnyChangedThisPass reports whether any Define call since the last
// StartPass changed a symbol's address, the two-pass driver's signal
// that another pass is needed.
func (t *SymbolTable) AnyChangedThisPass() bool { return t.anyChanged }

// MarkPublic records nameID as exported (PUBLIC).
func (t *SymbolTable) MarkPublic(nameID int) {
	t.Reference(nameID).Public = true
}

// MarkExtern records nameID as imported (EXTRN/EXT); its address
// becomes an External address carrying nameID, resolved only by the
// linker.
func (t *SymbolTable) MarkExtern(nameID int) {
	s := t.Reference(nameID)
	s.Extern = true
	s.Addr = NewExternal(nameID, 0)
}

// StartPass clears the definedThisPass bit on every symbol so Define
// can again distinguish "first definition this pass" from
// "redefinition this pass", without losing the address each symbol
// held at the end of the previous pass (needed to compute
// AddressChanged).
func (t *SymbolTable) StartPass() {
	t.anyChanged = false
	for _, s := range t.syms {
		s.definedThisPass = false
	}
}

// Undefined returns the name ids of every symbol still Undefined and
// not declared Extern, i.e. genuinely unresolved references.
func (t *SymbolTable) Undefined() []int {
	var ids []int
	for id, s := range t.syms {
		if !s.Addr.IsDefined() && !s.Extern {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// AllPublic returns the name ids of every symbol marked PUBLIC, for
// the object-file export table. The ids are returned in sorted order
// so that two assembly runs over identical input produce
// byte-identical object files; map iteration order is otherwise
// unspecified.
func (t *SymbolTable) AllPublic() []int {
	var ids []int
	for id, s := range t.syms {
		if s.Public {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// AllExtern returns the name ids of every symbol marked EXTRN/EXT, in
// sorted order (see AllPublic).
func (t *SymbolTable) AllExtern() []int {
	var ids []int
	for id, s := range t.syms {
		if s.Extern {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
