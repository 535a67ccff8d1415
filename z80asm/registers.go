// Package z80 is the Z80 instruction emitter: register tables,
// per-family operand recognition, and byte encoding for the variable
// 1-4 byte instruction forms.
package z80

// SingleRegisters is the encoding-bit-indexed table of 8-bit registers
// used throughout the instruction set; slot 6 is reserved for the
// "(HL)" memory operand rather than a register.
var SingleRegisters = [8]string{"B", "C", "D", "E", "H", "L", "", "A"}

// RegisterPairs is the encoding-bit-indexed table of the four
// "rp"-addressed register pairs.
var RegisterPairs = [4]string{"BC", "DE", "HL", "SP"}

// IndexRegisterPrefixes maps IX/IY to their opcode prefix byte.
var IndexRegisterPrefixes = map[string]byte{"IX": 0xDD, "IY": 0xFD}

// Conditions is the encoding-bit-indexed table of the eight JP/CALL/RET
// condition codes.
var Conditions = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// ShortJumpConditions is the subset valid for JR/DJNZ's 2-byte form.
var ShortJumpConditions = map[string]bool{"NZ": true, "Z": true, "NC": true, "C": true}

func regIndex(name string) int {
	for i, r := range SingleRegisters {
		if r == name {
			return i
		}
	}
	return -1
}

func pairIndex(name string) int {
	for i, r := range RegisterPairs {
		if r == name {
			return i
		}
	}
	return -1
}

func condIndex(name string) int {
	for i, c := range Conditions {
		if c == name {
			return i
		}
	}
	return -1
}
