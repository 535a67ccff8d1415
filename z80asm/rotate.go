package z80

import "github.com/lookbusy1344/z80asm/diag"

// rotateShiftBase maps RLC/RL/RRC/RR/SLA/SRA/SRL to the "00 ooo rrr"
// base byte of the CB-prefixed encoding.
var rotateShiftBase = map[string]byte{
	"RLC": 0x00, "RL": 0x10, "RRC": 0x08, "RR": 0x18,
	"SLA": 0x20, "SRA": 0x28, "SRL": 0x38,
}

// emitRotateShift handles the CB-prefixed rotate/shift family. Indexed
// forms place the displacement byte between CB and the opcode, per Z80
// encoding: prefix, CB, displacement, opcode.
func (e *Emitter) emitRotateShift(mnemonic string) {
	op := parseOperand(e.tr, e.ev)
	base := rotateShiftBase[mnemonic]
	switch op.Kind {
	case OpReg8:
		e.byte(0xCB)
		e.byte(base | e.reg8(op.Name))
	case OpMemHL:
		e.byte(0xCB)
		e.byte(base | 0x06)
	case OpMemIndexed:
		e.indexedPrefix(op.Name)
		e.byte(0xCB)
		e.byte(e.dispByte(op.Disp))
		e.byte(base | 0x06)
	default:
		e.errf("invalid operand for %s", mnemonic)
	}
}

// emitBitOp handles BIT/SET/RES b, operand: b must be a constant bit
// index in [0,8).
func (e *Emitter) emitBitOp(mnemonic string) {
	bitOperand := parseOperand(e.tr, e.ev)
	if bitOperand.Kind != OpExpr || bitOperand.Addr.Value < 0 || bitOperand.Addr.Value >= 8 {
		e.errKind(diag.ErrOutOfRange, "%s bit index %d must be a constant in [0,8)", mnemonic, bitOperand.Addr.Value)
		return
	}
	bit := byte(bitOperand.Addr.Value)

	if !e.tr.AcceptOperator(',') {
		e.errf("expected ','")
		return
	}
	op := parseOperand(e.tr, e.ev)

	var base byte
	switch mnemonic {
	case "BIT":
		base = 0x40
	case "SET":
		base = 0xC0
	case "RES":
		base = 0x80
	}

	switch op.Kind {
	case OpReg8:
		e.byte(0xCB)
		e.byte(base | bit<<3 | e.reg8(op.Name))
	case OpMemHL:
		e.byte(0xCB)
		e.byte(base | bit<<3 | 0x06)
	case OpMemIndexed:
		e.indexedPrefix(op.Name)
		e.byte(0xCB)
		e.byte(e.dispByte(op.Disp))
		e.byte(base | bit<<3 | 0x06)
	default:
		e.errf("invalid operand for %s", mnemonic)
	}
}
