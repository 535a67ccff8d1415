package token

// keywordList enumerates every reserved word the tokenizer recognizes,
// in a fixed, stable order. Ids are assigned by position in this list
// starting at FirstKeywordID, so the same source always interns the
// same keyword to the same id.
//
// The table is deliberately flat: the parser/emitter, not the
// tokenizer, decides whether "C" means the 8-bit register or the
// carry condition. Register-vs-condition disambiguation belongs to
// the consumer of the token, not the lexer.
var keywordList = []string{
	// Registers and register pairs.
	"A", "B", "C", "D", "E", "H", "L", "I", "R",
	"IX", "IY", "SP", "AF", "AF'", "BC", "DE", "HL",

	// Condition codes (NZ,Z,NC,C,PO,PE,P,M). C overlaps with the
	// register table above; same token id either way.
	"NZ", "Z", "NC", "PO", "PE", "P", "M",

	// No-operand instruction family.
	"LDI", "LDIR", "LDD", "LDDR", "EXX", "RLCA", "RLA", "RRCA", "RRA",
	"CPL", "NEG", "CCF", "SCF", "CPI", "CPIR", "CPD", "CPDR",
	"RETI", "RETN", "NOP", "HALT", "DI", "EI",
	"INI", "INIR", "IND", "INDR", "OUTI", "OUTIR", "OUTD", "OUTDR",
	"DAA", "RLD", "RRD",

	// Remaining instruction mnemonics.
	"LD", "EX", "PUSH", "POP",
	"RLC", "RL", "RRC", "RR", "SLA", "SRA", "SRL",
	"SUB", "AND", "OR", "XOR", "CP",
	"ADD", "ADC", "SBC", "INC", "DEC",
	"BIT", "SET", "RES",
	"JP", "JR", "DJNZ", "CALL", "RET", "RST",
	"IM", "IN", "OUT",

	// Directives.
	"INCLUDE", "CSEG", "DSEG", "PUBLIC", "EXTRN", "EXT",
	"DEFB", "DB", "DEFW", "DW", "DEFS", "DS", "EQU",

	// Structured-flow keywords.
	"IF", "ELSE", "ELSEIF", "ENDIF", "DO", "WHILE", "WEND", "DWNZ",

	// Expression operators spelled as words.
	"OR", "XOR", "AND", "SHL", "SHR", "MOD", "NOT", "LOW", "HIGH",
}

// FirstKeywordID is the first id assigned to a reserved word. Keeping
// it above ASCII's printable range lets a ReservedWord token's Value
// double as a literal operator byte when it is below 128.
const FirstKeywordID = 128

var (
	keywordIDs  = make(map[string]int, len(keywordList))
	keywordName = make(map[int]string, len(keywordList))
)

func init() {
	seen := make(map[string]bool, len(keywordList))
	nextID := FirstKeywordID
	for _, kw := range keywordList {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		keywordIDs[kw] = nextID
		keywordName[nextID] = kw
		nextID++
	}
}

// LookupKeyword returns the keyword id for an already upper-cased
// word, or ok=false if it is not a reserved word.
func LookupKeyword(upper string) (int, bool) {
	id, ok := keywordIDs[upper]
	return id, ok
}

// KeywordName reverses LookupKeyword.
func KeywordName(id int) (string, bool) {
	name, ok := keywordName[id]
	return name, ok
}
