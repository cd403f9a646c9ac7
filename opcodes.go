package pegc

import "fmt"

// Opcode is an instruction of the parser stack machine.  Opcodes and
// their operands share the same flat []int of a rule's bytecode.
//
// The machine has a value stack, a current position within the input
// and a saved position used by actions.  Conditional instructions are
// followed by the length of their `then` and `else` blocks, which come
// right after the instruction.
type Opcode int

const (
	// Stack manipulation
	OpPushUndefined   Opcode = 1  // PUSH_UNDEFINED
	OpPushNull        Opcode = 2  // PUSH_NULL
	OpPushFailed      Opcode = 3  // PUSH_FAILED
	OpPushEmptyArray  Opcode = 4  // PUSH_EMPTY_ARRAY
	OpPushCurrPos     Opcode = 5  // PUSH_CURR_POS
	OpPop             Opcode = 6  // POP
	OpPopCurrPos      Opcode = 7  // POP_CURR_POS: position = pop
	OpPopN            Opcode = 8  // POP_N n
	OpNip             Opcode = 9  // NIP: drop the value under the top
	OpAppend          Opcode = 10 // APPEND: pop a value into the array under it
	OpWrap            Opcode = 11 // WRAP n: pop n values into an array
	OpText            Opcode = 12 // TEXT: replace the position on top with the text since it
	OpPushEmptyString Opcode = 35 // PUSH_EMPTY_STRING
	OpPluck           Opcode = 36 // PLUCK n, k, p1..pk: pop n values, push the picked ones

	// Conditions and loops
	OpIf            Opcode = 13 // IF t, f
	OpIfError       Opcode = 14 // IF_ERROR t, f
	OpIfNotError    Opcode = 15 // IF_NOT_ERROR t, f
	OpWhileNotError Opcode = 16 // WHILE_NOT_ERROR b
	OpIfLt          Opcode = 30 // IF_LT min, t, f: length of the array on top < min
	OpIfGe          Opcode = 31 // IF_GE max, t, f: length of the array on top >= max
	OpIfLtDynamic   Opcode = 32 // IF_LT_DYNAMIC sp, t, f: same as IF_LT, bound read from the stack
	OpIfGeDynamic   Opcode = 33 // IF_GE_DYNAMIC sp, t, f

	// Matching
	OpMatchAny       Opcode = 17 // MATCH_ANY t, f
	OpMatchString    Opcode = 18 // MATCH_STRING lit, t, f
	OpMatchStringIC  Opcode = 19 // MATCH_STRING_IC lit, t, f
	OpMatchCharClass Opcode = 20 // MATCH_CHAR_CLASS class, t, f
	OpAcceptN        Opcode = 21 // ACCEPT_N n: push the next n input units
	OpAcceptString   Opcode = 22 // ACCEPT_STRING lit: push the literal and skip it
	OpFail           Opcode = 23 // FAIL expectation

	// Calls
	OpLoadSavedPos   Opcode = 24 // LOAD_SAVED_POS p
	OpUpdateSavedPos Opcode = 25 // UPDATE_SAVED_POS
	OpCall           Opcode = 26 // CALL f, n, pc, p1..ppc
	OpRule           Opcode = 27 // RULE r
	OpLibraryRule    Opcode = 41 // LIBRARY_RULE lib, name

	// Failure reporting
	OpSilentFailsOn  Opcode = 28 // SILENT_FAILS_ON
	OpSilentFailsOff Opcode = 29 // SILENT_FAILS_OFF

	// Source mapping
	OpSourceMapPush      Opcode = 37 // SOURCE_MAP_PUSH loc
	OpSourceMapPop       Opcode = 38 // SOURCE_MAP_POP
	OpSourceMapLabelPush Opcode = 39 // SOURCE_MAP_LABEL_PUSH sp, lit, loc
	OpSourceMapLabelPop  Opcode = 40 // SOURCE_MAP_LABEL_POP sp
)

var opcodeNames = map[Opcode]string{
	OpPushUndefined:      "PUSH_UNDEFINED",
	OpPushNull:           "PUSH_NULL",
	OpPushFailed:         "PUSH_FAILED",
	OpPushEmptyArray:     "PUSH_EMPTY_ARRAY",
	OpPushCurrPos:        "PUSH_CURR_POS",
	OpPop:                "POP",
	OpPopCurrPos:         "POP_CURR_POS",
	OpPopN:               "POP_N",
	OpNip:                "NIP",
	OpAppend:             "APPEND",
	OpWrap:               "WRAP",
	OpText:               "TEXT",
	OpPushEmptyString:    "PUSH_EMPTY_STRING",
	OpPluck:              "PLUCK",
	OpIf:                 "IF",
	OpIfError:            "IF_ERROR",
	OpIfNotError:         "IF_NOT_ERROR",
	OpWhileNotError:      "WHILE_NOT_ERROR",
	OpIfLt:               "IF_LT",
	OpIfGe:               "IF_GE",
	OpIfLtDynamic:        "IF_LT_DYNAMIC",
	OpIfGeDynamic:        "IF_GE_DYNAMIC",
	OpMatchAny:           "MATCH_ANY",
	OpMatchString:        "MATCH_STRING",
	OpMatchStringIC:      "MATCH_STRING_IC",
	OpMatchCharClass:     "MATCH_CHAR_CLASS",
	OpAcceptN:            "ACCEPT_N",
	OpAcceptString:       "ACCEPT_STRING",
	OpFail:               "FAIL",
	OpLoadSavedPos:       "LOAD_SAVED_POS",
	OpUpdateSavedPos:     "UPDATE_SAVED_POS",
	OpCall:               "CALL",
	OpRule:               "RULE",
	OpLibraryRule:        "LIBRARY_RULE",
	OpSilentFailsOn:      "SILENT_FAILS_ON",
	OpSilentFailsOff:     "SILENT_FAILS_OFF",
	OpSourceMapPush:      "SOURCE_MAP_PUSH",
	OpSourceMapPop:       "SOURCE_MAP_POP",
	OpSourceMapLabelPush: "SOURCE_MAP_LABEL_PUSH",
	OpSourceMapLabelPop:  "SOURCE_MAP_LABEL_POP",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// operandCount returns how many operands follow the opcode at `ip`,
// not counting the block lengths of conditions and loops.
func operandCount(code []int, ip int) int {
	switch Opcode(code[ip]) {
	case OpPopN, OpWrap, OpAcceptN, OpAcceptString, OpFail, OpLoadSavedPos, OpRule,
		OpSourceMapPush, OpSourceMapLabelPop:
		return 1
	case OpLibraryRule:
		return 2
	case OpSourceMapLabelPush:
		return 3
	case OpPluck:
		return 2 + code[ip+2]
	case OpCall:
		return 3 + code[ip+3]
	case OpIfLt, OpIfGe, OpIfLtDynamic, OpIfGeDynamic, OpMatchString, OpMatchStringIC, OpMatchCharClass:
		return 1
	default:
		return 0
	}
}

// blockCount returns how many blocks an instruction owns: two for
// conditions, one for loops and zero for everything else.
func blockCount(op Opcode) int {
	switch op {
	case OpIf, OpIfError, OpIfNotError, OpIfLt, OpIfGe, OpIfLtDynamic, OpIfGeDynamic,
		OpMatchAny, OpMatchString, OpMatchStringIC, OpMatchCharClass:
		return 2
	case OpWhileNotError:
		return 1
	default:
		return 0
	}
}
