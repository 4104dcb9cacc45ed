package pyver

import "fmt"

// Opcode describes one entry of an instruction table.
type Opcode struct {
	Name   string
	HasArg bool
	Known  bool
}

// OpcodeTable maps a one-byte opcode to its mnemonic for one release.
type OpcodeTable struct {
	ops          [256]Opcode
	byName       map[string]byte
	haveArgument byte
	extendedArg  byte
}

// Lookup returns the opcode entry. Opcodes absent from the release render
// as "<N>" and take an argument iff they are at or above HAVE_ARGUMENT.
func (t *OpcodeTable) Lookup(op byte) Opcode {
	return t.ops[op]
}

// ExtendedArg returns the argument-extension opcode.
func (t *OpcodeTable) ExtendedArg() byte { return t.extendedArg }

// HaveArgument returns the first opcode that carries an argument.
func (t *OpcodeTable) HaveArgument() byte { return t.haveArgument }

// ByName returns the opcode for a mnemonic.
func (t *OpcodeTable) ByName(name string) (byte, bool) {
	op, ok := t.byName[name]
	return op, ok
}

// Len returns the number of defined opcodes.
func (t *OpcodeTable) Len() int { return len(t.byName) }

func newTable(names map[byte]string) *OpcodeTable {
	t := &OpcodeTable{byName: make(map[string]byte, len(names)), haveArgument: 90}
	for i := 0; i < 256; i++ {
		op := byte(i)
		name, ok := names[op]
		if !ok {
			name = fmt.Sprintf("<%d>", op)
		} else {
			t.byName[name] = op
		}
		t.ops[op] = Opcode{Name: name, HasArg: op >= t.haveArgument, Known: ok}
	}
	ext, ok := t.byName["EXTENDED_ARG"]
	if !ok {
		panic("pyver: opcode table without EXTENDED_ARG")
	}
	t.extendedArg = ext
	return t
}

// derive copies base, drops the removed opcodes and applies additions.
// Additions may reuse a removed number.
func derive(base map[byte]string, remove []byte, add map[byte]string) map[byte]string {
	out := make(map[byte]string, len(base)+len(add))
	for op, name := range base {
		out[op] = name
	}
	for _, op := range remove {
		delete(out, op)
	}
	for op, name := range add {
		out[op] = name
	}
	return out
}

var opsPy27 = map[byte]string{
	0: "STOP_CODE", 1: "POP_TOP", 2: "ROT_TWO", 3: "ROT_THREE", 4: "DUP_TOP",
	5: "ROT_FOUR", 9: "NOP", 10: "UNARY_POSITIVE", 11: "UNARY_NEGATIVE",
	12: "UNARY_NOT", 13: "UNARY_CONVERT", 15: "UNARY_INVERT",
	19: "BINARY_POWER", 20: "BINARY_MULTIPLY", 21: "BINARY_DIVIDE",
	22: "BINARY_MODULO", 23: "BINARY_ADD", 24: "BINARY_SUBTRACT",
	25: "BINARY_SUBSCR", 26: "BINARY_FLOOR_DIVIDE", 27: "BINARY_TRUE_DIVIDE",
	28: "INPLACE_FLOOR_DIVIDE", 29: "INPLACE_TRUE_DIVIDE",
	30: "SLICE+0", 31: "SLICE+1", 32: "SLICE+2", 33: "SLICE+3",
	40: "STORE_SLICE+0", 41: "STORE_SLICE+1", 42: "STORE_SLICE+2", 43: "STORE_SLICE+3",
	50: "DELETE_SLICE+0", 51: "DELETE_SLICE+1", 52: "DELETE_SLICE+2", 53: "DELETE_SLICE+3",
	54: "STORE_MAP", 55: "INPLACE_ADD", 56: "INPLACE_SUBTRACT", 57: "INPLACE_MULTIPLY",
	58: "INPLACE_DIVIDE", 59: "INPLACE_MODULO", 60: "STORE_SUBSCR", 61: "DELETE_SUBSCR",
	62: "BINARY_LSHIFT", 63: "BINARY_RSHIFT", 64: "BINARY_AND", 65: "BINARY_XOR",
	66: "BINARY_OR", 67: "INPLACE_POWER", 68: "GET_ITER", 70: "PRINT_EXPR",
	71: "PRINT_ITEM", 72: "PRINT_NEWLINE", 73: "PRINT_ITEM_TO", 74: "PRINT_NEWLINE_TO",
	75: "INPLACE_LSHIFT", 76: "INPLACE_RSHIFT", 77: "INPLACE_AND", 78: "INPLACE_XOR",
	79: "INPLACE_OR", 80: "BREAK_LOOP", 81: "WITH_CLEANUP", 82: "LOAD_LOCALS",
	83: "RETURN_VALUE", 84: "IMPORT_STAR", 85: "EXEC_STMT", 86: "YIELD_VALUE",
	87: "POP_BLOCK", 88: "END_FINALLY", 89: "BUILD_CLASS",
	90: "STORE_NAME", 91: "DELETE_NAME", 92: "UNPACK_SEQUENCE", 93: "FOR_ITER",
	94: "LIST_APPEND", 95: "STORE_ATTR", 96: "DELETE_ATTR", 97: "STORE_GLOBAL",
	98: "DELETE_GLOBAL", 99: "DUP_TOPX", 100: "LOAD_CONST", 101: "LOAD_NAME",
	102: "BUILD_TUPLE", 103: "BUILD_LIST", 104: "BUILD_SET", 105: "BUILD_MAP",
	106: "LOAD_ATTR", 107: "COMPARE_OP", 108: "IMPORT_NAME", 109: "IMPORT_FROM",
	110: "JUMP_FORWARD", 111: "JUMP_IF_FALSE_OR_POP", 112: "JUMP_IF_TRUE_OR_POP",
	113: "JUMP_ABSOLUTE", 114: "POP_JUMP_IF_FALSE", 115: "POP_JUMP_IF_TRUE",
	116: "LOAD_GLOBAL", 119: "CONTINUE_LOOP", 120: "SETUP_LOOP", 121: "SETUP_EXCEPT",
	122: "SETUP_FINALLY", 124: "LOAD_FAST", 125: "STORE_FAST", 126: "DELETE_FAST",
	130: "RAISE_VARARGS", 131: "CALL_FUNCTION", 132: "MAKE_FUNCTION", 133: "BUILD_SLICE",
	134: "MAKE_CLOSURE", 135: "LOAD_CLOSURE", 136: "LOAD_DEREF", 137: "STORE_DEREF",
	140: "CALL_FUNCTION_VAR", 141: "CALL_FUNCTION_KW", 142: "CALL_FUNCTION_VAR_KW",
	143: "SETUP_WITH", 145: "EXTENDED_ARG", 146: "SET_ADD", 147: "MAP_ADD",
}

var opsPy35 = map[byte]string{
	1: "POP_TOP", 2: "ROT_TWO", 3: "ROT_THREE", 4: "DUP_TOP", 5: "DUP_TOP_TWO",
	9: "NOP", 10: "UNARY_POSITIVE", 11: "UNARY_NEGATIVE", 12: "UNARY_NOT",
	15: "UNARY_INVERT", 16: "BINARY_MATRIX_MULTIPLY", 17: "INPLACE_MATRIX_MULTIPLY",
	19: "BINARY_POWER", 20: "BINARY_MULTIPLY", 22: "BINARY_MODULO", 23: "BINARY_ADD",
	24: "BINARY_SUBTRACT", 25: "BINARY_SUBSCR", 26: "BINARY_FLOOR_DIVIDE",
	27: "BINARY_TRUE_DIVIDE", 28: "INPLACE_FLOOR_DIVIDE", 29: "INPLACE_TRUE_DIVIDE",
	50: "GET_AITER", 51: "GET_ANEXT", 52: "BEFORE_ASYNC_WITH",
	55: "INPLACE_ADD", 56: "INPLACE_SUBTRACT", 57: "INPLACE_MULTIPLY",
	59: "INPLACE_MODULO", 60: "STORE_SUBSCR", 61: "DELETE_SUBSCR",
	62: "BINARY_LSHIFT", 63: "BINARY_RSHIFT", 64: "BINARY_AND", 65: "BINARY_XOR",
	66: "BINARY_OR", 67: "INPLACE_POWER", 68: "GET_ITER", 69: "GET_YIELD_FROM_ITER",
	70: "PRINT_EXPR", 71: "LOAD_BUILD_CLASS", 72: "YIELD_FROM", 73: "GET_AWAITABLE",
	75: "INPLACE_LSHIFT", 76: "INPLACE_RSHIFT", 77: "INPLACE_AND", 78: "INPLACE_XOR",
	79: "INPLACE_OR", 80: "BREAK_LOOP", 81: "WITH_CLEANUP_START",
	82: "WITH_CLEANUP_FINISH", 83: "RETURN_VALUE", 84: "IMPORT_STAR",
	86: "YIELD_VALUE", 87: "POP_BLOCK", 88: "END_FINALLY", 89: "POP_EXCEPT",
	90: "STORE_NAME", 91: "DELETE_NAME", 92: "UNPACK_SEQUENCE", 93: "FOR_ITER",
	94: "UNPACK_EX", 95: "STORE_ATTR", 96: "DELETE_ATTR", 97: "STORE_GLOBAL",
	98: "DELETE_GLOBAL", 100: "LOAD_CONST", 101: "LOAD_NAME", 102: "BUILD_TUPLE",
	103: "BUILD_LIST", 104: "BUILD_SET", 105: "BUILD_MAP", 106: "LOAD_ATTR",
	107: "COMPARE_OP", 108: "IMPORT_NAME", 109: "IMPORT_FROM", 110: "JUMP_FORWARD",
	111: "JUMP_IF_FALSE_OR_POP", 112: "JUMP_IF_TRUE_OR_POP", 113: "JUMP_ABSOLUTE",
	114: "POP_JUMP_IF_FALSE", 115: "POP_JUMP_IF_TRUE", 116: "LOAD_GLOBAL",
	119: "CONTINUE_LOOP", 120: "SETUP_LOOP", 121: "SETUP_EXCEPT", 122: "SETUP_FINALLY",
	124: "LOAD_FAST", 125: "STORE_FAST", 126: "DELETE_FAST", 130: "RAISE_VARARGS",
	131: "CALL_FUNCTION", 132: "MAKE_FUNCTION", 133: "BUILD_SLICE", 134: "MAKE_CLOSURE",
	135: "LOAD_CLOSURE", 136: "LOAD_DEREF", 137: "STORE_DEREF", 138: "DELETE_DEREF",
	140: "CALL_FUNCTION_VAR", 141: "CALL_FUNCTION_KW", 142: "CALL_FUNCTION_VAR_KW",
	143: "SETUP_WITH", 144: "EXTENDED_ARG", 145: "LIST_APPEND", 146: "SET_ADD",
	147: "MAP_ADD", 148: "LOAD_CLASSDEREF", 149: "BUILD_LIST_UNPACK",
	150: "BUILD_MAP_UNPACK", 151: "BUILD_MAP_UNPACK_WITH_CALL",
	152: "BUILD_TUPLE_UNPACK", 153: "BUILD_SET_UNPACK", 154: "SETUP_ASYNC_WITH",
}

var opsPy36 = derive(opsPy35,
	[]byte{134, 140, 142},
	map[byte]string{
		85: "SETUP_ANNOTATIONS", 127: "STORE_ANNOTATION", 142: "CALL_FUNCTION_EX",
		155: "FORMAT_VALUE", 156: "BUILD_CONST_KEY_MAP", 157: "BUILD_STRING",
		158: "BUILD_TUPLE_UNPACK_WITH_CALL",
	})

var opsPy37 = derive(opsPy36,
	[]byte{127},
	map[byte]string{160: "LOAD_METHOD", 161: "CALL_METHOD"})

var opsPy38 = derive(opsPy37,
	[]byte{80, 119, 120, 121},
	map[byte]string{
		6: "ROT_FOUR", 53: "BEGIN_FINALLY", 54: "END_ASYNC_FOR",
		162: "CALL_FINALLY", 163: "POP_FINALLY",
	})

var opsPy39 = derive(opsPy38,
	[]byte{53, 81, 82, 88, 149, 150, 151, 152, 153, 158, 162, 163},
	map[byte]string{
		48: "RERAISE", 49: "WITH_EXCEPT_START", 74: "LOAD_ASSERTION_ERROR",
		82: "LIST_TO_TUPLE", 117: "IS_OP", 118: "CONTAINS_OP",
		121: "JUMP_IF_NOT_EXC_MATCH", 162: "LIST_EXTEND", 163: "SET_UPDATE",
		164: "DICT_MERGE", 165: "DICT_UPDATE",
	})

var opsPy310 = derive(opsPy39,
	[]byte{48},
	map[byte]string{
		30: "GET_LEN", 31: "MATCH_MAPPING", 32: "MATCH_SEQUENCE", 33: "MATCH_KEYS",
		34: "COPY_DICT_WITHOUT_KEYS", 99: "ROT_N", 119: "RERAISE", 129: "GEN_START",
		152: "MATCH_CLASS",
	})

var opsPy311 = map[byte]string{
	0: "CACHE", 1: "POP_TOP", 2: "PUSH_NULL", 9: "NOP", 11: "UNARY_NEGATIVE",
	12: "UNARY_NOT", 15: "UNARY_INVERT", 25: "BINARY_SUBSCR", 30: "GET_LEN",
	31: "MATCH_MAPPING", 32: "MATCH_SEQUENCE", 33: "MATCH_KEYS",
	35: "PUSH_EXC_INFO", 36: "CHECK_EXC_MATCH", 37: "CHECK_EG_MATCH",
	49: "WITH_EXCEPT_START", 50: "GET_AITER", 51: "GET_ANEXT",
	52: "BEFORE_ASYNC_WITH", 53: "BEFORE_WITH", 54: "END_ASYNC_FOR",
	60: "STORE_SUBSCR", 61: "DELETE_SUBSCR", 68: "GET_ITER", 69: "GET_YIELD_FROM_ITER",
	70: "PRINT_EXPR", 71: "LOAD_BUILD_CLASS", 74: "LOAD_ASSERTION_ERROR",
	75: "RETURN_GENERATOR", 82: "LIST_TO_TUPLE", 83: "RETURN_VALUE",
	84: "IMPORT_STAR", 85: "SETUP_ANNOTATIONS", 86: "YIELD_VALUE",
	87: "ASYNC_GEN_WRAP", 88: "PREP_RERAISE_STAR", 89: "POP_EXCEPT",
	90: "STORE_NAME", 91: "DELETE_NAME", 92: "UNPACK_SEQUENCE", 93: "FOR_ITER",
	94: "UNPACK_EX", 95: "STORE_ATTR", 96: "DELETE_ATTR", 97: "STORE_GLOBAL",
	98: "DELETE_GLOBAL", 99: "SWAP", 100: "LOAD_CONST", 101: "LOAD_NAME",
	102: "BUILD_TUPLE", 103: "BUILD_LIST", 104: "BUILD_SET", 105: "BUILD_MAP",
	106: "LOAD_ATTR", 107: "COMPARE_OP", 108: "IMPORT_NAME", 109: "IMPORT_FROM",
	110: "JUMP_FORWARD", 111: "JUMP_IF_FALSE_OR_POP", 112: "JUMP_IF_TRUE_OR_POP",
	114: "POP_JUMP_FORWARD_IF_FALSE", 115: "POP_JUMP_FORWARD_IF_TRUE",
	116: "LOAD_GLOBAL", 117: "IS_OP", 118: "CONTAINS_OP", 119: "RERAISE",
	120: "COPY", 122: "BINARY_OP", 123: "SEND", 124: "LOAD_FAST", 125: "STORE_FAST",
	126: "DELETE_FAST", 128: "POP_JUMP_FORWARD_IF_NOT_NONE",
	129: "POP_JUMP_FORWARD_IF_NONE", 130: "RAISE_VARARGS", 131: "GET_AWAITABLE",
	132: "MAKE_FUNCTION", 133: "BUILD_SLICE", 134: "JUMP_BACKWARD_NO_INTERRUPT",
	135: "MAKE_CELL", 136: "LOAD_CLOSURE", 137: "LOAD_DEREF", 138: "STORE_DEREF",
	139: "DELETE_DEREF", 140: "JUMP_BACKWARD", 142: "CALL_FUNCTION_EX",
	144: "EXTENDED_ARG", 145: "LIST_APPEND", 146: "SET_ADD", 147: "MAP_ADD",
	148: "LOAD_CLASSDEREF", 149: "COPY_FREE_VARS", 151: "RESUME", 152: "MATCH_CLASS",
	155: "FORMAT_VALUE", 156: "BUILD_CONST_KEY_MAP", 157: "BUILD_STRING",
	160: "LOAD_METHOD", 162: "LIST_EXTEND", 163: "SET_UPDATE", 164: "DICT_MERGE",
	165: "DICT_UPDATE", 166: "PRECALL", 171: "CALL", 172: "KW_NAMES",
	173: "POP_JUMP_BACKWARD_IF_NOT_NONE", 174: "POP_JUMP_BACKWARD_IF_NONE",
	175: "POP_JUMP_BACKWARD_IF_FALSE", 176: "POP_JUMP_BACKWARD_IF_TRUE",
}

var opsPy312 = map[byte]string{
	0: "CACHE", 1: "POP_TOP", 2: "PUSH_NULL", 3: "INTERPRETER_EXIT", 4: "END_FOR",
	5: "END_SEND", 9: "NOP", 11: "UNARY_NEGATIVE", 12: "UNARY_NOT",
	15: "UNARY_INVERT", 17: "RESERVED", 25: "BINARY_SUBSCR", 26: "BINARY_SLICE",
	27: "STORE_SLICE", 30: "GET_LEN", 31: "MATCH_MAPPING", 32: "MATCH_SEQUENCE",
	33: "MATCH_KEYS", 35: "PUSH_EXC_INFO", 36: "CHECK_EXC_MATCH",
	37: "CHECK_EG_MATCH", 49: "WITH_EXCEPT_START", 50: "GET_AITER",
	51: "GET_ANEXT", 52: "BEFORE_ASYNC_WITH", 53: "BEFORE_WITH",
	54: "END_ASYNC_FOR", 55: "CLEANUP_THROW", 60: "STORE_SUBSCR",
	61: "DELETE_SUBSCR", 68: "GET_ITER", 69: "GET_YIELD_FROM_ITER",
	71: "LOAD_BUILD_CLASS", 74: "LOAD_ASSERTION_ERROR", 75: "RETURN_GENERATOR",
	83: "RETURN_VALUE", 85: "SETUP_ANNOTATIONS", 87: "LOAD_LOCALS",
	89: "POP_EXCEPT", 90: "STORE_NAME", 91: "DELETE_NAME", 92: "UNPACK_SEQUENCE",
	93: "FOR_ITER", 94: "UNPACK_EX", 95: "STORE_ATTR", 96: "DELETE_ATTR",
	97: "STORE_GLOBAL", 98: "DELETE_GLOBAL", 99: "SWAP", 100: "LOAD_CONST",
	101: "LOAD_NAME", 102: "BUILD_TUPLE", 103: "BUILD_LIST", 104: "BUILD_SET",
	105: "BUILD_MAP", 106: "LOAD_ATTR", 107: "COMPARE_OP", 108: "IMPORT_NAME",
	109: "IMPORT_FROM", 110: "JUMP_FORWARD", 114: "POP_JUMP_IF_FALSE",
	115: "POP_JUMP_IF_TRUE", 116: "LOAD_GLOBAL", 117: "IS_OP", 118: "CONTAINS_OP",
	119: "RERAISE", 120: "COPY", 121: "RETURN_CONST", 122: "BINARY_OP", 123: "SEND",
	124: "LOAD_FAST", 125: "STORE_FAST", 126: "DELETE_FAST", 127: "LOAD_FAST_CHECK",
	128: "POP_JUMP_IF_NOT_NONE", 129: "POP_JUMP_IF_NONE", 130: "RAISE_VARARGS",
	131: "GET_AWAITABLE", 132: "MAKE_FUNCTION", 133: "BUILD_SLICE",
	134: "JUMP_BACKWARD_NO_INTERRUPT", 135: "MAKE_CELL", 136: "LOAD_CLOSURE",
	137: "LOAD_DEREF", 138: "STORE_DEREF", 139: "DELETE_DEREF", 140: "JUMP_BACKWARD",
	141: "LOAD_SUPER_ATTR", 142: "CALL_FUNCTION_EX", 143: "LOAD_FAST_AND_CLEAR",
	144: "EXTENDED_ARG", 145: "LIST_APPEND", 146: "SET_ADD", 147: "MAP_ADD",
	149: "COPY_FREE_VARS", 150: "YIELD_VALUE", 151: "RESUME", 152: "MATCH_CLASS",
	155: "FORMAT_VALUE", 156: "BUILD_CONST_KEY_MAP", 157: "BUILD_STRING",
	162: "LIST_EXTEND", 163: "SET_UPDATE", 164: "DICT_MERGE", 165: "DICT_UPDATE",
	171: "CALL", 172: "KW_NAMES", 173: "CALL_INTRINSIC_1", 174: "CALL_INTRINSIC_2",
	175: "LOAD_FROM_DICT_OR_GLOBALS", 176: "LOAD_FROM_DICT_OR_DEREF",
}
