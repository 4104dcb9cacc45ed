package pyver

// Field identifies one entry of a marshalled code object record.
type Field int

const (
	FieldArgCount Field = iota
	FieldPosOnlyArgCount
	FieldKwOnlyArgCount
	FieldNLocals
	FieldStackSize
	FieldFlags
	FieldCode
	FieldConsts
	FieldNames
	FieldVarNames
	FieldFreeVars
	FieldCellVars
	FieldLocalsPlusNames
	FieldLocalsPlusKinds
	FieldFilename
	FieldName
	FieldQualName
	FieldFirstLineNo
	FieldLineTable
	FieldExceptionTable
)

var fieldNames = [...]string{
	FieldArgCount:        "argcount",
	FieldPosOnlyArgCount: "posonlyargcount",
	FieldKwOnlyArgCount:  "kwonlyargcount",
	FieldNLocals:         "nlocals",
	FieldStackSize:       "stacksize",
	FieldFlags:           "flags",
	FieldCode:            "code",
	FieldConsts:          "consts",
	FieldNames:           "names",
	FieldVarNames:        "varnames",
	FieldFreeVars:        "freevars",
	FieldCellVars:        "cellvars",
	FieldLocalsPlusNames: "localsplusnames",
	FieldLocalsPlusKinds: "localspluskinds",
	FieldFilename:        "filename",
	FieldName:            "name",
	FieldQualName:        "qualname",
	FieldFirstLineNo:     "firstlineno",
	FieldLineTable:       "linetable",
	FieldExceptionTable:  "exceptiontable",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "field?"
}

// Raw reports whether the field is stored as a bare little-endian int32
// rather than as a nested marshalled object.
func (f Field) Raw() bool {
	switch f {
	case FieldArgCount, FieldPosOnlyArgCount, FieldKwOnlyArgCount, FieldNLocals,
		FieldStackSize, FieldFlags, FieldFirstLineNo:
		return true
	}
	return false
}

// Code object schemas, oldest first.
var (
	schemaPy2 = []Field{
		FieldArgCount, FieldNLocals, FieldStackSize, FieldFlags,
		FieldCode, FieldConsts, FieldNames, FieldVarNames, FieldFreeVars, FieldCellVars,
		FieldFilename, FieldName, FieldFirstLineNo, FieldLineTable,
	}

	// 3.0: keyword-only argument count.
	schemaPy30 = []Field{
		FieldArgCount, FieldKwOnlyArgCount, FieldNLocals, FieldStackSize, FieldFlags,
		FieldCode, FieldConsts, FieldNames, FieldVarNames, FieldFreeVars, FieldCellVars,
		FieldFilename, FieldName, FieldFirstLineNo, FieldLineTable,
	}

	// 3.8: positional-only argument count.
	schemaPy38 = []Field{
		FieldArgCount, FieldPosOnlyArgCount, FieldKwOnlyArgCount, FieldNLocals,
		FieldStackSize, FieldFlags,
		FieldCode, FieldConsts, FieldNames, FieldVarNames, FieldFreeVars, FieldCellVars,
		FieldFilename, FieldName, FieldFirstLineNo, FieldLineTable,
	}

	// 3.11: variable tables merged into localsplus, qualname and exception table added.
	schemaPy311 = []Field{
		FieldArgCount, FieldPosOnlyArgCount, FieldKwOnlyArgCount, FieldStackSize, FieldFlags,
		FieldCode, FieldConsts, FieldNames, FieldLocalsPlusNames, FieldLocalsPlusKinds,
		FieldFilename, FieldName, FieldQualName, FieldFirstLineNo, FieldLineTable,
		FieldExceptionTable,
	}
)
