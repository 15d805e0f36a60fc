package stage

import cerrors "scl/internal/compiler/errors"

// Value is anything the lowerer can drop into a block's field or input
// slot. Each method encodes the value for one slot kind; a type that
// can't be expressed in that position returns a Value error, per
// spec.md §4.I.
type Value interface {
	AsField() (any, error)
	AsNormal() (any, error)
	AsBoolean() (any, error)
	AsBlock() (any, error)
	AsShadow() (any, error)
}

func valueErr(kind, slot string) error {
	return cerrors.New(cerrors.Value, 0, "%s cannot be encoded in a %s slot", kind, slot)
}

// unsupported is embedded by every concrete Value and gives a Value error
// for whichever encodings the concrete type doesn't override.
type unsupported struct{ kind string }

func (u unsupported) AsField() (any, error)   { return nil, valueErr(u.kind, "field") }
func (u unsupported) AsNormal() (any, error)  { return nil, valueErr(u.kind, "normal") }
func (u unsupported) AsBoolean() (any, error) { return nil, valueErr(u.kind, "boolean") }
func (u unsupported) AsBlock() (any, error)   { return nil, valueErr(u.kind, "block") }
func (u unsupported) AsShadow() (any, error)  { return nil, valueErr(u.kind, "shadow") }

// Num is a numeric literal. Scratch input format 4 is "number".
type Num struct {
	unsupported
	N float64
}

func NewNum(n float64) Num { return Num{unsupported{"Number"}, n} }

func (v Num) AsNormal() (any, error) { return []any{1, []any{4, formatNumber(v.N)}}, nil }

// Str is a string literal. Scratch input format 10 is "text".
type Str struct {
	unsupported
	S string
}

func NewStr(s string) Str { return Str{unsupported{"String"}, s} }

func (v Str) AsNormal() (any, error) { return []any{1, []any{10, v.S}}, nil }

// Literal is a bare field value with no backing variable/list id, used by
// menu blocks such as control_create_clone_of_menu's CLONE_OPTION field.
// Scratch's field shape is [value, id-or-null]; a literal field has no id.
type Literal struct {
	unsupported
	S string
}

func NewLiteral(s string) Literal { return Literal{unsupported{"Literal"}, s} }

func (v Literal) AsField() (any, error) { return []any{v.S, nil}, nil }

// Variable is a reference to a declared scalar or list by name+id.
type Variable struct {
	unsupported
	ID   string
	Name string
}

func NewVariable(id, name string) Variable { return Variable{unsupported{"Variable"}, id, name} }

func (v Variable) AsField() (any, error) { return []any{v.ID, v.ID}, nil }
func (v Variable) AsNormal() (any, error) {
	return []any{3, []any{12, v.ID, v.ID}, []any{10, ""}}, nil
}

// BlockRef is a reference to a lowered block, either plugged into a value
// slot as a reporter or into a block/substack slot as a stack root.
type BlockRef struct {
	unsupported
	ID string
}

func NewBlockRef(id string) BlockRef { return BlockRef{unsupported{"Block"}, id} }

func (v BlockRef) AsBlock() (any, error)   { return []any{2, v.ID}, nil }
func (v BlockRef) AsBoolean() (any, error) { return []any{2, v.ID}, nil }
func (v BlockRef) AsNormal() (any, error)  { return []any{3, v.ID, []any{10, ""}}, nil }

// AsShadow encodes a slot that holds only a shadow block (no obscuring
// reporter) — used for procedure-argument reporters and clone-menu
// shadows. Not given directly by spec.md's worked examples; chosen as the
// "1" tag consistent with the "2"/"3" tags spec.md assigns to the block
// and value-with-reporter positions.
func (v BlockRef) AsShadow() (any, error) { return []any{1, v.ID}, nil }
