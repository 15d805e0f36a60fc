// Package lowerer walks an (optimized) AST and emits the stage block
// graph, variable/list tables, and extensions list described by
// spec.md §4.I.
//
// Grounded on internal/compiler/generator/generator.go's walk-and-emit
// shape (section-by-section strings.Builder emission), generalized here
// from building Go source text to populating a map[string]*stage.Block
// plus variable/list tables, and on gen_models.go/gen_services.go's
// switch-on-declared-shape idea, generalized to the single data-driven
// stage.BlockTypeTable keyed by opcode.
package lowerer

import (
	"math"
	"strconv"
	"strings"

	"scl/internal/compiler/ast"
	cerrors "scl/internal/compiler/errors"
	"scl/internal/compiler/ids"
	"scl/internal/compiler/stage"
)

// Result is everything the lowerer produced from one Program: the block
// graph, the variable/list tables, any stage extensions touched, and the
// id of the program's root event_whenflagclicked block.
type Result struct {
	Blocks     map[string]*stage.Block
	Variables  map[string][2]any
	Lists      map[string][2]any
	Extensions []string
	Root       string
}

// WriteInto installs a Result into a loaded project template, per
// spec.md §6's "writes into targets[1].blocks ... targets[0].variables,
// targets[0].lists, and appends to extensions" contract.
func (r *Result) WriteInto(proj *stage.Project) {
	proj.SetBlocks(r.Blocks)
	proj.SetVariables(r.Variables)
	proj.SetLists(r.Lists)
	for _, ext := range r.Extensions {
		proj.AddExtension(ext)
	}
}

// Lowerer holds the id allocator and emitted tables for one pipeline
// invocation. Never reused across invocations, per spec.md §5's
// "owned by one pipeline invocation" rule.
type Lowerer struct {
	ids        *ids.Allocator
	blocks     map[string]*stage.Block
	variables  map[string][2]any
	lists      map[string][2]any
	extensions []string
	seq        int
	cloneVar   *variable
}

// Lower walks prog and returns its lowered stage representation. Each
// top-level Program is rooted in an event_whenflagclicked block whose
// chain is the program body, per spec.md §4.I.
func Lower(prog *ast.Program) (*Result, error) {
	l := &Lowerer{
		ids:       ids.New(),
		blocks:    map[string]*stage.Block{},
		variables: map[string][2]any{},
		lists:     map[string][2]any{},
	}

	flag := stage.NewBlock("event_whenflagclicked")
	flag.TopLevel = true
	flagID := l.next("flag")
	l.blocks[flagID] = flag

	root := newRootScope()
	first, _, err := l.lowerBody(root, prog.Body)
	if err != nil {
		return nil, err
	}
	if first != "" {
		l.chain(flagID, first)
	}

	return &Result{
		Blocks:     l.blocks,
		Variables:  l.variables,
		Lists:      l.lists,
		Extensions: l.extensions,
		Root:       flagID,
	}, nil
}

// next allocates a fresh block id. Block ids are keyed by a monotonic
// sequence number rather than structural content, since two calls with
// identical shape at different source positions (e.g. two `print(1);`
// statements) must still receive distinct ids; the sequence itself is a
// deterministic function of traversal order over the same AST, so
// re-running the pipeline on the same source reproduces it exactly, per
// spec.md §8's "byte-identical JSON output" invariant.
func (l *Lowerer) next(tag string) string {
	l.seq++
	return l.ids.Alloc(ids.Key("block", tag, strconv.Itoa(l.seq)))
}

// chain links prevID -> nextID via next/parent.
func (l *Lowerer) chain(prevID, nextID string) {
	n := nextID
	p := prevID
	l.blocks[prevID].Next = &n
	l.blocks[nextID].Parent = &p
}

// lowerBody lowers an ordered statement list into a chained stack,
// returning the ids of its first and last blocks (both "" if the body
// produced no blocks at all).
func (l *Lowerer) lowerBody(scp *lscope, body []ast.Statement) (first, last string, err error) {
	for _, stmt := range body {
		id, err := l.lowerStatement(scp, stmt)
		if err != nil {
			return "", "", err
		}
		if id == "" {
			continue
		}
		if first == "" {
			first = id
		} else {
			l.chain(last, id)
		}
		last = id
	}
	return first, last, nil
}

func (l *Lowerer) lowerStatement(scp *lscope, stmt ast.Statement) (string, error) {
	switch v := stmt.(type) {
	case *ast.VariableDeclaration:
		return l.lowerVarDecl(scp, v)
	case *ast.FunctionDeclaration:
		return "", l.lowerFuncDecl(scp, v)
	case *ast.Clone:
		return l.lowerClone(scp, v)
	case *ast.FunctionCall:
		return l.lowerCall(scp, v)
	case *ast.Block:
		child := scp.child(tag(l.seq))
		first, _, err := l.lowerBody(child, v.Body)
		return first, err
	case *ast.Number, *ast.String, *ast.Identifier, *ast.ListIdentifier:
		// A bare expression statement has no side effect to lower.
		return "", nil
	default:
		return "", cerrors.New(cerrors.Interpret, 0, "cannot lower statement of type %T", stmt)
	}
}

func tag(n int) string { return strconv.Itoa(n) }

// lowerVarDecl declares name in scp and, for a scalar with an
// initializer, emits the data_setvariableto block that performs the
// initial set (counted toward const enforcement). Array declarations
// never emit a block: a plain `array A;` is fully described by its
// table entry ([]), and `array A = [...]` aliases A to the fresh list
// already populated by the array-literal desugaring the parser injected
// as preceding statements — see DESIGN.md.
func (l *Lowerer) lowerVarDecl(scp *lscope, decl *ast.VariableDeclaration) (string, error) {
	if decl.IsArray {
		return "", l.lowerArrayDecl(scp, decl)
	}

	id := l.ids.Alloc(ids.Key("variable", scp.path, decl.Name))
	v := &variable{id: id, name: decl.Name, kind: kindVariable, isConst: decl.IsConst}
	if err := scp.declareVariable(v); err != nil {
		return "", err
	}
	l.variables[id] = [2]any{decl.Name, "[NOT ASSIGNED]"}

	if decl.Value == nil {
		return "", nil
	}
	val, err := l.lowerExpr(scp, decl.Value)
	if err != nil {
		return "", err
	}
	enc, err := val.AsNormal()
	if err != nil {
		return "", err
	}
	blk := stage.NewBlock("data_setvariableto")
	fv, _ := stage.NewVariable(id, decl.Name).AsField()
	blk.Fields["VARIABLE"] = fv
	blk.Inputs["VALUE"] = enc
	v.changeCount++

	bid := l.next("set")
	l.blocks[bid] = blk
	return bid, nil
}

func (l *Lowerer) lowerArrayDecl(scp *lscope, decl *ast.VariableDeclaration) error {
	if decl.Value == nil {
		id := l.ids.Alloc(ids.Key("list", scp.path, decl.Name))
		if err := scp.declareVariable(&variable{id: id, name: decl.Name, kind: kindVariable, isList: true}); err != nil {
			return err
		}
		l.lists[id] = [2]any{decl.Name, []any{}}
		return nil
	}

	li, ok := decl.Value.(*ast.ListIdentifier)
	if !ok {
		return cerrors.New(cerrors.Interpret, decl.Line, "array initializer for %q did not desugar to a list", decl.Name)
	}
	src, ok := scp.resolveVar(li.Name)
	if !ok {
		return cerrors.New(cerrors.Record, decl.Line, "undeclared list %q", li.Name)
	}
	if err := scp.declareVariable(&variable{id: src.id, name: decl.Name, kind: kindVariable, isList: true}); err != nil {
		return err
	}
	// The user-facing name takes over the fresh list's table entry.
	l.lists[src.id] = [2]any{decl.Name, []any{}}
	return nil
}

// lowerFuncDecl synthesizes the procedures_definition/procedures_prototype
// pair and registers the procedure for call resolution, per spec.md
// §4.I. A function declaration contributes nothing to the enclosing
// chain — its definition is its own, independent top-level stack.
func (l *Lowerer) lowerFuncDecl(scp *lscope, fn *ast.FunctionDeclaration) error {
	argIDs := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		argIDs[i] = l.ids.Alloc(ids.Key("argid", scp.path, fn.Name, p))
	}
	proccode := fn.Name + strings.Repeat(" %s", len(fn.Params))

	if err := scp.declareFunc(fn.Name, &funcInfo{argIDs: argIDs, proccode: proccode}); err != nil {
		return err
	}

	funcScope := scp.child("fn-" + fn.Name)
	proto := stage.NewBlock("procedures_prototype")
	proto.Shadow = true
	for i, p := range fn.Params {
		funcScope.declareArgument(p, argIDs[i])
		argBlk := stage.NewBlock("argument_reporter_string_number")
		argBlk.Shadow = true
		fv, _ := stage.NewLiteral(p).AsField()
		argBlk.Fields["VALUE"] = fv
		argID := l.next("argrep")
		l.blocks[argID] = argBlk
		enc, _ := stage.NewBlockRef(argID).AsShadow()
		proto.Inputs[argIDs[i]] = enc
	}
	proto.Mutation = &stage.Mutation{
		TagName:          "mutation",
		Children:         []any{},
		ProcCode:         proccode,
		ArgumentIDs:      stage.JSONArray(argIDs),
		ArgumentNames:    stage.JSONArray(argIDs),
		ArgumentDefaults: stage.JSONArray(emptyStrings(len(fn.Params))),
		Warp:             "false",
	}
	protoID := l.next("procproto")
	l.blocks[protoID] = proto

	def := stage.NewBlock("procedures_definition")
	def.TopLevel = true
	encProto, _ := stage.NewBlockRef(protoID).AsShadow()
	def.Inputs["custom_block"] = encProto
	defID := l.next("procdef")
	l.blocks[defID] = def

	bodyFirst, _, err := l.lowerBody(funcScope, fn.Body)
	if err != nil {
		return err
	}
	if bodyFirst != "" {
		l.chain(defID, bodyFirst)
	}
	return nil
}

func emptyStrings(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = ""
	}
	return out
}

// lowerUserCall emits a procedures_call for a call to a declared
// function, with a mutation matching its definition's proccode/argument
// ids.
func (l *Lowerer) lowerUserCall(scp *lscope, fc *ast.FunctionCall) (string, error) {
	info, ok := scp.resolveFunc(fc.Name)
	if !ok {
		return "", cerrors.New(cerrors.Record, fc.Line, "call to undeclared function %q", fc.Name)
	}
	if len(fc.Args) != len(info.argIDs) {
		return "", cerrors.New(cerrors.Interpret, fc.Line, "function %q expects %d argument(s), got %d", fc.Name, len(info.argIDs), len(fc.Args))
	}

	blk := stage.NewBlock("procedures_call")
	blk.Mutation = &stage.Mutation{
		TagName:     "mutation",
		Children:    []any{},
		ProcCode:    info.proccode,
		ArgumentIDs: stage.JSONArray(info.argIDs),
		Warp:        "false",
	}
	for i, arg := range fc.Args {
		val, err := l.lowerExpr(scp, arg)
		if err != nil {
			return "", err
		}
		enc, err := val.AsNormal()
		if err != nil {
			return "", err
		}
		blk.Inputs[info.argIDs[i]] = enc
	}

	id := l.next("call")
	l.blocks[id] = blk
	return id, nil
}

// lowerClone lowers the parent (sentinel + clone-creation) statements and
// the discriminator-guarded inner body as one continuous inline stack:
// see DESIGN.md for why this spec's clone model has no separate
// "when I start as a clone" hat trigger.
func (l *Lowerer) lowerClone(scp *lscope, c *ast.Clone) (string, error) {
	parentFirst, parentLast, err := l.lowerBody(scp, c.SynthesizedParentBlock.Body)
	if err != nil {
		return "", err
	}
	innerFirst, _, err := l.lowerBody(scp, c.InnerBlock.Body)
	if err != nil {
		return "", err
	}
	switch {
	case parentFirst != "" && innerFirst != "":
		l.chain(parentLast, innerFirst)
		return parentFirst, nil
	case parentFirst != "":
		return parentFirst, nil
	default:
		return innerFirst, nil
	}
}

// resolveTarget resolves an assignment's left-hand identifier, special-
// casing the well-known clone discriminator which is never scope-declared
// by an ordinary VariableDeclaration.
func (l *Lowerer) resolveTarget(scp *lscope, name string) (*variable, error) {
	if name == "$clone" {
		return l.cloneVariable(), nil
	}
	v, ok := scp.resolveVar(name)
	if !ok {
		return nil, cerrors.New(cerrors.Record, 0, "undeclared variable %q", name)
	}
	return v, nil
}

// cloneVariable lazily declares the sentinel scalar used to discriminate
// which running clone a guarded clone body belongs to, keyed by the
// well-known ('variable','clone',null) tuple from spec.md §4.I.
func (l *Lowerer) cloneVariable() *variable {
	if l.cloneVar == nil {
		id := l.ids.Alloc(ids.Key("variable", "clone", ""))
		l.variables[id] = [2]any{"$clone", "[NOT ASSIGNED]"}
		l.cloneVar = &variable{id: id, name: "$clone", kind: kindVariable}
	}
	return l.cloneVar
}

// lowerCall lowers a single FunctionCall, either as a user-defined
// procedure call or by consulting stage.BlockTypeTable for compiler-
// synthesized/builtin opcodes.
func (l *Lowerer) lowerCall(scp *lscope, fc *ast.FunctionCall) (string, error) {
	opcode := fc.Name
	if opcode == "print" && !fc.AlwaysBuiltin {
		// print is a user-level convenience mapping to looks_say; the
		// mapping is made explicit here rather than implicitly in the
		// AST-building layer, per spec.md §9(c).
		opcode = "looks_say"
	}

	if !fc.AlwaysBuiltin && opcode != "looks_say" {
		return l.lowerUserCall(scp, fc)
	}

	spec, ok := stage.BlockTypeTable[opcode]
	if !ok {
		return "", cerrors.New(cerrors.Interpret, fc.Line, "unknown opcode %q", opcode)
	}
	total := spec.SlotCount()
	if len(fc.Args) < spec.Required || len(fc.Args) > total {
		return "", cerrors.New(cerrors.Interpret, fc.Line, "%s expects between %d and %d argument(s), got %d", opcode, spec.Required, total, len(fc.Args))
	}

	if opcode == "data_setvariableto" || opcode == "data_changevariableby" {
		ident, ok := fc.Args[0].(*ast.Identifier)
		if !ok {
			return "", cerrors.New(cerrors.Interpret, fc.Line, "%s target must be a scalar identifier", opcode)
		}
		v, err := l.resolveTarget(scp, ident.Name)
		if err != nil {
			return "", err
		}
		if v.kind == kindArgument {
			return "", cerrors.New(cerrors.Interpret, fc.Line, "cannot assign to argument %q", ident.Name)
		}
		v.changeCount++
		if v.isConst && v.changeCount > 1 {
			return "", cerrors.New(cerrors.Interpret, fc.Line, "cannot reassign const %q", ident.Name)
		}
	}

	if spec.Extension != "" {
		l.extensions = append(l.extensions, spec.Extension)
	}

	blk := stage.NewBlock(opcode)
	blk.Shadow = spec.Shadow
	if err := l.fillSlots(scp, spec, fc.Args, blk); err != nil {
		return "", err
	}

	id := l.next("call")
	l.blocks[id] = blk
	return id, nil
}

// fillSlots maps fc's arguments positionally onto spec's fields then
// inputs, encoding each with the Value method its slot kind requires.
func (l *Lowerer) fillSlots(scp *lscope, spec stage.OpSpec, args []ast.Expression, blk *stage.Block) error {
	idx := 0
	for _, name := range spec.Fields {
		val, err := l.lowerExpr(scp, args[idx])
		if err != nil {
			return err
		}
		enc, err := val.AsField()
		if err != nil {
			return err
		}
		blk.Fields[name] = enc
		idx++
	}
	for _, slot := range spec.Inputs {
		if idx >= len(args) {
			blk.Inputs[slot.Name] = nil
			continue
		}
		arg := args[idx]
		idx++

		if slot.Kind == stage.SlotBlock {
			sub, ok := arg.(*ast.Block)
			if !ok {
				return cerrors.New(cerrors.Interpret, 0, "%s expects a block in slot %s", blk.Opcode, slot.Name)
			}
			childFirst, _, err := l.lowerBody(scp.child(tag(l.seq)), sub.Body)
			if err != nil {
				return err
			}
			if childFirst == "" {
				blk.Inputs[slot.Name] = nil
				continue
			}
			enc, _ := stage.NewBlockRef(childFirst).AsBlock()
			blk.Inputs[slot.Name] = enc
			continue
		}

		val, err := l.lowerExpr(scp, arg)
		if err != nil {
			return err
		}
		var enc any
		switch slot.Kind {
		case stage.SlotNormal:
			enc, err = val.AsNormal()
		case stage.SlotBoolean:
			enc, err = val.AsBoolean()
		case stage.SlotShadow:
			enc, err = val.AsShadow()
		}
		if err != nil {
			return err
		}
		blk.Inputs[slot.Name] = enc
	}
	return nil
}

// lowerExpr lowers an expression to a stage.Value. Calls lower to a
// reporter block and are returned as a BlockRef to it.
func (l *Lowerer) lowerExpr(scp *lscope, e ast.Expression) (stage.Value, error) {
	switch v := e.(type) {
	case *ast.Number:
		return stage.NewNum(v.Value), nil
	case *ast.String:
		return stage.NewStr(v.Value), nil
	case *ast.Identifier:
		return l.lowerIdentifier(scp, v)
	case *ast.ListIdentifier:
		vr, ok := scp.resolveVar(v.Name)
		if !ok {
			return nil, cerrors.New(cerrors.Record, v.Line, "undeclared list %q", v.Name)
		}
		return stage.NewVariable(vr.id, vr.name), nil
	case *ast.FunctionCall:
		id, err := l.lowerCall(scp, v)
		if err != nil {
			return nil, err
		}
		return stage.NewBlockRef(id), nil
	case *ast.Custom:
		// A menu option literal, e.g. control_create_clone_of_menu's
		// "_myself_" — never a reporter, always field-encoded.
		return stage.NewLiteral(v.Name), nil
	default:
		return nil, cerrors.New(cerrors.Interpret, 0, "cannot lower %T as a value", e)
	}
}

// lowerIdentifier resolves a bare name reference per spec.md §4.I:
// arguments lower to a fresh argument_reporter_string_number reporter,
// scalars to a Variable value, and the undeclared names {nan, inf, e, pi}
// to their fixed literal values.
func (l *Lowerer) lowerIdentifier(scp *lscope, id *ast.Identifier) (stage.Value, error) {
	if id.Name == "$clone" {
		cv := l.cloneVariable()
		return stage.NewVariable(cv.id, cv.name), nil
	}
	if v, ok := scp.resolveVar(id.Name); ok {
		if v.kind == kindArgument {
			argBlk := stage.NewBlock("argument_reporter_string_number")
			argBlk.Shadow = true
			fv, _ := stage.NewLiteral(v.name).AsField()
			argBlk.Fields["VALUE"] = fv
			bid := l.next("argrep")
			l.blocks[bid] = argBlk
			return stage.NewBlockRef(bid), nil
		}
		return stage.NewVariable(v.id, v.name), nil
	}
	switch id.Name {
	case "nan":
		return stage.NewStr("NaN"), nil
	case "inf":
		return stage.NewStr("Infinity"), nil
	case "e":
		return stage.NewNum(math.E), nil
	case "pi":
		return stage.NewNum(math.Pi), nil
	}
	return nil, cerrors.New(cerrors.Record, id.Line, "undeclared identifier %q", id.Name)
}
