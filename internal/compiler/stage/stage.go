// Package stage models the target block-based project format: blocks,
// variable/list tables, and the extensions list the lowerer populates.
// See spec.md §3 ("Stage block (output)") and §6.
package stage

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	cerrors "scl/internal/compiler/errors"
)

// Block is one emitted stage block: a dict with opcode, next, parent,
// inputs, fields, shadow, topLevel, and an optional mutation record for
// custom-procedure blocks.
type Block struct {
	Opcode   string         `json:"opcode"`
	Next     *string        `json:"next"`
	Parent   *string        `json:"parent"`
	Inputs   map[string]any `json:"inputs"`
	Fields   map[string]any `json:"fields"`
	Shadow   bool           `json:"shadow"`
	TopLevel bool           `json:"topLevel"`
	Mutation *Mutation      `json:"mutation,omitempty"`
}

// NewBlock returns a Block with empty (never nil) inputs/fields maps, so
// it marshals as {} rather than null when no slot is populated, and with
// parent initially unset — the lowerer patches Parent once the block is
// attached under its owner, per spec.md §3's "parent links are patched"
// lifecycle rule.
func NewBlock(opcode string) *Block {
	return &Block{
		Opcode: opcode,
		Inputs: make(map[string]any),
		Fields: make(map[string]any),
	}
}

// Mutation carries a custom procedure's signature metadata. Every field
// mirrors the stage format's string-encoded JSON sub-values, per
// spec.md §4.I.
type Mutation struct {
	TagName          string `json:"tagName"`
	Children         []any  `json:"children"`
	ProcCode         string `json:"proccode"`
	ArgumentIDs      string `json:"argumentids"`
	ArgumentNames    string `json:"argumentnames,omitempty"`
	ArgumentDefaults string `json:"argumentdefaults,omitempty"`
	Warp             string `json:"warp"`
}

// JSONArray renders ss as a JSON array literal packed into a string, the
// shape the stage format stores mutation.argumentids/argumentnames/
// argumentdefaults in.
func JSONArray(ss []string) string {
	b, _ := json.Marshal(ss)
	return string(b)
}

// Project wraps a parsed project template. The lowerer only ever touches
// targets[1].blocks (the sprite), targets[0].variables/lists (the stage),
// and the top-level extensions list; everything else in the template
// (monitors, meta, costumes, ...) passes through untouched, per spec.md
// §6's "copied from a template" contract.
type Project struct {
	raw map[string]any
}

// NewProject parses a template project.json. The template must already
// contain at least two targets (stage, sprite), per spec.md §3's Glossary
// entry for "Sprite / stage target".
func NewProject(template []byte) (*Project, error) {
	var raw map[string]any
	if err := json.Unmarshal(template, &raw); err != nil {
		return nil, cerrors.New(cerrors.Interpret, 0, "malformed project template: %v", err)
	}
	targets, ok := raw["targets"].([]any)
	if !ok || len(targets) < 2 {
		return nil, cerrors.New(cerrors.Interpret, 0, "project template must declare a stage and a sprite target")
	}
	return &Project{raw: raw}, nil
}

func (p *Project) targets() []any { return p.raw["targets"].([]any) }

func (p *Project) stageTarget() map[string]any  { return p.targets()[0].(map[string]any) }
func (p *Project) spriteTarget() map[string]any { return p.targets()[1].(map[string]any) }

// SetBlocks installs the sprite's block graph.
func (p *Project) SetBlocks(blocks map[string]*Block) {
	p.spriteTarget()["blocks"] = blocks
}

// SetVariables installs the stage's variable table: id -> [name, initial].
func (p *Project) SetVariables(vars map[string][2]any) {
	p.stageTarget()["variables"] = vars
}

// SetLists installs the stage's list table: id -> [name, initial].
func (p *Project) SetLists(lists map[string][2]any) {
	p.stageTarget()["lists"] = lists
}

// AddExtension appends name to the project's extensions list if it is not
// already present, per spec.md §4.I's "no duplicates" rule. Reports
// whether it was newly added.
func (p *Project) AddExtension(name string) bool {
	existing, _ := p.raw["extensions"].([]any)
	for _, e := range existing {
		if s, ok := e.(string); ok && s == name {
			return false
		}
	}
	p.raw["extensions"] = append(existing, name)
	return true
}

// Marshal renders the project as compact, deterministic JSON, per
// spec.md §6's "compact separators ... must be deterministic given the
// same input" requirement.
func (p *Project) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p.raw); err != nil {
		return nil, cerrors.New(cerrors.Interpret, 0, "encoding project: %v", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// formatNumber renders a float64 the way the source language's str(value)
// would: integral values print without a trailing ".0".
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	return strings.TrimSuffix(s, ".")
}
