package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"arkoi/internal/ir"
)

// RODataPool collects the distinct float immediates a function's Constant
// instructions reference and assigns each a deterministic `.rodata` label,
// per spec.md §4.8. Labels are derived from the float's own canonical
// text via strcase so two functions referencing the same constant emit
// the same label and the pool never depends on insertion order alone.
type RODataPool struct {
	labels map[uint64]string
	order  []uint64
	byBits map[uint64]ir.Immediate
}

func NewRODataPool() *RODataPool {
	return &RODataPool{labels: map[uint64]string{}, byBits: map[uint64]ir.Immediate{}}
}

// Label returns the `.rodata` label for imm, minting one on first sight.
func (p *RODataPool) Label(imm ir.Immediate) string {
	key := imm.Bits
	if label, ok := p.labels[key]; ok {
		return label
	}
	text := fmt.Sprintf("f%d_%s", imm.Typ.Size*8, sanitizeFloatText(imm.String()))
	label := ".LC_" + strcase.ToSnake(text)
	p.labels[key] = label
	p.byBits[key] = imm
	p.order = append(p.order, key)
	return label
}

// sanitizeFloatText strips characters strcase.ToSnake would otherwise
// leave awkward in a label ("-", ".") into ASCII words a linker-safe
// symbol can contain.
func sanitizeFloatText(s string) string {
	s = strings.ReplaceAll(s, "-", "neg_")
	s = strings.ReplaceAll(s, "+", "")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// Directives renders the pool as `.rodata` section text: one aligned
// label plus its literal bit pattern per entry, in first-seen order.
func (p *RODataPool) Directives() []AssemblyItem {
	if len(p.order) == 0 {
		return nil
	}
	items := []AssemblyItem{Directive{Text: "section .rodata"}}
	for _, key := range p.order {
		imm := p.byBits[key]
		align := 4
		if imm.Typ.Size == 8 {
			align = 8
		}
		items = append(items,
			Directive{Text: fmt.Sprintf("align %d", align)},
			Label{Name: p.labels[key]},
			Directive{Text: fmt.Sprintf("%s %s", dataDirective(imm.Typ.Size), strconv.FormatUint(key, 10))},
		)
	}
	return items
}

func dataDirective(size int) string {
	if size == 8 {
		return "dq"
	}
	return "dd"
}
