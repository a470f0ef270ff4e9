package control

import (
	"github.com/viperlang/ilc/internal/il"
	"github.com/viperlang/ilc/internal/lower"
	"github.com/viperlang/ilc/internal/source"
)

// LowerTryCatch lowers a TRY/CATCH block to the eh.push/eh.pop discipline
// the verifier's pass 5 checks: eh.push names the handler block, the
// protected body runs, a matching eh.pop releases the handler on the normal
// path, and the handler block opens with eh.entry and two block parameters
// (%err: Error, %tok: ResumeTok) the runtime bridge supplies when it
// transfers control there, ending with one of the resume.* forms. Both
// paths join at doneLabel.
//
// tryBody must not itself push further handlers it doesn't pop before
// returning control to this helper (nested try/catch composes by calling
// LowerTryCatch again from within tryBody).
func LowerTryCatch(b *il.Builder, namer *lower.BlockNamer, tryBody func(b *il.Builder), catchBody func(b *il.Builder, errVal, token il.Value), loc source.Loc) {
	handlerLabel := namer.Next("catch")
	doneLabel := namer.Next("try.done")

	b.Emit(il.Instr{Op: il.OpEHPush, Loc: loc, Labels: []string{handlerLabel}})

	tryBody(b)
	if !b.Current().Terminated {
		b.EmitVoid(il.OpEHPop, loc)
		b.EmitBr(loc, doneLabel)
	}

	handlerBlk := b.NewBlock(handlerLabel,
		il.BlockParam{Name: "err", Ty: il.Error},
		il.BlockParam{Name: "tok", Ty: il.ResumeTok},
	)
	b.SetCurrent(handlerBlk)
	b.EmitVoid(il.OpEHEntry, loc)
	errVal := il.BlockParam(il.Error, "err", handlerBlk.Params[0].ID)
	token := il.BlockParam(il.ResumeTok, "tok", handlerBlk.Params[1].ID)
	catchBody(b, errVal, token)
	if !handlerBlk.Terminated {
		b.EmitVoid(il.OpResumeNext, loc, token)
	}

	b.SetCurrent(b.NewBlock(doneLabel))
}
