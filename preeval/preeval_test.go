package preeval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/preeval"
	"github.com/jcorbin/cmdlang/values"
)

func TestPreEvaluator_ClassifiesInputsAndOutputs(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "cc ${input:SRC} -o ${output:OBJ}")
	require.NoError(t, err)

	pe := &preeval.PreEvaluator{Values: st, Mode: preeval.Default}
	pe.Run(s)

	require.Len(t, pe.Inputs.Entries, 1)
	require.Equal(t, "SRC", pe.Inputs.Entries[0].Name)
	require.Len(t, pe.Outputs.Entries, 1)
	require.Equal(t, "OBJ", pe.Outputs.Entries[0].Name)
}

func TestPreEvaluator_ModuleModeRejectsSecondOutput(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "cc ${output:A} ${output:B}")
	require.NoError(t, err)

	shower := preeval.NewShower(preeval.ShowerAll)
	pe := &preeval.PreEvaluator{Values: st, Mode: preeval.Module, Shower: shower}
	pe.Run(s)

	require.Len(t, pe.Outputs.Entries, 1)
	require.Equal(t, "A", pe.Outputs.Entries[0].Name)
	require.Equal(t, 1, shower.Count())
	require.Len(t, shower.Errors, 1)
}

func TestPreEvaluator_Flags(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "cc ${input;glob:PAT}")
	require.NoError(t, err)

	pe := &preeval.PreEvaluator{Values: st, Mode: preeval.Default}
	pe.Run(s)

	require.Len(t, pe.Inputs.Entries, 1)
	require.True(t, pe.Inputs.Entries[0].Flags.Glob)
}

func TestTable_Add_Uniques(t *testing.T) {
	var tbl preeval.Table
	b1 := tbl.Add("X", preeval.Flags{})
	b2 := tbl.Add("X", preeval.Flags{Glob: true})
	require.Equal(t, b1, b2)
	require.Len(t, tbl.Entries, 1)
	require.True(t, tbl.Entries[0].Flags.Glob)
}

func TestShower_OneKeepsShallowest(t *testing.T) {
	s := preeval.NewShower(preeval.ShowerOne)
	s.Report(2, errDummy{})
	s.Report(1, errDummy{})
	s.Report(3, errDummy{})
	require.Equal(t, 3, s.Count())
	require.Len(t, s.Errors, 2, "depth 2 accepted first, then depth 1 beats it; depth 3 does not beat depth 1")
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
