package iltype_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

func TestIs_BitsAndExtension(t *testing.T) {
	number := iltype.Of(iltype.Integer | iltype.Float)
	require.True(t, iltype.Of(iltype.Integer).Is(number))
	require.False(t, number.Is(iltype.Of(iltype.Integer)))

	arr := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", []string{"length"}, []string{"push"}, nil))
	wantArrayLike := iltype.WithExtension(iltype.Object, iltype.NewExtension("", []string{"length"}, nil, nil))
	require.True(t, arr.Is(wantArrayLike))

	wantOtherGroup := iltype.WithExtension(iltype.Object, iltype.NewExtension("Map", nil, nil, nil))
	require.False(t, arr.Is(wantOtherGroup))
}

func TestMayBe_Overlap(t *testing.T) {
	numOrString := iltype.Of(iltype.Integer | iltype.String)
	require.True(t, numOrString.MayBe(iltype.Of(iltype.String)))
	require.False(t, numOrString.MayBe(iltype.Of(iltype.Boolean)))
}

func TestUnion_DegradesExtensionOnMismatch(t *testing.T) {
	a := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", nil, nil, nil))
	b := iltype.WithExtension(iltype.Object, iltype.NewExtension("Map", nil, nil, nil))
	u := iltype.Union(a, b)
	require.Equal(t, iltype.Object, u.Bits)
	require.Nil(t, u.Ext)

	same := iltype.Union(a, a)
	require.NotNil(t, same.Ext)
	require.Equal(t, "Array", same.Ext.Group)
}

func TestIntersect_EmptyBitsIsNothing(t *testing.T) {
	i := iltype.Intersect(iltype.Of(iltype.Integer), iltype.Of(iltype.String))
	require.Equal(t, iltype.Nothing, i)
}

func TestIntersect_MergesExtensionProperties(t *testing.T) {
	a := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", []string{"length"}, nil, nil))
	b := iltype.WithExtension(iltype.Object, iltype.NewExtension("", []string{"byteLength"}, []string{"push"}, nil))
	i := iltype.Intersect(a, b)
	require.Equal(t, "Array", i.Ext.Group)
	require.Equal(t, []string{"byteLength", "length"}, i.Ext.Properties)
	require.Equal(t, []string{"push"}, i.Ext.Methods)
}

func TestMergeBranches(t *testing.T) {
	result := iltype.MergeBranches(iltype.Of(iltype.Integer), iltype.Of(iltype.String), iltype.Of(iltype.Undefined))
	require.True(t, result.MayBe(iltype.Of(iltype.Integer)))
	require.True(t, result.MayBe(iltype.Of(iltype.String)))
	require.True(t, result.MayBe(iltype.Of(iltype.Undefined)))
	require.False(t, result.MayBe(iltype.Of(iltype.Boolean)))

	require.Equal(t, iltype.Nothing, iltype.MergeBranches())
}

func TestString_Rendering(t *testing.T) {
	require.Equal(t, "nothing", iltype.Nothing.String())
	require.Equal(t, "anything", iltype.Anything.String())
	require.Equal(t, "integer|float", iltype.Of(iltype.Integer|iltype.Float).String())

	obj := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", nil, nil, nil))
	require.Equal(t, "object{Array}", obj.String())
}

func TestEqual_StructuralComparison(t *testing.T) {
	a := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", []string{"length"}, nil, nil))
	b := iltype.WithExtension(iltype.Object, iltype.NewExtension("Array", []string{"length"}, nil, nil))
	require.True(t, iltype.Equal(a, b))

	c := iltype.WithExtension(iltype.Object, iltype.NewExtension("Map", []string{"length"}, nil, nil))
	require.False(t, iltype.Equal(a, c))

	require.True(t, iltype.Equal(iltype.Of(iltype.Integer), iltype.Of(iltype.Integer)))
	require.False(t, iltype.Equal(iltype.Of(iltype.Integer), iltype.Of(iltype.String)))
}

func TestSignatureHelpers(t *testing.T) {
	sig := iltype.Signature{
		Params: []iltype.Parameter{
			iltype.Plain(iltype.Of(iltype.Integer)),
			iltype.Opt(iltype.Of(iltype.String)),
			iltype.Rest(iltype.Of(iltype.Object)),
		},
		Return: iltype.Of(iltype.Undefined),
	}
	require.Equal(t, iltype.ParamPlain, sig.Params[0].Kind)
	require.Equal(t, iltype.ParamOpt, sig.Params[1].Kind)
	require.Equal(t, iltype.ParamRest, sig.Params[2].Kind)
}
