package environment_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsfuzz/jsfuzz/internal/environment"
	"github.com/jsfuzz/jsfuzz/internal/iltype"
)

func newDefault(t *testing.T) *environment.Environment {
	t.Helper()
	e := environment.New()
	e.Load(environment.DefaultProfile{})
	return e
}

func TestNew_InterestingConstants(t *testing.T) {
	e := environment.New()
	require.Contains(t, e.InterestingIntegers, int64(9223372036854775807))
	require.NotEmpty(t, e.InterestingFloats)
	require.NotEmpty(t, e.InterestingStrings)
}

func TestDropInt64Max(t *testing.T) {
	e := environment.New()
	e.DropInt64Max()
	for _, v := range e.InterestingIntegers {
		require.NotEqual(t, int64(9223372036854775807), v)
	}
}

func TestDefaultProfile_RegistersBuiltinsAndGroups(t *testing.T) {
	e := newDefault(t)
	require.Contains(t, e.BuiltinNames(), "Array")
	require.Contains(t, e.GroupNames(), "Array.prototype")

	arrType := e.TypeOfBuiltin("Array")
	require.True(t, arrType.MayBe(iltype.Of(iltype.Constructor)))

	unknown := e.TypeOfBuiltin("NoSuchBuiltin")
	require.Equal(t, iltype.Anything, unknown)
}

func TestTypeOfProperty_WalksParentChain(t *testing.T) {
	e := newDefault(t)
	arr := e.TypeForGroup("Array.prototype", iltype.Object)

	length := e.TypeOfProperty("length", arr, false)
	require.True(t, length.Is(iltype.Of(iltype.Integer)))

	ctor := e.TypeOfProperty("constructor", arr, false)
	require.Equal(t, iltype.Anything, ctor)

	guarded := e.TypeOfProperty("nonexistent", arr, true)
	require.True(t, guarded.MayBe(iltype.Of(iltype.Undefined)))
}

func TestMethodSignature_WalksParentChain(t *testing.T) {
	e := newDefault(t)
	arr := e.TypeForGroup("Array.prototype", iltype.Object)

	sig, ok := e.MethodSignature("push", arr)
	require.True(t, ok)
	require.Len(t, sig.Params, 1)
	require.Equal(t, iltype.ParamRest, sig.Params[0].Kind)

	sig, ok = e.MethodSignature("toString", arr)
	require.True(t, ok)
	require.True(t, sig.Return.Is(iltype.Of(iltype.String)))

	_, ok = e.MethodSignature("nope", arr)
	require.False(t, ok)
}

func TestDateNowIsStaticOnly(t *testing.T) {
	e := newDefault(t)
	instance := e.TypeForGroup("Date.prototype", iltype.Object)
	_, ok := e.MethodSignature("now", instance)
	require.False(t, ok, "now must not be reachable from the Date instance prototype")

	ctor := e.TypeForGroup("Date.constructor", iltype.Object)
	_, ok = e.MethodSignature("now", ctor)
	require.True(t, ok)
}

func TestProducingMethodsFor(t *testing.T) {
	e := newDefault(t)
	producers := e.ProducingMethodsFor(iltype.Of(iltype.String))
	found := false
	for _, p := range producers {
		if p.Group == "Array.prototype" && p.Method == "join" {
			found = true
		}
		require.Equal(t, p.Group+"."+p.Method, p.String())
	}
	require.True(t, found)
}

func TestInstanceType_FallsBackWithoutPrototype(t *testing.T) {
	e := newDefault(t)
	arrInstance := environment.InstanceType(e, "Array")
	require.True(t, arrInstance.Is(iltype.Of(iltype.Object)))
	require.Equal(t, "Array.prototype", arrInstance.Ext.Group)

	fallback := environment.InstanceType(e, "NoSuchCtor")
	require.Equal(t, iltype.Of(iltype.Object), fallback)
}
