package interfaceblock

import (
	"testing"

	"github.com/notargets/LSKernel/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExtents = field.Extents{X: 8, Y: 6, Z: 4}

func assertUniform(t *testing.T, buf *field.Buffer, want float64, msgAndArgs ...interface{}) {
	t.Helper()
	for n, v := range buf.Data() {
		if !assert.Equal(t, want, v, msgAndArgs...) {
			t.Logf("first mismatch at flat index %d", n)
			return
		}
	}
}

func rampField(ext field.Extents) *field.Buffer {
	f := field.New(ext)
	for n := range f.Data() {
		f.Data()[n] = 0.25*float64(n) - 3
	}
	return f
}

// assertZeroTail checks Initial, states and parameters, which both
// constructors leave at zero
func assertZeroTail(t *testing.T, b *Block) {
	t.Helper()
	for d := Description(0); d < NumDescriptions; d++ {
		assertUniform(t, b.Initial(d), 0, "Initial %v", d)
	}
	for s := State(0); s < NumStates; s++ {
		assertUniform(t, b.State(s), 0, "State %v", s)
	}
	if b.HasParameters() {
		params, err := b.Parameters()
		require.NoError(t, err)
		for p := Parameter(0); p < NumParameters; p++ {
			assertUniform(t, params.Get(p), 0, "Parameter %v", p)
		}
	}
}

func TestFromField(t *testing.T) {
	for _, parameterModel := range []bool{false, true} {
		name := "without parameters"
		if parameterModel {
			name = "with parameters"
		}
		t.Run(name, func(t *testing.T) {
			layout := NewLayout(Config{Extents: testExtents, ParameterModel: parameterModel})
			f := rampField(testExtents)
			b := layout.FromField(f)

			assert.Equal(t, f.Data(), b.RightHandSide(Levelset).Data())
			assert.Equal(t, f.Data(), b.Reinitialized(Levelset).Data())
			assertUniform(t, b.Base(Levelset), 0)
			assertUniform(t, b.Base(VolumeFraction), 0)
			assertUniform(t, b.RightHandSide(VolumeFraction), 0)
			assertUniform(t, b.Reinitialized(VolumeFraction), 0)
			assertZeroTail(t, b)

			// Copies, not views of the caller's field
			f.Fill(42)
			assert.NotEqual(t, 42.0, b.RightHandSide(Levelset).At(0, 0, 0))
			b.RightHandSide(Levelset).Set(1, 1, 1, 7)
			assert.NotEqual(t, 7.0, b.Reinitialized(Levelset).At(1, 1, 1))
		})
	}
}

func TestFromFieldPanicsOnExtentMismatch(t *testing.T) {
	layout := NewLayout(Config{Extents: testExtents})
	assert.Panics(t, func() {
		layout.FromField(field.New(field.Extents{X: 8, Y: 6, Z: 5}))
	})
}

func TestFromValue(t *testing.T) {
	testCases := []struct {
		name  string
		value float64
		phase float64
	}{
		{"positive", 2.5, 1},
		{"negative", -1, 0},
		{"zero counts as negative phase", 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			layout := NewLayout(Config{Extents: testExtents, ParameterModel: true})
			b := layout.FromValue(tc.value)

			assertUniform(t, b.Base(Levelset), 0)
			assertUniform(t, b.Base(VolumeFraction), tc.phase)
			assertUniform(t, b.RightHandSide(Levelset), tc.value)
			assertUniform(t, b.Reinitialized(Levelset), tc.value)
			assertUniform(t, b.RightHandSide(VolumeFraction), 0)
			assertUniform(t, b.Reinitialized(VolumeFraction), 0)
			assertZeroTail(t, b)
		})
	}
}

func TestAccessorsReturnLiveStorage(t *testing.T) {
	layout := NewLayout(Config{Extents: testExtents, ParameterModel: true})
	b := layout.FromValue(1)

	b.Base(Levelset).Set(2, 3, 1, 9)
	assert.Equal(t, 9.0, b.Descriptions(Base).Get(Levelset).At(2, 3, 1))
	assert.Equal(t, 9.0, b.Description(Base, Levelset).At(2, 3, 1))

	buf, err := b.Buffer(LevelsetBase)
	require.NoError(t, err)
	assert.Same(t, b.Base(Levelset), buf)

	b.States().Get(PressureNegative).Fill(3)
	assertUniform(t, b.State(PressureNegative), 3)

	p, err := b.Parameter(SurfaceTensionCoefficient)
	require.NoError(t, err)
	p.Fill(0.07)
	params, err := b.Parameters()
	require.NoError(t, err)
	assertUniform(t, params.Get(SurfaceTensionCoefficient), 0.07)
}

func TestBuffersAreDisjoint(t *testing.T) {
	layout := NewLayout(Config{Extents: testExtents, ParameterModel: true})
	b := layout.FromValue(0)
	ids := b.BufferIDs()
	require.Len(t, ids, NumBufferIDs)

	for n, id := range ids {
		buf, err := b.Buffer(id)
		require.NoError(t, err)
		buf.Fill(float64(n + 1))
	}
	for n, id := range ids {
		buf, err := b.Buffer(id)
		require.NoError(t, err)
		assertUniform(t, buf, float64(n+1), "buffer %v", id)
	}
}

func TestBufferIDMapping(t *testing.T) {
	layout := NewLayout(Config{Extents: testExtents, ParameterModel: true})
	b := layout.FromValue(1)

	for r := Role(0); r < NumRoles; r++ {
		for d := Description(0); d < NumDescriptions; d++ {
			buf, err := b.Buffer(DescriptionID(r, d))
			require.NoError(t, err)
			assert.Same(t, b.Description(r, d), buf, "%v %v", r, d)
		}
	}
	for s := State(0); s < NumStates; s++ {
		buf, err := b.Buffer(StateID(s))
		require.NoError(t, err)
		assert.Same(t, b.State(s), buf)
	}

	assert.Equal(t, VolumeFractionReinitialized, DescriptionID(Reinitialized, VolumeFraction))
	assert.Equal(t, StatePressurePositive, StateID(PressurePositive))
	assert.Equal(t, ParameterSurfaceTensionCoefficient, ParameterID(SurfaceTensionCoefficient))
	assert.Equal(t, "LevelsetInitial", LevelsetInitial.String())
	assert.Equal(t, "StateVelocity", StateVelocity.String())
	assert.Equal(t, "ParameterSurfaceTensionCoefficient", ParameterSurfaceTensionCoefficient.String())
	assert.Equal(t, "BufferID(200)", BufferID(200).String())
}

func TestBufferCounts(t *testing.T) {
	without := NewLayout(Config{Extents: testExtents})
	with := NewLayout(Config{Extents: testExtents, ParameterModel: true})

	assert.Equal(t, 11, without.NumBuffers())
	assert.Equal(t, 12, with.NumBuffers())
	assert.False(t, without.FromValue(1).HasParameters())
	assert.True(t, with.FromValue(1).HasParameters())
	assert.Len(t, without.FromValue(1).BufferIDs(), 11)
	assert.Equal(t, testExtents, with.FromValue(1).Extents())
}

func TestCaptureInitial(t *testing.T) {
	layout := NewLayout(Config{Extents: testExtents})
	b := layout.FromField(rampField(testExtents))
	b.Base(Levelset).CopyFrom(b.RightHandSide(Levelset))
	b.Base(VolumeFraction).Fill(0.5)

	b.CaptureInitial()
	assert.Equal(t, b.Base(Levelset).Data(), b.Initial(Levelset).Data())
	assertUniform(t, b.Initial(VolumeFraction), 0.5)

	b.Base(Levelset).Fill(0)
	assert.NotEqual(t, 0.0, b.Initial(Levelset).At(0, 0, 0))
}
