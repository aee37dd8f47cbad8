package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	c := catalog.New()
	c.MustRegisterConstants(
		catalog.ConstantSet{
			Key:  "Flags",
			Kind: catalog.KindFlags,
			Constants: []catalog.Constant{
				{Name: "COMMFLAG", Value: versioning.Fixed(0x01)},
				{Name: "CUTLIST", Value: versioning.Fixed(0x02)},
				{Name: "INUSERECORDING", Value: versioning.MustValue(
					versioning.At(0, 0x20), versioning.At(57, 0x00100000))},
				{Name: "WATCHED", Value: versioning.Fixed(0x1000)},
				{Name: "REALLYEDITING", Range: versioning.Since(60), Value: versioning.Fixed(0x04)},
			},
		},
		catalog.ConstantSet{
			Key:  "Status",
			Kind: catalog.KindEnum,
			Constants: []catalog.Constant{
				{Name: "WILL_RECORD", Value: versioning.Fixed(-1)},
				{Name: "UNKNOWN_STATUS", Value: versioning.Fixed(0)},
				{Name: "CONFLICT", Value: versioning.Fixed(7)},
				{Name: "OFFLINE", Value: versioning.MustValue(versioning.At(0, -13), versioning.At(82, 12))},
				{Name: "FAILING", Range: versioning.Since(82), Value: versioning.Fixed(-15)},
			},
		},
	)
	return c
}

func TestFlags_VersionRemappedBit(t *testing.T) {
	c := testCatalog(t)

	assert.True(t, NewFlags(c, "Flags", 50, 0x20).IsSet("INUSERECORDING"))
	assert.False(t, NewFlags(c, "Flags", 60, 0x20).IsSet("INUSERECORDING"))
	assert.True(t, NewFlags(c, "Flags", 60, 0x100000).IsSet("INUSERECORDING"))
}

func TestFlags_SetAndClear(t *testing.T) {
	c := testCatalog(t)
	f := NewFlags(c, "Flags", 60, 0)

	assert.True(t, f.Set("CUTLIST"))
	assert.False(t, f.Set("CUTLIST"), "setting twice must report no change")
	assert.Equal(t, int64(0x02), f.Value())

	assert.True(t, f.Clear("CUTLIST"))
	assert.False(t, f.Clear("CUTLIST"))
	assert.Equal(t, int64(0), f.Value())

	assert.False(t, f.Set("NOT_A_FLAG"))
}

func TestFlags_UnavailableFlagIsNeverSet(t *testing.T) {
	c := testCatalog(t)
	f := NewFlags(c, "Flags", 59, 0x04)

	assert.False(t, f.IsSet("REALLYEDITING"))
	assert.False(t, f.Set("REALLYEDITING"))
	assert.Equal(t, int64(0x04), f.UnknownBits())
}

func TestFlags_Independence(t *testing.T) {
	c := testCatalog(t)

	for _, v := range []versioning.Version{50, 60, 90} {
		consts := c.ConstantsAt("Flags", v)
		for _, a := range consts {
			for _, b := range consts {
				if a.Name == b.Name {
					continue
				}
				f := NewFlags(c, "Flags", v, 0)
				before := f.IsSet(b.Name)
				f.Set(a.Name)
				assert.Equal(t, before, f.IsSet(b.Name), "setting %s changed %s at %d", a.Name, b.Name, v)

				f = NewFlags(c, "Flags", v, 0)
				f.Set(b.Name)
				f.Set(a.Name)
				assert.True(t, f.IsSet(b.Name), "setting %s cleared %s at %d", a.Name, b.Name, v)
				f.Clear(a.Name)
				assert.True(t, f.IsSet(b.Name), "clearing %s cleared %s at %d", a.Name, b.Name, v)
			}
		}
	}
}

func TestFlags_ActiveAndString(t *testing.T) {
	c := testCatalog(t)
	f := NewFlags(c, "Flags", 60, 0x01|0x1000|0x100000|0x8000)

	assert.Equal(t, []string{"COMMFLAG", "INUSERECORDING", "WATCHED"}, f.Active())
	assert.Equal(t, int64(0x8000), f.UnknownBits())
	assert.Equal(t, "COMMFLAG|INUSERECORDING|WATCHED|0x8000", f.String())
	assert.Equal(t, "0", NewFlags(c, "Flags", 60, 0).String())
}

func TestFlags_EqualAndClone(t *testing.T) {
	c := testCatalog(t)
	a := NewFlags(c, "Flags", 60, 3)
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Set("WATCHED")
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(NewFlags(c, "Flags", 61, 3)))
	assert.True(t, (*Flags)(nil).Equal(nil))
}

func TestEnum_Exclusivity(t *testing.T) {
	c := testCatalog(t)

	for _, v := range []versioning.Version{60, 85} {
		for _, k := range c.ConstantsAt("Status", v) {
			e := NewEnum(c, "Status", v, 12345)
			require.NoError(t, e.SetEnum(k.Name))

			got, ok := e.Constant()
			require.True(t, ok)
			assert.Equal(t, k.Name, got.Name)

			for _, other := range c.ConstantsAt("Status", v) {
				if other.Name != k.Name {
					assert.False(t, e.Is(other.Name), "%s active alongside %s at %d", other.Name, k.Name, v)
				}
			}
		}
	}
}

func TestEnum_VersionRemappedValue(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, "OFFLINE", NewEnum(c, "Status", 70, -13).Name())
	assert.Equal(t, "OFFLINE", NewEnum(c, "Status", 82, 12).Name())
	assert.True(t, NewEnum(c, "Status", 82, -13).IsUnknown())

	e := NewEnum(c, "Status", 82, 0)
	require.NoError(t, e.SetEnum("OFFLINE"))
	assert.Equal(t, int64(12), e.Value())
}

func TestEnum_UnknownValueIsTolerated(t *testing.T) {
	c := testCatalog(t)
	e := NewEnum(c, "Status", 70, 99)

	_, ok := e.Constant()
	assert.False(t, ok)
	assert.True(t, e.IsUnknown())
	assert.Equal(t, UnknownName, e.Name())
	assert.Equal(t, "UNKNOWN(99)", e.String())
}

func TestEnum_SetUnavailableConstant(t *testing.T) {
	c := testCatalog(t)
	e := NewEnum(c, "Status", 70, 0)

	err := e.SetEnum("FAILING")
	require.ErrorIs(t, err, ErrUnknownConstant)
	assert.Equal(t, int64(0), e.Value())
}
