package fogsim

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderExpParams(t *testing.T) {
	named := *CreateExpParameter("Device", []AttrbStruct{{AttrbName: "name", AttrbValue: "edge-zone-1"}}, "idlepower", "75")
	grouped := *CreateExpParameter("Device", []AttrbStruct{{AttrbName: "group", AttrbValue: "edge"}}, "idlepower", "80")
	narrower := *CreateExpParameter("Device", []AttrbStruct{{AttrbName: "group", AttrbValue: "edge"},
		{AttrbName: "level", AttrbValue: "2"}}, "idlepower", "81")
	wild := *CreateExpParameter("Device", []AttrbStruct{{AttrbName: "*"}}, "idlepower", "90")

	ordered := reorderExpParams([]ExpParameter{named, narrower, grouped, wild})
	require.Len(t, ordered, 4)
	assert.True(t, ordered[0].Eq(&wild))
	assert.True(t, ordered[1].Eq(&grouped))
	assert.True(t, ordered[2].Eq(&narrower))
	assert.True(t, ordered[3].Eq(&named))
}

func TestCompareAttrbs(t *testing.T) {
	group := []AttrbStruct{{AttrbName: "group", AttrbValue: "edge"}}
	groupLevel := []AttrbStruct{{AttrbName: "group", AttrbValue: "edge"}, {AttrbName: "level", AttrbValue: "2"}}
	name := []AttrbStruct{{AttrbName: "name", AttrbValue: "cloud"}}

	assert.Equal(t, -1, CompareAttrbs(group, groupLevel))
	assert.Equal(t, 1, CompareAttrbs(groupLevel, group))
	assert.Equal(t, 0, CompareAttrbs(group, name))
	assert.True(t, EqAttrbs(groupLevel, []AttrbStruct{groupLevel[1], groupLevel[0]}))
	assert.False(t, EqAttrbs(group, name))
}

func TestAddAttribute(t *testing.T) {
	epp := CreateExpParameter("Device", []AttrbStruct{}, "busypower", "100")
	require.NoError(t, epp.AddAttribute("group", "edge"))
	require.NoError(t, epp.AddAttribute("group", "south"))
	require.NoError(t, epp.AddAttribute("name", "edge-zone-1"))
	assert.Error(t, epp.AddAttribute("name", "edge-zone-2"))
	assert.Error(t, epp.AddAttribute("tupletype", "PH"))
	assert.Len(t, epp.Attributes, 3)
}

func TestApplyEdgePower(t *testing.T) {
	xd := readAgri(t, "precision_agri_cloud.yaml")
	excfg, err := ReadExpCfg(filepath.Join("testdata", "edge_power.yaml"), true, nil)
	require.NoError(t, err)
	require.Len(t, excfg.Parameters, 4)
	require.NoError(t, ApplyExpCfg(xd, excfg))

	idle := map[string]float64{"cloud": 83.4333, "proxy-server": 83.4333,
		"edge-zone-1": 75.0, "edge-zone-2": 80.0, "edge-zone-3": 80.0, "edge-zone-4": 80.0}
	for _, dd := range xd.Topo.Devices {
		assert.Equal(t, idle[dd.Name], dd.IdlePower, dd.Name)
		assert.Equal(t, 0.001, dd.RatePerMIPS, dd.Name)
	}
	for _, sd := range xd.Sensors {
		if sd.TupleType == "PH" {
			assert.Equal(t, DistDesc{Type: "deterministic", Value: 8.0}, sd.Dist, sd.Name)
		} else {
			assert.NotEqual(t, 8.0, sd.Dist.Value, sd.Name)
		}
	}
}

func TestApplyByLevelAndModule(t *testing.T) {
	xd := readAgri(t, "precision_agri_cloud.yaml")
	excfg := CreateExpCfg("levels")
	require.NoError(t, excfg.AddParameter("Device", []AttrbStruct{{AttrbName: "level", AttrbValue: "1"}}, "mipsperpe", "5600"))
	require.NoError(t, excfg.AddParameter("Module", []AttrbStruct{{AttrbName: "name", AttrbValue: "data_analyzer"}}, "mips", "40"))
	require.NoError(t, excfg.AddParameter("Sensor", []AttrbStruct{{AttrbName: "gateway", AttrbValue: "edge-zone-2"}}, "mean", "3"))
	require.NoError(t, ApplyExpCfg(xd, excfg))

	for _, dd := range xd.Topo.Devices {
		if dd.Name == "proxy-server" {
			assert.Equal(t, 5600.0, dd.MIPSPerPE)
		} else {
			assert.NotEqual(t, 5600.0, dd.MIPSPerPE, dd.Name)
		}
	}
	for _, md := range xd.App.Modules {
		if md.Name == "data_analyzer" {
			assert.Equal(t, 40.0, md.MIPS)
		}
	}
	for _, sd := range xd.Sensors {
		if sd.Gateway == "edge-zone-2" {
			assert.Equal(t, DistDesc{Type: "exponential", Mean: 3.0}, sd.Dist, sd.Name)
		}
	}
}

func TestParameterValidation(t *testing.T) {
	excfg := CreateExpCfg("bad")
	assert.Error(t, excfg.AddParameter("Router", nil, "pes", "1"))
	assert.Error(t, excfg.AddParameter("Device", []AttrbStruct{{AttrbName: "tupletype", AttrbValue: "PH"}}, "pes", "1"))
	assert.Error(t, excfg.AddParameter("Sensor", nil, "busypower", "1"))
	assert.Empty(t, excfg.Parameters)

	xd := readAgri(t, "precision_agri_cloud.yaml")
	excfg.Parameters = append(excfg.Parameters,
		*CreateExpParameter("Device", []AttrbStruct{{AttrbName: "*"}}, "busypower", "lots"),
		*CreateExpParameter("Module", []AttrbStruct{{AttrbName: "group", AttrbValue: "x"}}, "mips", "1"))
	err := ApplyExpCfg(xd, excfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lots")
	assert.Contains(t, err.Error(), "group")

	assert.NoError(t, ApplyExpCfg(xd, nil))
}

func TestExpCfgRoundTrip(t *testing.T) {
	excfg, err := ReadExpCfg(filepath.Join("testdata", "edge_power.yaml"), true, nil)
	require.NoError(t, err)
	filename := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, excfg.WriteToFile(filename))

	back, err := ReadExpCfg(filename, false, nil)
	require.NoError(t, err)
	require.Len(t, back.Parameters, len(excfg.Parameters))
	for idx := range back.Parameters {
		assert.True(t, back.Parameters[idx].Eq(&excfg.Parameters[idx]))
	}

	_, err = ReadExpCfg(filepath.Join("testdata", "absent.yaml"), true, nil)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
