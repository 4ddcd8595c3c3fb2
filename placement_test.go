package fogsim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticMappingLookup(t *testing.T) {
	tp := agriTopology(t, 4)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)

	sm := &StaticMapping{Hints: allOn("cloud")}
	ma, err := sm.Place(tp, app, bd)
	require.NoError(t, err)
	for _, name := range agriModules() {
		assert.Equal(t, []DeviceID{tp.Root()}, ma.Hosts(name), name)
	}
	assert.Equal(t, []string{"data_analyzer", "humidity_module", "light_intensity_module", "pH_module",
		"soil_moisture_module", "temperature_module"}, ma.ResidentOn(tp.Root()))
	assert.Empty(t, ma.ResidentOn(devID(t, tp, "proxy-server")))
	assert.Equal(t, allOn("cloud"), ma.Table(tp))
}

func TestStaticMappingMissingEntries(t *testing.T) {
	tp := agriTopology(t, 1)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)
	var unplaceable *UnplaceableModuleError

	hints := allOn("cloud")
	delete(hints, "pH_module")
	_, err := (&StaticMapping{Hints: hints}).Place(tp, app, bd)
	require.True(t, errors.As(err, &unplaceable))
	assert.Equal(t, "pH_module", unplaceable.Module)

	hints = allOn("cloud")
	hints["pH_module"] = []string{"nowhere"}
	_, err = (&StaticMapping{Hints: hints}).Place(tp, app, bd)
	assert.True(t, errors.As(err, &unplaceable))

	hints = allOn("cloud")
	hints["ghost"] = []string{"cloud"}
	_, err = (&StaticMapping{Hints: hints}).Place(tp, app, bd)
	var unknown *UnknownModuleError
	assert.True(t, errors.As(err, &unknown))
}

func TestEdgeWardPushesStreamsToEdges(t *testing.T) {
	tp := agriTopology(t, 4)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)

	ew := &EdgeWard{Hints: map[string][]string{"data_analyzer": {"cloud"}}}
	ma, err := ew.Place(tp, app, bd)
	require.NoError(t, err)

	for _, st := range agriStreams {
		hosts := ma.Hosts(st.module)
		require.Len(t, hosts, 4, st.module)
		for _, host := range hosts {
			assert.Equal(t, 2, tp.LevelOf(host), st.module)
		}
		for idx := 1; idx <= 4; idx++ {
			edge := devID(t, tp, fmt.Sprintf("edge-zone-%d", idx))
			host, present := ma.HostFor(tp, st.module, edge)
			require.True(t, present)
			assert.Equal(t, edge, host)
		}
	}
	assert.Equal(t, []DeviceID{tp.Root()}, ma.Hosts("data_analyzer"))
}

func TestEdgeWardAggregateAtCommonAncestor(t *testing.T) {
	tp := agriTopology(t, 4)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)

	ma, err := (&EdgeWard{}).Place(tp, app, bd)
	require.NoError(t, err)

	// the analyzer joins five inputs from four zones: one instance, at the proxy
	assert.Equal(t, []DeviceID{devID(t, tp, "proxy-server")}, ma.Hosts("data_analyzer"))
}

func TestEdgeWardIdempotent(t *testing.T) {
	tp := agriTopology(t, 4)
	app := agriApplication(t, 0.2)
	bd := agriBindings(t, tp)

	ew := &EdgeWard{Hints: map[string][]string{"data_analyzer": {"cloud"}}}
	first, err := ew.Place(tp, app, bd)
	require.NoError(t, err)
	second, err := ew.Place(tp, app, bd)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestEdgeWardRespectsCapacity(t *testing.T) {
	tp := CreateTopology("small")
	cloud, err := tp.AddDevice(DeviceSpec{Name: "cloud", PEs: 1, MIPSPerPE: 1000})
	require.NoError(t, err)
	proxy, err := tp.AddDevice(DeviceSpec{Name: "proxy-server", PEs: 1, MIPSPerPE: 100, UpBw: 100, DownBw: 100})
	require.NoError(t, err)
	require.NoError(t, tp.SetParent(proxy, cloud, 10))
	for _, name := range []string{"edge-zone-1", "edge-zone-2"} {
		// room for two of the five 10 MIPS stream modules
		edge, err := tp.AddDevice(DeviceSpec{Name: name, PEs: 1, MIPSPerPE: 25, UpBw: 100, DownBw: 100})
		require.NoError(t, err)
		require.NoError(t, tp.SetParent(edge, proxy, 1))
	}
	require.NoError(t, tp.Validate())
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)

	ma, err := (&EdgeWard{}).Place(tp, app, bd)
	require.NoError(t, err)

	used := ma.UsedMIPS(app)
	for _, dev := range tp.Devices() {
		assert.LessOrEqual(t, used[dev.ID], dev.MIPS()+mipsEps, dev.Name)
	}

	// every zone is still served by every stream module
	for _, st := range agriStreams {
		for _, gw := range []string{"edge-zone-1", "edge-zone-2"} {
			_, present := ma.HostFor(tp, st.module, devID(t, tp, gw))
			assert.True(t, present, "%s for %s", st.module, gw)
		}
	}
}

func TestEdgeWardUnplaceable(t *testing.T) {
	tp := CreateTopology("tiny")
	_, err := tp.AddDevice(DeviceSpec{Name: "cloud", PEs: 1, MIPSPerPE: 5})
	require.NoError(t, err)
	require.NoError(t, tp.Validate())

	app := CreateApplication("big")
	require.NoError(t, app.AddModule("m", 10))
	require.NoError(t, app.Validate())

	_, err = (&EdgeWard{}).Place(tp, app, CreateBindings())
	var unplaceable *UnplaceableModuleError
	assert.True(t, errors.As(err, &unplaceable))
}

func TestEdgeWardPinned(t *testing.T) {
	tp := agriTopology(t, 1)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)

	hints := map[string][]string{"data_analyzer": {"edge-zone-1"}}
	ma, err := (&EdgeWard{Hints: hints}).Place(tp, app, bd)
	require.NoError(t, err)
	assert.Equal(t, []DeviceID{devID(t, tp, "edge-zone-1")}, ma.Hosts("data_analyzer"))

	var unplaceable *UnplaceableModuleError
	_, err = (&EdgeWard{Hints: map[string][]string{"data_analyzer": {"nowhere"}}}).Place(tp, app, bd)
	assert.True(t, errors.As(err, &unplaceable))

	var unknown *UnknownModuleError
	_, err = (&EdgeWard{Hints: map[string][]string{"ghost": {"cloud"}}}).Place(tp, app, bd)
	assert.True(t, errors.As(err, &unknown))
}

func TestEdgeWardPinnedOverflow(t *testing.T) {
	tp := CreateTopology("tiny")
	_, err := tp.AddDevice(DeviceSpec{Name: "cloud", PEs: 1, MIPSPerPE: 25})
	require.NoError(t, err)
	require.NoError(t, tp.Validate())

	app := CreateApplication("pinned")
	require.NoError(t, app.AddModule("a", 10))
	require.NoError(t, app.AddModule("b", 10))
	require.NoError(t, app.AddModule("c", 10))
	require.NoError(t, app.Validate())

	hints := map[string][]string{"a": {"cloud"}, "b": {"cloud"}, "c": {"cloud"}}
	_, err = (&EdgeWard{Hints: hints}).Place(tp, app, CreateBindings())
	var unplaceable *UnplaceableModuleError
	require.True(t, errors.As(err, &unplaceable))
	assert.Equal(t, "c", unplaceable.Module)
}

func TestCreatePlacement(t *testing.T) {
	p, err := CreatePlacement("edgeward", nil)
	require.NoError(t, err)
	assert.Equal(t, "edgeward", p.Name())

	p, err = CreatePlacement("mapping", allOn("cloud"))
	require.NoError(t, err)
	assert.Equal(t, "mapping", p.Name())

	_, err = CreatePlacement("random", nil)
	assert.Error(t, err)
}

func TestPlacementLeavesInputsAlone(t *testing.T) {
	tp := agriTopology(t, 4)
	app := agriApplication(t, 0.0)
	bd := agriBindings(t, tp)
	before := tp.Transform()
	beforeApp := app.Transform()

	_, err := (&EdgeWard{}).Place(tp, app, bd)
	require.NoError(t, err)
	assert.Equal(t, before, tp.Transform())
	assert.Equal(t, beforeApp, app.Transform())
}
