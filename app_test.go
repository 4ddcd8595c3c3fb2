package fogsim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoOrderFollowsEdges(t *testing.T) {
	app := agriApplication(t, 0.0)
	order := app.TopoOrder()
	require.Len(t, order, 6)
	assert.Equal(t, agriModules(), order)
}

func TestReachableFrom(t *testing.T) {
	app := agriApplication(t, 0.0)
	assert.Equal(t, []string{"pH_module", "data_analyzer"}, app.ReachableFrom("PH"))
	assert.Nil(t, app.ReachableFrom("SOIL_ALERT"), "not a sensor tuple type")
	assert.Nil(t, app.ReachableFrom("NOPE"))
}

func TestDownstreamAndSuccessors(t *testing.T) {
	app := agriApplication(t, 0.2)
	assert.Equal(t, []string{"data_analyzer"}, app.Downstream("humidity_module"))
	assert.Empty(t, app.Downstream("data_analyzer"))
	assert.Nil(t, app.Downstream("ghost"))

	assert.Equal(t, []string{"data_analyzer"}, app.Successors("soil_moisture_module"))
	assert.Empty(t, app.Successors("data_analyzer"), "actuator edges lead to no module")
}

func TestInOutEdges(t *testing.T) {
	app := agriApplication(t, 0.0)
	assert.Len(t, app.InEdges("data_analyzer"), 5)
	assert.Len(t, app.InEdges("humidity_module"), 1)

	out := app.OutEdges("data_analyzer")
	require.Len(t, out, 1)
	assert.Equal(t, ActuatorEdge, out[0].Kind)
	assert.Equal(t, "CONTROL_SIGNAL", out[0].TupleType)
}

func TestEdgeDirectionChecks(t *testing.T) {
	app := CreateApplication("dir")
	require.NoError(t, app.AddModule("m", 1))

	var edgeErr *InvalidEdgeError
	err := app.AddEdge("S", "m", 1, 1, "S", Down, SensorEdge)
	assert.True(t, errors.As(err, &edgeErr), "sensor edges go up")

	err = app.AddEdge("m", "A", 1, 1, "CTL", Up, ActuatorEdge)
	assert.True(t, errors.As(err, &edgeErr), "actuator edges go down")

	require.NoError(t, app.AddEdge("S", "m", 1, 1, "S", Up, SensorEdge))
	err = app.AddEdge("S", "m", 1, 1, "S", Up, SensorEdge)
	assert.True(t, errors.As(err, &edgeErr), "tuple type already carried")
}

func TestUnknownModuleReferences(t *testing.T) {
	var modErr *UnknownModuleError

	app := CreateApplication("unknown-edge")
	require.NoError(t, app.AddModule("m", 1))
	require.NoError(t, app.AddEdge("m", "ghost", 1, 1, "T", Up, ModuleEdge))
	assert.True(t, errors.As(app.Validate(), &modErr))
	assert.Equal(t, "ghost", modErr.Module)

	app = CreateApplication("unknown-loop")
	require.NoError(t, app.AddModule("m", 1))
	require.NoError(t, app.SetLoops([][]string{{"m", "ghost"}}))
	assert.True(t, errors.As(app.Validate(), &modErr))

	app = CreateApplication("unknown-selectivity")
	require.NoError(t, app.AddModule("m", 1))
	require.NoError(t, app.AddSelectivity("ghost", "A", "B", 0.5))
	assert.True(t, errors.As(app.Validate(), &modErr))
}

func TestSelectivityFractionRange(t *testing.T) {
	app := CreateApplication("fraction")
	var edgeErr *InvalidEdgeError
	assert.True(t, errors.As(app.AddSelectivity("m", "A", "B", 0.0), &edgeErr))
	assert.True(t, errors.As(app.AddSelectivity("m", "A", "B", 1.5), &edgeErr))
	assert.NoError(t, app.AddSelectivity("m", "A", "B", 1.0))
}

func TestModuleCycle(t *testing.T) {
	app := CreateApplication("cycle")
	require.NoError(t, app.AddModule("a", 1))
	require.NoError(t, app.AddModule("b", 1))
	require.NoError(t, app.AddEdge("a", "b", 1, 1, "AB", Up, ModuleEdge))
	require.NoError(t, app.AddEdge("b", "a", 1, 1, "BA", Down, ModuleEdge))

	var edgeErr *InvalidEdgeError
	assert.True(t, errors.As(app.Validate(), &edgeErr))
	assert.False(t, app.Validated())
}

func TestLoopsMayNameSensorsAndActuators(t *testing.T) {
	app := agriApplication(t, 0.2)
	fresh := CreateApplication("with-ends")
	ad := app.Transform()
	for _, md := range ad.Modules {
		require.NoError(t, fresh.AddModule(md.Name, md.MIPS))
	}
	for _, edge := range app.Edges() {
		require.NoError(t, fresh.AddEdge(edge.Src, edge.Dst, edge.Payload, edge.ProcLength, edge.TupleType,
			edge.Direction, edge.Kind))
	}
	require.NoError(t, fresh.SetLoops([][]string{{"SOIL_MOISTURE", "soil_moisture_module", "data_analyzer", "IRRIGATION"}}))
	require.NoError(t, fresh.Validate())
	assert.Equal(t, "SOIL_MOISTURE->soil_moisture_module->data_analyzer->IRRIGATION", fresh.Loops()[0].Name)
}

func TestFrozenAfterValidate(t *testing.T) {
	app := agriApplication(t, 0.0)
	assert.Error(t, app.AddModule("late", 1))
	assert.Error(t, app.AddEdge("late", "data_analyzer", 1, 1, "LATE", Up, ModuleEdge))
}

func TestBuildApplicationRoundTrip(t *testing.T) {
	app := agriApplication(t, 0.2)
	rebuilt, err := BuildApplication(app.Transform())
	require.NoError(t, err)
	assert.Equal(t, app.TopoOrder(), rebuilt.TopoOrder())
	assert.Len(t, rebuilt.Selectivity(), 10)
	assert.Len(t, rebuilt.Loops(), 5)
}
