package fogsim

// trace.go gathers an optional record of what happened to every tuple.  Traces
// are grouped by lineage: a tuple emitted by a sensor and every tuple descending
// from it share the lineage id of the sensor tuple.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

type TraceInst struct {
	TraceTime string
	TraceType string
	TraceStr  string
}

// NameType is an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about an execution of a fog experiment
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each device id
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by lineage
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  By testing the active flag we can inhibit
// the gathering of a trace when we don't want it, while embedding calls to its
// methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTrace stores a record under the given lineage
func (tm *TraceManager) AddTrace(lineage int, trace TraceInst) {
	if !tm.Active() {
		return
	}
	tm.Traces[lineage] = append(tm.Traces[lineage], trace)
}

// AddName adds an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) error {
	if !tm.Active() {
		return nil
	}
	if _, present := tm.NameByID[id]; present {
		return fmt.Errorf("duplicated id %d in trace dictionary", id)
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	return nil
}

// Len is the number of records held
func (tm *TraceManager) Len() int {
	n := 0
	for _, recs := range tm.Traces {
		n += len(recs)
	}
	return n
}

// WriteToFile stores the traces to the file whose name is given.  Serialization
// to json or to yaml is selected based on the extension of this name.  With
// globalOrder all lineages are merged into lineage 0, sorted by time
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) error {
	if !tm.Active() {
		return nil
	}

	out := tm
	if globalOrder {
		out = CreateTraceManager(tm.ExpName, tm.InUse)
		for key, value := range tm.NameByID {
			out.NameByID[key] = value
		}

		lineages := make([]int, 0, len(tm.Traces))
		for lineage := range tm.Traces {
			lineages = append(lineages, lineage)
		}
		sort.Ints(lineages)

		merged := make([]TraceInst, 0)
		for _, lineage := range lineages {
			merged = append(merged, tm.Traces[lineage]...)
		}
		sort.SliceStable(merged, func(i, j int) bool {
			v1, _ := strconv.ParseFloat(merged[i].TraceTime, 64)
			v2, _ := strconv.ParseFloat(merged[j].TraceTime, 64)
			return v1 < v2
		})
		out.Traces[0] = merged
	}

	var bytes []byte
	var merr error
	switch path.Ext(filename) {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(*out)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(*out, "", "\t")
	default:
		return fmt.Errorf("trace file %s needs a .yaml or .json extension", filename)
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0644)
}

// TupleTrace saves the visitation of a tuple to some point in the simulation
type TupleTrace struct {
	Time      float64
	TupleID   int
	Lineage   int
	TupleType string
	DevID     int
	Op        string // "emit", "arrive", "finish", "consume", "drop"
	Element   string // module or actuator involved, if any
}

func (tt *TupleTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*tt)
	if merr != nil {
		return ""
	}
	return string(bytes[:])
}

// SchedulerTrace saves the state of a device's lane when a task is scheduled on it
type SchedulerTrace struct {
	Time    float64
	DevID   int
	Module  string
	Op      string
	Share   float64
	Waiting int
	Busy    bool
}

func (st *SchedulerTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*st)
	if merr != nil {
		return ""
	}
	return string(bytes[:])
}

func traceTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// AddTupleTrace creates a record of a tuple event and stores it under the tuple's lineage
func AddTupleTrace(tm *TraceManager, now float64, lineage int, tpl *Tuple, op, element string) {
	if !tm.Active() {
		return
	}
	tt := &TupleTrace{Time: now, TupleID: tpl.ID, Lineage: lineage, TupleType: tpl.Type,
		DevID: int(tpl.Device), Op: op, Element: element}
	tm.AddTrace(lineage, TraceInst{TraceTime: traceTime(now), TraceType: "tuple", TraceStr: tt.Serialize()})
}

// AddSchedulerTrace creates a record of the lane state of a module on a device
func AddSchedulerTrace(tm *TraceManager, now float64, lineage int, ts *TaskScheduler, module, op string) {
	if !tm.Active() {
		return
	}
	st := &SchedulerTrace{Time: now, DevID: int(ts.dev.ID), Module: module, Op: op,
		Share: ts.Share(module), Waiting: ts.Waiting(module), Busy: ts.Busy()}
	tm.AddTrace(lineage, TraceInst{TraceTime: traceTime(now), TraceType: "scheduler", TraceStr: st.Serialize()})
}
