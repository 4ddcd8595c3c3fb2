package fogsim

// param.go lets an experiment's devices, sensors and modules be altered at
// load time without touching the experiment description.  Each ExpParameter
// names the kind of object it applies to, a list of attributes an object must
// match to receive it, the parameter and its value.  Parameters are applied
// most general first, so that a parameter naming one device overrides one
// applying to a whole group or level, which overrides a wildcard.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// AttrbStruct holds the name of an attribute and a value for it
type AttrbStruct struct {
	AttrbName, AttrbValue string
}

// CreateAttrbStruct is a constructor
func CreateAttrbStruct(attrbName, attrbValue string) *AttrbStruct {
	return &AttrbStruct{AttrbName: attrbName, AttrbValue: attrbValue}
}

// ExpParamObjs, ExpAttributes and ExpParams describe the kinds of object an
// ExpCfg may configure, the attributes that select among objects of a kind, and
// the parameters each kind accepts
var ExpParamObjs = []string{"Device", "Sensor", "Module"}

var ExpAttributes = map[string][]string{
	"Device": {"name", "group", "level", "*"},
	"Sensor": {"name", "tupletype", "gateway", "*"},
	"Module": {"name", "*"},
}

var ExpParams = map[string][]string{
	"Device": {"pes", "mipsperpe", "ram", "upbw", "downbw", "uplatency", "busypower", "idlepower", "ratepermips"},
	"Sensor": {"latency", "interval", "mean"},
	"Module": {"mips"},
}

// ValidateAttribute checks that the attribute named is one that selects objects of the kind named
func ValidateAttribute(paramObj, attrbName string) bool {
	attrbs, present := ExpAttributes[paramObj]
	if !present {
		return false
	}
	return slices.Contains(attrbs, attrbName)
}

// attrbNames lists the distinct attribute names of a list
func attrbNames(attrbs []AttrbStruct) []string {
	names := make([]string, 0, len(attrbs))
	for _, attrb := range attrbs {
		if !slices.Contains(names, attrb.AttrbName) {
			names = append(names, attrb.AttrbName)
		}
	}
	return names
}

// CompareAttrbs returns -1 if the first argument is strictly more general than the second,
// 1 if the second is strictly more general than the first, and 0 otherwise.  A list is
// strictly more general when it is shorter and every attribute name it uses the other uses too
func CompareAttrbs(attrbs1, attrbs2 []AttrbStruct) int {
	names1, names2 := attrbNames(attrbs1), attrbNames(attrbs2)
	subset := func(a, b []string) bool {
		for _, name := range a {
			if !slices.Contains(b, name) {
				return false
			}
		}
		return true
	}

	switch {
	case len(attrbs1) < len(attrbs2) && subset(names1, names2):
		return -1
	case len(attrbs2) < len(attrbs1) && subset(names2, names1):
		return 1
	}
	return 0
}

// EqAttrbs determines whether the two attribute lists hold the same (name, value) pairs
func EqAttrbs(attrbs1, attrbs2 []AttrbStruct) bool {
	if len(attrbs1) != len(attrbs2) {
		return false
	}
	for _, attrb := range attrbs1 {
		if !slices.Contains(attrbs2, attrb) {
			return false
		}
	}
	for _, attrb := range attrbs2 {
		if !slices.Contains(attrbs1, attrb) {
			return false
		}
	}
	return true
}

// ExpParameter describes one run-time override
type ExpParameter struct {
	// kind of thing being configured: Device, Sensor or Module
	ParamObj string `json:"paramObj" yaml:"paramObj"`

	// every attribute must match for the parameter to apply
	Attributes []AttrbStruct `json:"attributes" yaml:"attributes"`

	// parameter being set, e.g. "busypower", "latency"
	Param string `json:"param" yaml:"param"`

	// string-encoded value
	Value string `json:"value" yaml:"value"`
}

// Eq is true if the two parameters are identical
func (epp *ExpParameter) Eq(ep2 *ExpParameter) bool {
	return epp.ParamObj == ep2.ParamObj && epp.Param == ep2.Param && epp.Value == ep2.Value &&
		EqAttrbs(epp.Attributes, ep2.Attributes)
}

// CreateExpParameter is a constructor
func CreateExpParameter(paramObj string, attributes []AttrbStruct, param, value string) *ExpParameter {
	return &ExpParameter{ParamObj: paramObj, Attributes: attributes, Param: param, Value: value}
}

// AddAttribute includes another attribute.  Only 'group' may appear more than once
func (epp *ExpParameter) AddAttribute(attrbName, attrbValue string) error {
	if !ValidateAttribute(epp.ParamObj, attrbName) {
		return fmt.Errorf("attribute name %s not allowed for parameter object type %s",
			attrbName, epp.ParamObj)
	}
	attrb := AttrbStruct{AttrbName: attrbName, AttrbValue: attrbValue}
	if slices.Contains(epp.Attributes, attrb) {
		return nil
	}
	if attrbName != "group" && slices.Contains(attrbNames(epp.Attributes), attrbName) {
		return fmt.Errorf("attribute name %s already exists for parameter object", attrbName)
	}
	epp.Attributes = append(epp.Attributes, attrb)
	return nil
}

// ExpCfg holds all of the ExpParameters for a named experiment
type ExpCfg struct {
	Name       string         `json:"expname" yaml:"expname"`
	Parameters []ExpParameter `json:"parameters" yaml:"parameters"`
}

// CreateExpCfg is a constructor
func CreateExpCfg(name string) *ExpCfg {
	return &ExpCfg{Name: name, Parameters: make([]ExpParameter, 0)}
}

// ValidateParameter returns an error if the paramObj, attributes and param don't
// make sense taken together
func ValidateParameter(paramObj string, attributes []AttrbStruct, param string) error {
	if !slices.Contains(ExpParamObjs, paramObj) {
		return fmt.Errorf("parameter object %s is not recognized", paramObj)
	}
	for _, attrb := range attributes {
		if !ValidateAttribute(paramObj, attrb.AttrbName) {
			return fmt.Errorf("attribute %s not valid for parameter object type %s", attrb.AttrbName, paramObj)
		}
	}
	if !slices.Contains(ExpParams[paramObj], param) {
		return fmt.Errorf("parameter %s not valid for parameter object type %s", param, paramObj)
	}
	return nil
}

// AddParameter validates and adds a parameter
func (excfg *ExpCfg) AddParameter(paramObj string, attributes []AttrbStruct, param, value string) error {
	if err := ValidateParameter(paramObj, attributes, param); err != nil {
		return err
	}
	excfg.Parameters = append(excfg.Parameters, *CreateExpParameter(paramObj, attributes, param, value))
	return nil
}

// WriteToFile stores the ExpCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (excfg *ExpCfg) WriteToFile(filename string) error {
	var bytes []byte
	var merr error

	switch path.Ext(filename) {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(*excfg)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(*excfg, "", "\t")
	default:
		return fmt.Errorf("parameter file %s needs a .yaml or .json extension", filename)
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0644)
}

// ReadExpCfg deserializes a byte slice holding a representation of an ExpCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadExpCfg(filename string, useYAML bool, dict []byte) (*ExpCfg, error) {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ExpCfg{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}
	return &example, nil
}

// reorderExpParams puts wildcard parameters first, then those selecting on
// attributes other than name (more general before less), then those naming an object
func reorderExpParams(pL []ExpParameter) []ExpParameter {
	wc := []ExpParameter{}
	sg := []ExpParameter{}
	nm := []ExpParameter{}

	for _, param := range pL {
		names := attrbNames(param.Attributes)
		switch {
		case slices.Contains(names, "*"):
			wc = append(wc, param)
		case slices.Contains(names, "name"):
			nm = append(nm, param)
		default:
			sg = append(sg, param)
		}
	}

	sort.SliceStable(sg, func(i, j int) bool {
		return CompareAttrbs(sg[i].Attributes, sg[j].Attributes) == -1
	})
	sort.SliceStable(nm, func(i, j int) bool {
		return CompareAttrbs(nm[i].Attributes, nm[j].Attributes) == -1
	})

	rtn := append(wc, sg...)
	return append(rtn, nm...)
}

// valueStruct holds the value of a parameter in the forms it may be used
type valueStruct struct {
	intValue   int
	floatValue float64
}

func parseValue(value string) (valueStruct, error) {
	flt, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return valueStruct{}, fmt.Errorf("parameter value %q is not numeric", value)
	}
	return valueStruct{intValue: int(flt), floatValue: flt}, nil
}

// paramObj is satisfied by the descriptions an ExpParameter can alter
type paramObj interface {
	matchParam(attrbName, attrbValue string) bool
	setParam(param string, value valueStruct)
}

// deviceParam wraps a device description, level computed from the parent chain
type deviceParam struct {
	dd    *DeviceDesc
	level int
}

func (dp *deviceParam) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "*":
		return true
	case "name":
		return dp.dd.Name == attrbValue
	case "group":
		return slices.Contains(dp.dd.Groups, attrbValue)
	case "level":
		return strconv.Itoa(dp.level) == attrbValue
	}
	return false
}

func (dp *deviceParam) setParam(param string, value valueStruct) {
	switch param {
	case "pes":
		dp.dd.PEs = value.intValue
	case "mipsperpe":
		dp.dd.MIPSPerPE = value.floatValue
	case "ram":
		dp.dd.RAM = value.intValue
	case "upbw":
		dp.dd.UpBw = value.floatValue
	case "downbw":
		dp.dd.DownBw = value.floatValue
	case "uplatency":
		dp.dd.UplinkLatency = value.floatValue
	case "busypower":
		dp.dd.BusyPower = value.floatValue
	case "idlepower":
		dp.dd.IdlePower = value.floatValue
	case "ratepermips":
		dp.dd.RatePerMIPS = value.floatValue
	}
}

type sensorParam struct {
	sd *SensorDesc
}

func (sp *sensorParam) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "*":
		return true
	case "name":
		return sp.sd.Name == attrbValue
	case "tupletype":
		return sp.sd.TupleType == attrbValue
	case "gateway":
		return sp.sd.Gateway == attrbValue
	}
	return false
}

func (sp *sensorParam) setParam(param string, value valueStruct) {
	switch param {
	case "latency":
		sp.sd.Latency = value.floatValue
	case "interval":
		// a fixed interval makes the sensor deterministic
		sp.sd.Dist = DistDesc{Type: "deterministic", Value: value.floatValue}
	case "mean":
		sp.sd.Dist = DistDesc{Type: "exponential", Mean: value.floatValue}
	}
}

type moduleParam struct {
	md *ModuleDesc
}

func (mp *moduleParam) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "*":
		return true
	case "name":
		return mp.md.Name == attrbValue
	}
	return false
}

func (mp *moduleParam) setParam(param string, value valueStruct) {
	if param == "mips" {
		mp.md.MIPS = value.floatValue
	}
}

// descLevels computes the depth of every device from the parent names of a TopoDesc.
// Devices whose parent chain is broken or cyclic are left out
func descLevels(td *TopoDesc) map[string]int {
	parent := make(map[string]string)
	for _, dd := range td.Devices {
		parent[dd.Name] = dd.Parent
	}
	levels := make(map[string]int)
	for _, dd := range td.Devices {
		level := 0
		here := dd.Name
		for len(parent[here]) > 0 && level <= len(td.Devices) {
			here = parent[here]
			level += 1
		}
		if level <= len(td.Devices) {
			levels[dd.Name] = level
		}
	}
	return levels
}

// ApplyExpCfg alters the experiment description as the parameters direct
func ApplyExpCfg(xd *ExperimentDesc, excfg *ExpCfg) error {
	if excfg == nil {
		return nil
	}

	levels := descLevels(&xd.Topo)
	objs := map[string][]paramObj{}
	for idx := range xd.Topo.Devices {
		dd := &xd.Topo.Devices[idx]
		objs["Device"] = append(objs["Device"], &deviceParam{dd: dd, level: levels[dd.Name]})
	}
	for idx := range xd.Sensors {
		objs["Sensor"] = append(objs["Sensor"], &sensorParam{sd: &xd.Sensors[idx]})
	}
	for idx := range xd.App.Modules {
		objs["Module"] = append(objs["Module"], &moduleParam{md: &xd.App.Modules[idx]})
	}

	errs := []error{}
	for _, param := range reorderExpParams(excfg.Parameters) {
		if err := ValidateParameter(param.ParamObj, param.Attributes, param.Param); err != nil {
			errs = append(errs, err)
			continue
		}
		value, err := parseValue(param.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, obj := range objs[param.ParamObj] {
			matched := true
			for _, attrb := range param.Attributes {
				if !obj.matchParam(attrb.AttrbName, attrb.AttrbValue) {
					matched = false
					break
				}
			}
			if matched {
				obj.setParam(param.Param, value)
			}
		}
	}
	return ReportErrs(errs)
}
