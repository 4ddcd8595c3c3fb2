package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	logger "github.com/sirupsen/logrus"

	"github.com/iti/fogsim"
)

var log *logger.Logger

func main() {
	parser := argparse.NewParser("fogsim", "simulates an application placed on a fog-to-cloud device tree")

	expFile := parser.String("e", "experiment", &argparse.Options{
		Help:     "experiment description (.yaml or .json)",
		Required: true,
	})
	paramFile := parser.String("p", "params", &argparse.Options{
		Help:    "parameter overrides to apply to the experiment",
		Default: "",
	})
	reportFile := parser.String("o", "output", &argparse.Options{
		Help:    "file to (over)write with the report",
		Default: "",
	})
	traceFile := parser.String("t", "trace", &argparse.Options{
		Help:    "file to (over)write with the tuple trace",
		Default: "",
	})
	strategy := parser.String("s", "strategy", &argparse.Options{
		Help:    "placement strategy overriding the experiment's (mapping, edgeward)",
		Default: "",
	})
	horizon := parser.Float("H", "horizon", &argparse.Options{
		Help:    "simulation horizon overriding the experiment's",
		Default: 0.0,
	})
	level := parser.String("l", "loglevel", &argparse.Options{
		Help:    "log level (panic, fatal, error, warn, info, debug, trace)",
		Default: "info",
	})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err = createLogger(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Infof("logging at log level %v; all times in UTC", *level)

	if err := run(*expFile, *paramFile, *reportFile, *traceFile, *strategy, *horizon); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(expFile, paramFile, reportFile, traceFile, strategy string, horizon float64) error {
	ovr := fogsim.RunOverrides{Strategy: strategy, Horizon: horizon}
	xp, err := fogsim.LoadExperiment(expFile, paramFile, ovr, len(traceFile) > 0)
	if err != nil {
		return err
	}
	xd := xp.Desc

	for _, module := range xp.Assign.Modules() {
		names := []string{}
		for _, dev := range xp.Assign.Hosts(module) {
			names = append(names, xp.Topo.Device(dev).Name)
		}
		log.Debugf("module %s placed on %v", module, names)
	}

	log.Infof("running %s with %s placement to horizon %g", xd.Name, xp.Placement.Name(), xd.Horizon)
	rpt, err := xp.Run(nil, log)
	if err != nil {
		return err
	}

	for _, lr := range rpt.Loops {
		log.Infof("loop %s: count %d, mean %.4f, min %.4f, max %.4f, p95 %.4f",
			lr.Name, lr.Count, lr.Mean, lr.Min, lr.Max, lr.P95)
	}
	for _, dr := range rpt.Devices {
		log.Infof("device %s: energy %.2f, cost %.2f", dr.Device, dr.Energy, dr.Cost)
	}
	log.Infof("network usage %.4f, %d tuples dropped", rpt.NetworkUsage, rpt.Drops)

	if len(reportFile) > 0 {
		if err := rpt.WriteToFile(reportFile); err != nil {
			return err
		}
		log.Infof("report written to %s", reportFile)
	}
	if len(traceFile) > 0 {
		if err := xp.Trace.WriteToFile(traceFile, true); err != nil {
			return err
		}
		log.Infof("trace written to %s", traceFile)
	}
	return nil
}
