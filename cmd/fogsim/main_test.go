package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/iti/fogsim"
)

func quietLog() {
	log = logger.New()
	log.SetOutput(io.Discard)
}

func TestCreateLogger(t *testing.T) {
	lg, err := createLogger("debug")
	require.NoError(t, err)
	assert.Equal(t, logger.DebugLevel, lg.GetLevel())

	_, err = createLogger("chatty")
	assert.Error(t, err)
}

func TestRunWritesReportAndTrace(t *testing.T) {
	quietLog()
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "report.yaml")
	traceFile := filepath.Join(dir, "trace.json")
	expFile := filepath.Join("..", "..", "testdata", "precision_agri_cloud.yaml")

	require.NoError(t, run(expFile, "", reportFile, traceFile, "edgeward", 200.0))

	bytes, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	rpt := fogsim.Report{}
	require.NoError(t, yaml.Unmarshal(bytes, &rpt))
	assert.Equal(t, "precision-agri-cloud", rpt.Experiment)
	assert.Equal(t, "edgeward", rpt.Strategy)
	assert.Equal(t, 200.0, rpt.Horizon)
	assert.Len(t, rpt.Loops, 5)

	info, err := os.Stat(traceFile)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunMissingExperiment(t *testing.T) {
	quietLog()
	err := run(filepath.Join("..", "..", "testdata", "absent.yaml"), "", "", "", "", 0.0)
	assert.Error(t, err)
}
