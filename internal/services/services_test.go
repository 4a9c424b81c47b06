package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/config"
	"neurphys/internal/operations"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())
	return paths
}

func TestRecordingServiceListRecordings(t *testing.T) {
	paths := testPaths(t)
	svc := NewRecordingService(paths, 2, nil)

	require.NoError(t, os.WriteFile(filepath.Join(paths.DataDir, "cell01.abf"), []byte("junk"), 0o644))

	folder := filepath.Join(paths.DataDir, "LineScan-20260115")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "LineScan-20260115_VoltageRecording_001.xml"), []byte("<PVScan/>"), 0o644))

	infos, err := svc.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byFormat := map[string]RecordingInfo{}
	for _, info := range infos {
		byFormat[info.Format] = info
	}
	assert.Equal(t, "cell01.abf", byFormat["abf"].Name)
	assert.Equal(t, "LineScan-20260115", byFormat["prairieview"].Name)
}

func TestRecordingServiceListRecordingsEmptyDataDir(t *testing.T) {
	svc := NewRecordingService(testPaths(t), 2, nil)

	infos, err := svc.ListRecordings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestRecordingServiceGetRecordingNotFound(t *testing.T) {
	svc := NewRecordingService(testPaths(t), 2, nil)

	_, err := svc.GetRecording(context.Background(), "missing.abf")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestRecordingServiceGetRecordingUnreadable(t *testing.T) {
	paths := testPaths(t)
	svc := NewRecordingService(paths, 2, nil)

	require.NoError(t, os.WriteFile(filepath.Join(paths.DataDir, "bad.abf"), []byte("not an abf"), 0o644))

	_, err := svc.GetRecording(context.Background(), "bad.abf")
	assert.ErrorIs(t, err, ErrUnreadableFile)
}

func TestRecordingServiceRejectsEscapingNames(t *testing.T) {
	svc := NewRecordingService(testPaths(t), 2, nil)

	for _, name := range []string{"", "../secret.abf", "/etc/passwd"} {
		_, err := svc.GetRecording(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidRequest, "name %q", name)
	}
}

func TestRecordingServiceListReports(t *testing.T) {
	paths := testPaths(t)
	svc := NewRecordingService(paths, 2, nil)

	require.NoError(t, os.MkdirAll(filepath.Join(paths.ReportsDir, "session01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(paths.ReportsDir, "session01", "cell01.csv"), []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(paths.ReportsDir, "summary.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(paths.ReportsDir, "notes.txt"), []byte("skip me"), 0o644))

	reports, err := svc.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	byName := map[string]ReportInfo{}
	for _, r := range reports {
		byName[r.Name] = r
	}
	assert.Equal(t, "csv", byName["cell01.csv"].Kind)
	assert.Equal(t, "session01/cell01.csv", byName["cell01.csv"].Path)
	assert.Equal(t, "excel", byName["summary.xlsx"].Kind)
}

func testOperationService(t *testing.T) *OperationService {
	t.Helper()
	paths := testPaths(t)
	cfg := &config.Config{}
	cfg.Operations.MaxRetries = 0
	cfg.Operations.RetryDelay = 0
	cfg.Operations.ImportWorkers = 2
	cfg.Operations.StepTimeout = 0

	svc, err := NewOperationService(cfg, paths, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestOperationServiceTypes(t *testing.T) {
	svc := testOperationService(t)

	types := svc.Types(context.Background())
	ids := make([]string, 0, len(types))
	for _, typ := range types {
		ids = append(ids, typ.ID)
	}

	assert.Contains(t, ids, operations.StepIDImport)
	assert.Contains(t, ids, operations.StepIDProcess)
	assert.Contains(t, ids, operations.StepIDAnalyze)
	assert.Contains(t, ids, operations.StepIDExport)
	assert.Contains(t, ids, "full_pipeline")
}

func TestOperationServiceStartOnEmptyDataDir(t *testing.T) {
	svc := testOperationService(t)

	resp, err := svc.Start(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)

	states := svc.List(context.Background())
	require.Len(t, states, 1)

	state, err := svc.Status(context.Background(), states[0].ID)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusFailed, state.Status)
}

func TestOperationServiceStatusUnknownID(t *testing.T) {
	svc := testOperationService(t)

	_, err := svc.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrOperationNotFound)

	_, err = svc.Status(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOperationServiceMetrics(t *testing.T) {
	svc := testOperationService(t)

	svc.Start(context.Background(), operations.OperationRequest{})

	metrics := svc.Metrics(context.Background())
	assert.Equal(t, 1, metrics["total_operations"])
	assert.Equal(t, 1, metrics["failed_operations"])
	assert.Equal(t, 0, metrics["active_operations"])
}

func TestHealthServiceCheck(t *testing.T) {
	paths := testPaths(t)
	op := testOperationService(t)

	svc := NewHealthService(paths, fakeCounter(3), op, nil)
	status := svc.Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Components["data_dir"].Status)
	assert.Equal(t, "healthy", status.Components["websocket"].Status)
	assert.NotEmpty(t, status.Version)
}

func TestHealthServiceMissingDataDir(t *testing.T) {
	paths := config.NewPaths(filepath.Join(t.TempDir(), "nope"))
	svc := NewHealthService(paths, nil, nil, nil)

	status := svc.Check(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unhealthy", status.Components["data_dir"].Status)
	assert.Equal(t, "degraded", status.Components["websocket"].Status)
}

func TestHealthServiceVersion(t *testing.T) {
	svc := NewHealthService(testPaths(t), nil, nil, nil)

	info := svc.Version(context.Background())
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

type fakeCounter int

func (f fakeCounter) ClientCount() int { return int(f) }
