package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/artifacts"
	"github.com/lumenworks/prism/pkg/steps"
	"github.com/lumenworks/prism/pkg/steps/graphics"
	"github.com/lumenworks/prism/pkg/workflow"
)

func testRegistry() *workflow.Registry {
	registry := workflow.NewRegistry()
	steps.RegisterDefaults(registry, steps.Options{Host: &graphics.RecorderHost{}})
	return registry
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		registry: testRegistry(),
		logger:   zap.NewNop(),
	}
}

// captureBlobClient records uploads so persistence can be asserted without
// a storage account.
type captureBlobClient struct {
	blobs    map[string][]byte
	metadata map[string]map[string]string
	fail     bool
}

func newCaptureBlobClient() *captureBlobClient {
	return &captureBlobClient{
		blobs:    make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

func (c *captureBlobClient) Upload(_ context.Context, blobPath string, data []byte, _ string, metadata map[string]string) (string, error) {
	if c.fail {
		return "", fmt.Errorf("upload refused")
	}
	c.blobs[blobPath] = data
	c.metadata[blobPath] = metadata
	return "mem://" + blobPath, nil
}

func (c *captureBlobClient) Download(_ context.Context, reference string) ([]byte, error) {
	data, ok := c.blobs[reference]
	if !ok {
		return nil, fmt.Errorf("blob %q not found", reference)
	}
	return data, nil
}

func TestNewRunnerValidation(t *testing.T) {
	registry := testRegistry()
	conn := &nats.Conn{}
	cfg := Config{Subject: "wf.submit", ResultSubject: "wf.results"}

	_, err := NewRunner(nil, registry, cfg, nil)
	assert.Error(t, err)

	_, err = NewRunner(conn, nil, cfg, nil)
	assert.Error(t, err)

	_, err = NewRunner(conn, registry, Config{ResultSubject: "wf.results"}, nil)
	assert.Error(t, err)

	_, err = NewRunner(conn, registry, Config{Subject: "wf.submit"}, nil)
	assert.Error(t, err)

	r, err := NewRunner(conn, registry, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, r.queueDepth, "queue depth defaults when unset")
	assert.NoError(t, r.Close())
}

func TestExecuteCompletedRun(t *testing.T) {
	r := testRunner(t)

	definition := `{
		"steps": [
			{"id": "init", "plugin": "graphics.init", "parameters": {"width": 64, "height": 64}},
			{"id": "set", "plugin": "var.set", "parameters": {"key": "ok", "value": true}, "depends_on": ["init"]}
		]
	}`

	report, runReport := r.execute(context.Background(), Submission{
		WorkflowID: "wf-1",
		Definition: json.RawMessage(definition),
	})
	require.NotNil(t, runReport)

	assert.Equal(t, "wf-1", report.WorkflowID)
	assert.Equal(t, "completed", report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Steps, 2)
	assert.Empty(t, report.FailedStep)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestExecuteExitedRun(t *testing.T) {
	r := testRunner(t)

	definition := `{
		"steps": [
			{"id": "leave", "plugin": "system.exit", "parameters": {"status_code": 4, "message": "done"}}
		]
	}`

	report, _ := r.execute(context.Background(), Submission{
		WorkflowID: "wf-2",
		Definition: json.RawMessage(definition),
	})

	assert.Equal(t, "exited", report.Status)
	assert.Equal(t, 4, report.ExitCode)
	assert.Empty(t, report.Reason)
}

func TestExecuteFailedRun(t *testing.T) {
	r := testRunner(t)

	definition := `{
		"steps": [
			{"id": "get", "plugin": "var.get", "parameters": {"key": "never_set"}}
		]
	}`

	report, _ := r.execute(context.Background(), Submission{
		WorkflowID: "wf-3",
		Definition: json.RawMessage(definition),
	})

	assert.Equal(t, "failed", report.Status)
	assert.Equal(t, "get", report.FailedStep)
	assert.NotEmpty(t, report.Reason)
}

func TestExecuteRejectsBadDefinition(t *testing.T) {
	r := testRunner(t)

	report, runReport := r.execute(context.Background(), Submission{
		WorkflowID: "wf-4",
		Definition: json.RawMessage(`{"steps": "nope"}`),
	})

	assert.Equal(t, "failed", report.Status)
	assert.NotEmpty(t, report.Reason)
	assert.Empty(t, report.RunID, "a run that never validated has no run id")
	assert.Nil(t, runReport)
}

func TestPersistReportSavesRunReport(t *testing.T) {
	client := newCaptureBlobClient()
	store, err := artifacts.NewStore(client, zap.NewNop())
	require.NoError(t, err)

	r := testRunner(t)
	r.artifacts = store

	ctx := context.Background()
	_, runReport := r.execute(ctx, Submission{
		WorkflowID: "wf-persist",
		Definition: json.RawMessage(`{"steps": [{"id": "set", "plugin": "var.set", "parameters": {"key": "ok", "value": true}}]}`),
	})
	require.NotNil(t, runReport)

	r.persistReport(ctx, trace.SpanFromContext(ctx), "wf-persist", runReport)

	path := artifacts.RunReportPath("wf-persist", runReport.RunID)
	data, ok := client.blobs[path]
	require.True(t, ok, "report uploaded under the canonical path")
	assert.Equal(t, "completed", client.metadata[path]["status"])

	var stored artifacts.StoredReport
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "wf-persist", stored.WorkflowID)
	assert.Equal(t, runReport.RunID, stored.RunID)
	assert.Len(t, stored.Report.Steps, 1)
}

func TestPersistReportSkipsAndTolerates(t *testing.T) {
	ctx := context.Background()
	span := trace.SpanFromContext(ctx)

	// No store configured.
	r := testRunner(t)
	r.persistReport(ctx, span, "wf-a", &workflow.RunReport{RunID: "r1"})

	// A submission that never parsed produces no run report.
	client := newCaptureBlobClient()
	store, err := artifacts.NewStore(client, zap.NewNop())
	require.NoError(t, err)
	r.artifacts = store
	r.persistReport(ctx, span, "wf-b", nil)
	assert.Empty(t, client.blobs)

	// An upload failure is logged, not fatal.
	client.fail = true
	r.persistReport(ctx, span, "wf-c", &workflow.RunReport{RunID: "r2", Status: "completed"})
	assert.Empty(t, client.blobs)
}

func TestReportWireFormat(t *testing.T) {
	r := testRunner(t)

	report, _ := r.execute(context.Background(), Submission{
		WorkflowID: "wf-5",
		Definition: json.RawMessage(`{"steps": [{"id": "leave", "plugin": "system.exit"}]}`),
	})

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "wf-5", decoded["workflowId"])
	assert.Equal(t, "exited", decoded["status"])
	require.Contains(t, decoded, "steps")

	stepList, ok := decoded["steps"].([]interface{})
	require.True(t, ok)
	require.Len(t, stepList, 1)
	step, ok := stepList[0].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, step, "duration_ns", "step durations travel as integer nanoseconds")
}
