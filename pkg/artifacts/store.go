package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/workflow"
)

// RunReportPath returns the canonical blob path for a run report.
func RunReportPath(workflowID, runID string) string {
	return fmt.Sprintf("runs/%s/%s/report.json", workflowID, runID)
}

// PixelDumpPath returns the canonical blob path for a pixel dump captured
// during a run.
func PixelDumpPath(workflowID, runID, name string) string {
	return fmt.Sprintf("runs/%s/%s/pixels/%s", workflowID, runID, name)
}

// StoredReport wraps a run report with the identity and timing data needed to
// locate it later.
type StoredReport struct {
	WorkflowID string              `json:"workflowId"`
	RunID      string              `json:"runId"`
	Report     *workflow.RunReport `json:"report"`
	StoredAt   time.Time           `json:"storedAt"`
}

// Store persists run artifacts through a BlobClient. Safe for use from
// multiple goroutines.
type Store struct {
	client BlobClient
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore creates an artifact store.
func NewStore(client BlobClient, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("blob client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}, nil
}

// SaveReport uploads a run report as JSON and returns its blob URL.
func (s *Store) SaveReport(ctx context.Context, workflowID string, report *workflow.RunReport) (string, error) {
	if workflowID == "" {
		return "", fmt.Errorf("workflow id is required")
	}
	if report == nil {
		return "", fmt.Errorf("report is required")
	}

	stored := StoredReport{
		WorkflowID: workflowID,
		RunID:      report.RunID,
		Report:     report,
		StoredAt:   time.Now().UTC(),
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	metadata := map[string]string{
		"workflow_id": workflowID,
		"run_id":      report.RunID,
		"status":      report.Status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	url, err := s.client.Upload(ctx, RunReportPath(workflowID, report.RunID), data, "application/json", metadata)
	if err != nil {
		return "", err
	}

	s.logger.Info("saved run report",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", report.RunID),
		zap.String("url", url))
	return url, nil
}

// SavePixelDump uploads a rendered pixel dump CSV captured during a run.
func (s *Store) SavePixelDump(ctx context.Context, workflowID, runID, name string, data []byte) (string, error) {
	if workflowID == "" || runID == "" {
		return "", fmt.Errorf("workflow id and run id are required")
	}
	if name == "" {
		return "", fmt.Errorf("dump name is required")
	}

	metadata := map[string]string{
		"workflow_id": workflowID,
		"run_id":      runID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.Upload(ctx, PixelDumpPath(workflowID, runID, name), data, "text/csv", metadata)
}

// LoadReport downloads and decodes a previously stored run report.
func (s *Store) LoadReport(ctx context.Context, workflowID, runID string) (*StoredReport, error) {
	data, err := s.client.Download(ctx, RunReportPath(workflowID, runID))
	if err != nil {
		return nil, err
	}

	var stored StoredReport
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode run report: %w", err)
	}
	return &stored, nil
}
