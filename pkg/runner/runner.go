// Package runner executes workflow definitions received over NATS. Each
// submission is parsed, validated, and run against a fresh context by a
// fresh executor, and the run report is published to the result subject.
//
// Runs are strictly serialized: the steps of a workflow drive a graphics
// host bound to one thread, so the runner keeps a single consumer loop and
// never executes two workflows at once. Submissions that arrive while a
// run is in flight wait in a buffered channel.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lumenworks/prism/internal/tracing"
	"github.com/lumenworks/prism/pkg/artifacts"
	"github.com/lumenworks/prism/pkg/workflow"
)

// Submission is the wire format for a workflow execution request.
type Submission struct {
	// WorkflowID identifies the workflow across the system
	WorkflowID string `json:"workflowId"`
	// Definition is the workflow definition document (see workflow.ParseDefinition)
	Definition json.RawMessage `json:"definition"`
}

// Report is the wire format for a published run outcome.
type Report struct {
	WorkflowID string               `json:"workflowId"`
	RunID      string               `json:"runId"`
	Status     string               `json:"status"`
	ExitCode   int                  `json:"exitCode,omitempty"`
	FailedStep string               `json:"failedStep,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	Steps      []workflow.StepRecord `json:"steps"`
	FinishedAt time.Time            `json:"finishedAt"`
}

// Config configures a Runner.
type Config struct {
	// Subject is where workflow submissions arrive.
	Subject string
	// ResultSubject is where run reports are published.
	ResultSubject string
	// QueueDepth bounds how many submissions may wait while a run is in
	// flight. Defaults to 16.
	QueueDepth int
	// Tracing is optional; when set, OTLP tracing is configured and torn
	// down with the runner.
	Tracing *TracingConfig
	// Artifacts is optional; when set, every run report is persisted to
	// blob storage after execution. Persistence failures are logged and
	// do not block publishing the result.
	Artifacts *artifacts.Store
}

// Runner pulls workflow submissions from NATS and executes them one at a
// time.
type Runner struct {
	conn            *nats.Conn
	registry        *workflow.Registry
	subject         string
	resultSubject   string
	queueDepth      int
	logger          *zap.Logger
	artifacts       *artifacts.Store
	tracer          trace.Tracer
	tracingShutdown func(context.Context) error
}

// NewRunner creates a runner over a connected NATS connection and a
// populated step registry.
func NewRunner(conn *nats.Conn, registry *workflow.Registry, cfg Config, logger *zap.Logger) (*Runner, error) {
	if conn == nil {
		return nil, errors.New("nats connection cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if cfg.Subject == "" {
		return nil, errors.New("subject cannot be empty")
	}
	if cfg.ResultSubject == "" {
		return nil, errors.New("result subject cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}

	r := &Runner{
		conn:          conn,
		registry:      registry,
		subject:       cfg.Subject,
		resultSubject: cfg.ResultSubject,
		queueDepth:    cfg.QueueDepth,
		logger:        logger,
		artifacts:     cfg.Artifacts,
		tracer:        otel.Tracer("prism/runner"),
	}

	if cfg.Tracing != nil {
		shutdown, err := tracing.Setup(context.Background(), cfg.Tracing.toInternal(), logger)
		if err != nil {
			logger.Warn("failed to set up tracing, continuing without it", zap.Error(err))
		} else {
			r.tracingShutdown = shutdown
			logger.Info("tracing setup complete",
				zap.String("service", cfg.Tracing.ServiceName),
				zap.String("endpoint", cfg.Tracing.OTLPEndpoint))
		}
	}

	return r, nil
}

// Close shuts the runner down, flushing tracing if it was configured.
func (r *Runner) Close() error {
	if r.tracingShutdown != nil {
		return tracing.Shutdown(r.tracingShutdown, r.logger)
	}
	return nil
}

// Run subscribes to the submission subject and processes workflows until
// the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	msgCh := make(chan *nats.Msg, r.queueDepth)
	sub, err := r.conn.ChanSubscribe(r.subject, msgCh)
	if err != nil {
		return err
	}
	defer func() {
		if unsubErr := sub.Unsubscribe(); unsubErr != nil {
			r.logger.Warn("error unsubscribing", zap.Error(unsubErr))
		}
	}()

	r.logger.Info("runner started",
		zap.String("subject", r.subject),
		zap.String("resultSubject", r.resultSubject))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case msg := <-msgCh:
			r.processSubmission(ctx, msg)
		}
	}
}

func (r *Runner) processSubmission(ctx context.Context, msg *nats.Msg) {
	var submission Submission
	if err := json.Unmarshal(msg.Data, &submission); err != nil {
		r.logger.Error("discarding malformed submission", zap.Error(err))
		return
	}

	ctx, span := r.tracer.Start(ctx, "runner.processSubmission",
		trace.WithAttributes(
			attribute.String("workflow.id", submission.WorkflowID),
			attribute.String("subject", r.subject),
		))
	defer span.End()

	start := time.Now()
	r.logger.Info("executing workflow",
		zap.String("workflowID", submission.WorkflowID))

	report, runReport := r.execute(ctx, submission)
	span.SetAttributes(
		attribute.Int64("run.duration_ms", time.Since(start).Milliseconds()),
		attribute.String("run.id", report.RunID),
		attribute.String("run.status", report.Status),
	)
	if report.Status == workflow.StateFailed.String() {
		span.SetStatus(codes.Error, report.Reason)
	} else {
		span.SetStatus(codes.Ok, "run finished")
	}

	r.persistReport(ctx, span, submission.WorkflowID, runReport)

	data, err := json.Marshal(report)
	if err != nil {
		r.logger.Error("failed to encode run report",
			zap.String("workflowID", submission.WorkflowID),
			zap.Error(err))
		return
	}
	if err := r.conn.Publish(r.resultSubject, data); err != nil {
		r.logger.Error("failed to publish run report",
			zap.String("workflowID", submission.WorkflowID),
			zap.String("runID", report.RunID),
			zap.Error(err))
		return
	}

	r.logger.Info("workflow finished",
		zap.String("workflowID", submission.WorkflowID),
		zap.String("runID", report.RunID),
		zap.String("status", report.Status),
		zap.Duration("duration", time.Since(start)))
}

// persistReport saves a run report through the configured artifact store.
// Submissions that never produced a run report (malformed definitions) are
// skipped, and a failed upload never blocks publishing the result.
func (r *Runner) persistReport(ctx context.Context, span trace.Span, workflowID string, runReport *workflow.RunReport) {
	if r.artifacts == nil || runReport == nil {
		return
	}
	url, err := r.artifacts.SaveReport(ctx, workflowID, runReport)
	if err != nil {
		r.logger.Warn("failed to persist run report",
			zap.String("workflowID", workflowID),
			zap.String("runID", runReport.RunID),
			zap.Error(err))
		return
	}
	span.SetAttributes(attribute.String("run.report_url", url))
}

// execute parses and runs one workflow with a fresh context and executor.
// The second return value is the executor's run report, nil when the
// definition never parsed.
func (r *Runner) execute(ctx context.Context, submission Submission) (Report, *workflow.RunReport) {
	report := Report{WorkflowID: submission.WorkflowID, FinishedAt: time.Now()}

	def, err := workflow.ParseDefinition(submission.Definition)
	if err != nil {
		report.Status = workflow.StateFailed.String()
		report.Reason = err.Error()
		return report, nil
	}

	executor := workflow.NewExecutor(r.registry, r.logger)
	runReport, err := executor.Run(ctx, def, workflow.NewContext())

	report.RunID = runReport.RunID
	report.Status = runReport.Status
	report.ExitCode = runReport.ExitCode
	report.FailedStep = runReport.FailedStepID
	report.Steps = runReport.Steps
	report.FinishedAt = time.Now()
	if err != nil {
		report.Reason = err.Error()
	}
	return report, runReport
}
