// File: internal/jobs/provider_reindex.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"quickfix_backend/internal/config"
	"quickfix_backend/internal/provider"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ProviderReindexJob periodically rebuilds the Elasticsearch provider
// directory index from the document store, catching any writes the inline
// best-effort indexing missed.
type ProviderReindexJob struct {
	providerService provider.Service
	logger          *zap.Logger
	cfg             *config.Config
	cronScheduler   *cron.Cron
}

// NewProviderReindexJob creates a new ProviderReindexJob.
func NewProviderReindexJob(
	providerService provider.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *ProviderReindexJob {
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &ProviderReindexJob{
		providerService: providerService,
		logger:          logger.Named("ProviderReindexJob"),
		cfg:             cfg,
		cronScheduler:   scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *ProviderReindexJob) SetupAndStart() error {
	jobSpec := j.cfg.ProviderReindexJobSchedule // e.g., "@hourly", "0 3 * * *"
	if jobSpec == "" {
		j.logger.Warn("Provider reindex job schedule not defined (PROVIDER_REINDEX_JOB_SCHEDULE). Job will not run.")
		return nil // Not a fatal error, just won't run
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule provider reindex job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Provider reindex job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// runJob is the actual work performed by the cron job.
func (j *ProviderReindexJob) runJob() {
	j.logger.Info("Starting provider reindex job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	indexed, err := j.providerService.ReindexAll(ctx)
	if err != nil {
		j.logger.Error("Provider reindex job run failed", zap.Error(err))
	} else {
		j.logger.Info("Provider reindex job run completed", zap.Int("providers_indexed", indexed))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *ProviderReindexJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping provider reindex job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Provider reindex job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Provider reindex job scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Info(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
