package jobs

import (
	"context"
	"fmt"

	"github.com/adi-verma/quantscanner/internal/health"
	"github.com/adi-verma/quantscanner/pkg/logger"
)

// HealthJob runs the pre-scan health check shortly before the scan window
type HealthJob struct {
	checker  *health.Checker
	schedule string
	logger   *logger.Logger
}

// NewHealthJob creates the pre-flight health check job
func NewHealthJob(checker *health.Checker, schedule string, log *logger.Logger) *HealthJob {
	return &HealthJob{
		checker:  checker,
		schedule: schedule,
		logger:   log.WithField("job", "health_check"),
	}
}

// Name returns the job name
func (j *HealthJob) Name() string {
	return "health_check"
}

// Schedule returns the cron schedule
func (j *HealthJob) Schedule() string {
	return j.schedule
}

// Run executes all probes. An unhealthy report is a job failure so it
// surfaces through the scheduler's retry and alert path.
func (j *HealthJob) Run(ctx context.Context) error {
	report := j.checker.Run(ctx)
	if report.Healthy {
		return nil
	}

	for _, check := range report.Checks {
		if !check.OK {
			j.logger.WithFields(map[string]interface{}{
				"check":  check.Name,
				"detail": check.Detail,
			}).Error("Health probe failed")
		}
	}
	return fmt.Errorf("health check unhealthy")
}
