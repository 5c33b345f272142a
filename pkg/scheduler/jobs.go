package scheduler

import (
	"fmt"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/config"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// DailySpec fires every day at hour:00.
func DailySpec(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// WeeklySpec fires on weekday (0 = Sunday) at hour:00.
func WeeklySpec(weekday, hour int) string {
	return fmt.Sprintf("0 %d * * %d", hour, weekday)
}

// MonthlySpec fires on day of month at hour:00.
func MonthlySpec(day, hour int) string {
	return fmt.Sprintf("0 %d %d * *", hour, day)
}

// ClinicJobs binds the three recurring clinic jobs to their configured triggers.
func ClinicJobs(cfg config.SchedulerConfig, runner *services.JobRunner) []Job {
	return []Job{
		{
			ID:   services.JobDailyIntegrity,
			Name: "Daily integrity check",
			Spec: DailySpec(cfg.DailyHour),
			Run:  runner.DailyIntegrity,
		},
		{
			ID:   services.JobWeeklyAnalytics,
			Name: "Weekly analytics",
			Spec: WeeklySpec(cfg.WeeklyDay, cfg.WeeklyHour),
			Run:  runner.WeeklyAnalytics,
		},
		{
			ID:   services.JobMonthlyReports,
			Name: "Monthly reports",
			Spec: MonthlySpec(cfg.MonthlyDay, cfg.MonthlyHour),
			Run:  runner.MonthlyReports,
		},
	}
}

// RegisterAll registers every job, stopping at the first invalid one.
func (s *Scheduler) RegisterAll(jobs []Job) error {
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}
