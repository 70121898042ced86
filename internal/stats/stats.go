// Package stats computes the derived progress figures every dashboard view
// depends on. All functions are pure over in-memory rows: no I/O, no clock
// reads. Callers capture time.Now once per aggregation pass and pass it in so
// overdue classification is consistent within a pass.
package stats

import (
	"math"
	"time"

	"compliance-backend/internal/model"
)

// DepartmentStats are the derived counters for one department
type DepartmentStats struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
	Progress       int `json:"progress"` // integer percent, 0..100
}

// DepartmentSummary is a department with its computed stats, the unit the
// dashboard endpoints return
type DepartmentSummary struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Checklists []model.ChecklistItem `json:"checklists"`
	DepartmentStats
}

// OrgKpis are the organization-wide dashboard numbers
type OrgKpis struct {
	TotalTasks      int `json:"total_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	OverdueTasks    int `json:"overdue_tasks"`
	PercentComplete int `json:"percent_complete"`
	Departments     int `json:"departments"`
}

// ComputeDepartmentStats derives the counters for one department's items.
// A completed item is never overdue. Empty input yields all zeros.
func ComputeDepartmentStats(items []model.ChecklistItem, now time.Time) DepartmentStats {
	var s DepartmentStats
	s.TotalTasks = len(items)
	for _, item := range items {
		if item.Completed {
			s.CompletedTasks++
		} else if item.DueDate.Before(now) {
			s.OverdueTasks++
		}
	}
	if s.TotalTasks > 0 {
		s.Progress = roundPercent(float64(s.CompletedTasks) / float64(s.TotalTasks) * 100)
	}
	return s
}

// ComputeOrgKpis sums the per-department counters into the dashboard KPIs.
// The completed-task figure is the average-of-percentages estimate
// round(sum(progress)/100 * departmentCount), not a true weighted sum; it can
// diverge from sum(completedTasks) and is kept as the product behavior.
func ComputeOrgKpis(departments []DepartmentSummary) OrgKpis {
	var kpis OrgKpis
	kpis.Departments = len(departments)

	progressSum := 0
	for _, d := range departments {
		kpis.TotalTasks += d.TotalTasks
		kpis.OverdueTasks += d.OverdueTasks
		progressSum += d.Progress
	}
	kpis.CompletedTasks = roundPercent(float64(progressSum) / 100 * float64(kpis.Departments))
	if kpis.TotalTasks > 0 {
		kpis.PercentComplete = roundPercent(float64(kpis.CompletedTasks) / float64(kpis.TotalTasks) * 100)
	}
	return kpis
}

// CompletionBar is one department's slice of the completion chart
type CompletionBar struct {
	Name     string `json:"name"`
	Progress int    `json:"progress"`
}

// CompletionByDepartment shapes the per-department completion chart series
func CompletionByDepartment(departments []DepartmentSummary) []CompletionBar {
	bars := make([]CompletionBar, 0, len(departments))
	for _, d := range departments {
		bars = append(bars, CompletionBar{Name: d.Name, Progress: d.Progress})
	}
	return bars
}

// DuePoint is the number of still-open tasks due on one day
type DuePoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// UpcomingDueCounts buckets incomplete tasks due within the next `days` days
// by calendar day, starting at now's day. Days with no due tasks are included
// as zeros so chart axes stay contiguous.
func UpcomingDueCounts(departments []DepartmentSummary, now time.Time, days int) []DuePoint {
	if days <= 0 {
		return []DuePoint{}
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, days)

	counts := make(map[string]int, days)
	for _, d := range departments {
		for _, item := range d.Checklists {
			if item.Completed {
				continue
			}
			due := item.DueDate.In(now.Location())
			if due.Before(start) || !due.Before(end) {
				continue
			}
			counts[due.Format("2006-01-02")]++
		}
	}

	points := make([]DuePoint, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, DuePoint{Date: day, Count: counts[day]})
	}
	return points
}

// roundPercent rounds half away from zero, matching Math.round on the
// non-negative values this package produces
func roundPercent(v float64) int {
	return int(math.Round(v))
}
