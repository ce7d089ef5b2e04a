package profiler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ExportResult lists the files written by Export.
type ExportResult struct {
	ReportPath string `json:"reportPath"`
	ChartPath  string `json:"chartPath,omitempty"`
}

// Export writes the text report and the stats chart into dir.
// The chart is best effort: a chart failure is logged, the report stands.
func (p *Profiler) Export(dir string, at time.Time) (ExportResult, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create report dir: %w", err)
	}

	stamp := at.UTC().Format("20060102-150405")
	res := ExportResult{ReportPath: filepath.Join(dir, "perf-report-"+stamp+".txt")}

	if err := os.WriteFile(res.ReportPath, []byte(p.GenerateReport()), 0o644); err != nil {
		return ExportResult{}, fmt.Errorf("write report: %w", err)
	}

	chartPath := filepath.Join(dir, "perf-stats-"+stamp+".png")
	if err := p.writeChart(chartPath); err != nil {
		p.log.WithError(err).Warn("⚠️ Stats chart export failed")
	} else {
		res.ChartPath = chartPath
	}

	p.log.WithFields(logrus.Fields{
		"report": res.ReportPath,
		"chart":  res.ChartPath,
	}).Info("📝 Performance report exported")
	return res, nil
}

func (p *Profiler) writeChart(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.RenderChart(f, 840, 600); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
