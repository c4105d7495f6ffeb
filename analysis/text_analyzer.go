package analysis

import (
	"fmt"
	"time"

	"github.com/jesbu1/rl-starter-files/core"
	"github.com/jesbu1/rl-starter-files/util"
	"github.com/sirupsen/logrus"
)

// TextAnalyzer logs one summary line per report.
type TextAnalyzer struct {
	logger logrus.FieldLogger
}

var _ core.Analyzer = &TextAnalyzer{}

func NewTextAnalyzer(logger logrus.FieldLogger) *TextAnalyzer {
	return &TextAnalyzer{logger: logger}
}

func (t *TextAnalyzer) Analyze(r *core.UpdateReport) error {
	t.logger.Info(Summary(r))
	return nil
}

// Summary formats r as one log line. D is the elapsed time in whole seconds
// printed as H:MM:SS; the gradient norm only goes to the CSV and metrics.
func Summary(r *core.UpdateReport) string {
	rr := Synthesize(r.Episodes.ReshapedReturnPerEpisode)
	nf := Synthesize(r.Episodes.NumFramesPerEpisode)
	l := r.Losses
	return fmt.Sprintf(
		"U %d | F %06d | FPS %04.0f | D %s | rR:x̄σmM % .2f % .2f % .2f % .2f | F:x̄σmM %.1f %.1f %.1f %.1f | H %.3f | V %.3f | pL % .3f | vL %.3f",
		r.Update, r.NumFrames, r.FPS, util.FormatDuration(r.Duration.Truncate(time.Second)),
		rr.Mean, rr.Std, rr.Min, rr.Max,
		nf.Mean, nf.Std, nf.Min, nf.Max,
		l.Entropy, l.Value, l.PolicyLoss, l.ValueLoss,
	)
}
