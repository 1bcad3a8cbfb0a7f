package deepq

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Logger is a tabular logging collaborator. Each epoch, the Trainer
// calls Log once for each statistic and then Dump.
type Logger interface {
	Log(key string, value interface{}) error
	Dump() error
}

// EpochStatistics summarizes a single training epoch
type EpochStatistics struct {
	Epoch int

	// Loss is the mean loss over all gradient updates of the epoch, or
	// NaN if no updates were performed
	Loss float64

	// AvgReturn is the mean return of episodes completed in the epoch,
	// or NaN if no episode was completed
	AvgReturn float64

	// AvgEpisodeLength is the mean episode length, including the
	// length of the episode in progress when the epoch ended
	AvgEpisodeLength float64

	TotalSteps    int // Environment steps taken during the epoch
	Updates       int // Gradient updates performed during the epoch
	Episodes      int // Episodes completed during the epoch
	TotalEpisodes int // Episodes completed since training began

	Epsilon     float64 // Exploration probability at the end of the epoch
	NetworkDiff float64 // Σ |main - target| at the end of the epoch

	EpochTime     time.Duration
	TimeRemaining time.Duration
	MemUsage      float64 // Allocated heap, in MiB
}

// Log logs the statistics with l and then dumps the row
func (e EpochStatistics) Log(l Logger) error {
	for _, f := range e.row() {
		if err := l.Log(f.key, f.value); err != nil {
			return fmt.Errorf("log: %v", err)
		}
	}
	return l.Dump()
}

// Fields returns the statistics as logrus fields
func (e EpochStatistics) Fields() logrus.Fields {
	fields := make(logrus.Fields)
	for _, f := range e.row() {
		fields[f.key] = f.value
	}
	return fields
}

type field struct {
	key   string
	value interface{}
}

func (e EpochStatistics) row() []field {
	return []field{
		{"epoch", e.Epoch},
		{"loss", e.Loss},
		{"avg_return", e.AvgReturn},
		{"avg_ep_len", e.AvgEpisodeLength},
		{"total_eps", e.TotalEpisodes},
		{"total_steps", e.TotalSteps},
		{"epsilon", e.Epsilon},
		{"ntwk_diff", e.NetworkDiff},
		{"epoch_time", e.EpochTime.Seconds()},
		{"mem_usage", e.MemUsage},
		{"time_rem", e.TimeRemaining.Seconds()},
	}
}

// accumulator accumulates the data of a single epoch
type accumulator struct {
	losses  []float64
	returns []float64
	lengths []float64
	steps   int

	// Episode in progress
	epReturn float64
	epLength int
}

func (a *accumulator) step(reward float64) {
	a.steps++
	a.epReturn += reward
	a.epLength++
}

func (a *accumulator) loss(l float64) {
	a.losses = append(a.losses, l)
}

func (a *accumulator) endEpisode() {
	a.returns = append(a.returns, a.epReturn)
	a.lengths = append(a.lengths, float64(a.epLength))
	a.epReturn, a.epLength = 0, 0
}

// statistics summarizes the accumulated data. The episode in progress
// contributes its length only.
func (a *accumulator) statistics(epoch int) EpochStatistics {
	lengths := a.lengths
	if a.epLength > 0 {
		lengths = append(lengths, float64(a.epLength))
	}

	return EpochStatistics{
		Epoch:            epoch,
		Loss:             mean(a.losses),
		AvgReturn:        mean(a.returns),
		AvgEpisodeLength: mean(lengths),
		TotalSteps:       a.steps,
		Updates:          len(a.losses),
		Episodes:         len(a.returns),
		MemUsage:         memUsage(),
	}
}

// mean returns the mean of x, or NaN if x is empty
func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

func memUsage() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / (1 << 20)
}
