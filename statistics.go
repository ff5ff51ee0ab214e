package digitnet

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Record is the summary of one training cycle or one evaluation.
type Record struct {
	Phase    string // "train" or "test"
	Cycle    int
	Samples  int
	Loss     float32 // mean loss per sample
	Accuracy float64 // evaluations only
	Duration time.Duration
}

type Statistics struct {
	Records []Record
}

func makeStatistics() Statistics {
	return Statistics{
		Records: make([]Record, 0, 64),
	}
}

func (s *Statistics) update(r Record) { s.Records = append(s.Records, r) }

// Last returns the most recent record of the given phase.
func (s *Statistics) Last(phase string) (Record, bool) {
	for i := len(s.Records) - 1; i >= 0; i-- {
		if s.Records[i].Phase == phase {
			return s.Records[i], true
		}
	}
	return Record{}, false
}

// Dump writes every record as CSV.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"phase", "cycle", "samples", "loss", "accuracy", "seconds"}); err != nil {
		return errors.WithStack(err)
	}
	records := make([][]string, 0, len(s.Records))
	for _, r := range s.Records {
		var acc string
		if r.Phase == "test" {
			acc = strconv.FormatFloat(r.Accuracy, 'f', 4, 64)
		}
		records = append(records, []string{
			r.Phase,
			strconv.Itoa(r.Cycle),
			strconv.Itoa(r.Samples),
			strconv.FormatFloat(float64(r.Loss), 'f', 6, 32),
			acc,
			strconv.FormatFloat(r.Duration.Seconds(), 'f', 3, 64),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	return f.Close()
}
