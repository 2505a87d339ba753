package artifact

import (
	"bytes"
	"io"
)

// Progress is a transfer progress event.
type Progress struct {
	Transferred int64 `json:"transferred"`
	Total       int64 `json:"total"`
}

// Percent returns the completed share of the transfer in [0,100].
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 100
	}
	return float64(p.Transferred) / float64(p.Total) * 100
}

// ProgressReader reads a byte slice and emits a Progress event after every
// read. Events are dropped when the channel is full.
type ProgressReader struct {
	r      *bytes.Reader
	total  int64
	done   int64
	events chan<- Progress
}

// NewProgressReader wraps data. A nil events channel disables reporting.
func NewProgressReader(data []byte, events chan<- Progress) *ProgressReader {
	return &ProgressReader{r: bytes.NewReader(data), total: int64(len(data)), events: events}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.done += int64(n)
	if p.events != nil && (n > 0 || err == io.EOF) {
		select {
		case p.events <- Progress{Transferred: p.done, Total: p.total}:
		default:
		}
	}
	return n, err
}
