// Package notice turns dispatched domain events into transient user-facing
// notices. Notices are ephemeral UI state: each carries a display duration
// and nothing is stored.
package notice

import (
	"fmt"
	"time"

	"classwire/pkg/types"
)

type Level int

const (
	LevelSuccess Level = iota
	LevelInfo
)

func (l Level) String() string {
	if l == LevelSuccess {
		return "success"
	}
	return "info"
}

// Notice is one dismissible message. TTL bounds how long it stays visible.
type Notice struct {
	Level Level
	Text  string
	TTL   time.Duration
}

const (
	successTTL = 4 * time.Second
	infoTTL    = 5 * time.Second
)

// Sink consumes rendered notices.
type Sink func(Notice)

// Presenter adapts a notice sink to the subscriber's handler interface, one
// formatting rule per event variant.
type Presenter struct {
	sink Sink
}

func NewPresenter(sink Sink) *Presenter {
	return &Presenter{sink: sink}
}

func (p *Presenter) HandleNewSubmission(ev types.NewSubmission) {
	p.sink(Notice{
		Level: LevelSuccess,
		Text:  fmt.Sprintf("%s scored %v on %s", ev.StudentName, ev.Score, ev.ExamTitle),
		TTL:   successTTL,
	})
}

func (p *Presenter) HandleExamCreated(ev types.ExamCreated) {
	p.sink(Notice{
		Level: LevelInfo,
		Text:  fmt.Sprintf("New exam created: %s", ev.ExamTitle),
		TTL:   infoTTL,
	})
}

func (p *Presenter) HandleExamStatusChanged(ev types.ExamStatusChanged) {
	p.sink(Notice{
		Level: LevelInfo,
		Text:  fmt.Sprintf("Exam %s is now %s", ev.ExamTitle, ev.NewStatus),
		TTL:   infoTTL,
	})
}
