package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwire/pkg/client"
	"classwire/pkg/types"
)

// The presenter must satisfy the subscriber's handler contract.
var _ client.Handler = (*Presenter)(nil)

func collect() (*Presenter, *[]Notice) {
	var got []Notice
	return NewPresenter(func(n Notice) { got = append(got, n) }), &got
}

func TestSubmissionNotice(t *testing.T) {
	p, got := collect()

	p.HandleNewSubmission(types.NewSubmission{
		StudentName: "Alice", Score: 87, ExamTitle: "Midterm",
	})

	require.Len(t, *got, 1)
	n := (*got)[0]
	assert.Equal(t, LevelSuccess, n.Level)
	assert.Equal(t, "Alice scored 87 on Midterm", n.Text)
	assert.Equal(t, 4*time.Second, n.TTL)
}

func TestExamCreatedNotice(t *testing.T) {
	p, got := collect()

	p.HandleExamCreated(types.ExamCreated{ExamTitle: "Intro to Go"})

	require.Len(t, *got, 1)
	n := (*got)[0]
	assert.Equal(t, LevelInfo, n.Level)
	assert.Equal(t, "New exam created: Intro to Go", n.Text)
	assert.Equal(t, 5*time.Second, n.TTL)
}

func TestExamStatusChangedNotice(t *testing.T) {
	p, got := collect()

	p.HandleExamStatusChanged(types.ExamStatusChanged{
		ExamTitle: "Intro to Go", NewStatus: "inactive",
	})

	require.Len(t, *got, 1)
	assert.Equal(t, "Exam Intro to Go is now inactive", (*got)[0].Text)
}
