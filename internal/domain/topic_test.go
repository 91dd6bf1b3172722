package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopic(t *testing.T) {
	planID := uuid.New()

	topic, err := NewTopic(planID, 3, TopicFields{
		Title:        "Goroutines",
		MaterialLink: "https://go.dev/tour/concurrency/1",
	})
	require.NoError(t, err)
	assert.Equal(t, TopicStatusNotStarted, topic.Status)
	assert.Equal(t, 3, topic.OrderIndex)
	assert.Equal(t, planID, topic.PlanID)

	tests := []struct {
		name    string
		index   int
		fields  TopicFields
		wantErr error
	}{
		{"empty title", 0, TopicFields{Title: ""}, ErrEmptyTopicTitle},
		{"bad status", 0, TopicFields{Title: "x", Status: "DONE"}, ErrInvalidTopicStatus},
		{"negative index", -1, TopicFields{Title: "x"}, ErrInvalidOrderIndex},
		{"non-http link", 0, TopicFields{Title: "x", MaterialLink: "ftp://example.com/a"}, ErrInvalidMaterialURL},
		{"relative link", 0, TopicFields{Title: "x", MaterialLink: "docs/intro"}, ErrInvalidMaterialURL},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTopic(planID, tc.index, tc.fields)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTopicStatusTransitionsAreUnrestricted(t *testing.T) {
	topic, err := NewTopic(uuid.New(), 0, TopicFields{Title: "Channels"})
	require.NoError(t, err)

	statuses := []TopicStatus{TopicStatusNotStarted, TopicStatusInProgress, TopicStatusCompleted}
	for _, from := range statuses {
		for _, to := range statuses {
			topic.Status = from
			require.NoError(t, topic.SetStatus(to, time.Now()))
			assert.Equal(t, to, topic.Status)
		}
	}
}

func TestTopicApplyKeepsOriginalOnError(t *testing.T) {
	topic, err := NewTopic(uuid.New(), 0, TopicFields{Title: "Select"})
	require.NoError(t, err)

	bad := TopicStatus("SKIPPED")
	err = topic.Apply(TopicPatch{Title: ptr("Select statement"), Status: &bad}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTopicStatus)
	assert.Equal(t, "Select", topic.Title)
	assert.Equal(t, TopicStatusNotStarted, topic.Status)

	err = topic.Apply(TopicPatch{Notes: ptr("read twice"), MaterialLink: ptr("")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "read twice", topic.Notes)
}

func TestParseTopicStatus(t *testing.T) {
	s, err := ParseTopicStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TopicStatusInProgress, s)

	_, err = ParseTopicStatus("finished")
	assert.ErrorIs(t, err, ErrInvalidTopicStatus)
}
