package types

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMemoryAppendCapsHistory(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 25; i++ {
		m.Append(NewUserMessage(fmt.Sprintf("message %d", i)), DefaultHistoryCap)
	}

	require.Len(t, m.History, DefaultHistoryCap)
	assert.Equal(t, "message 15", m.History[0].Content)
	assert.Equal(t, "message 24", m.History[len(m.History)-1].Content)
}

func TestMemoryAppendDefaultsCap(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 15; i++ {
		m.Append(NewUserMessage(fmt.Sprintf("m%d", i)), 0)
	}
	assert.Len(t, m.History, DefaultHistoryCap)
}

func TestMemoryHistoryCapProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(11, 200).Draw(t, "n")

		m := NewMemory()
		for i := 0; i < n; i++ {
			m.Append(NewUserMessage(fmt.Sprintf("message %d", i)), DefaultHistoryCap)
		}

		if len(m.History) != DefaultHistoryCap {
			t.Fatalf("history length = %d, want %d", len(m.History), DefaultHistoryCap)
		}
		// The retained window is the most recent messages in original order.
		for j, msg := range m.History {
			want := fmt.Sprintf("message %d", n-DefaultHistoryCap+j)
			if msg.Content != want {
				t.Fatalf("history[%d] = %q, want %q", j, msg.Content, want)
			}
		}
	})
}

func TestRecentContext(t *testing.T) {
	m := NewMemory()

	assert.Empty(t, m.RecentContext(5))

	for i := 0; i < 3; i++ {
		m.Append(NewUserMessage(fmt.Sprintf("m%d", i)), DefaultHistoryCap)
	}

	recent := m.RecentContext(5)
	require.Len(t, recent, 3)
	assert.Equal(t, "m0", recent[0].Content)
	assert.Equal(t, "m2", recent[2].Content)

	recent = m.RecentContext(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "m1", recent[0].Content)
	assert.Equal(t, "m2", recent[1].Content)

	assert.Empty(t, m.RecentContext(0))
}

func TestMemoryContext(t *testing.T) {
	m := NewMemory()

	_, ok := m.GetContext("missing")
	assert.False(t, ok)

	m.SetContext("last_user_input", "hello")
	v, ok := m.GetContext("last_user_input")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestMemoryRecordDecision(t *testing.T) {
	m := NewMemory()
	m.RecordDecision(PlanRecord{
		Query:     "q",
		Workers:   []string{"research_worker"},
		CreatedAt: time.Now(),
	})

	require.Len(t, m.Decisions, 1)
	assert.Equal(t, "q", m.Decisions[0].Query)
}

func TestRunStateActiveWorkers(t *testing.T) {
	state := &RunState{
		WorkerStates: map[string]*WorkerState{
			"a": {WorkerID: "a", Busy: true},
			"b": {WorkerID: "b"},
			"c": {WorkerID: "c", Busy: true},
		},
	}
	assert.Equal(t, 2, state.ActiveWorkers())
}

func TestMessageConstructors(t *testing.T) {
	user := NewUserMessage("hi")
	assert.Equal(t, KindUserInput, user.Kind)
	assert.Equal(t, "user", user.Sender)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.Timestamp.IsZero())

	q := NewSupervisorQuestion("what?")
	assert.Equal(t, KindSupervisorQuestion, q.Kind)
	assert.Equal(t, "supervisor", q.Sender)

	resp := NewWorkerResponse("research_worker", "findings")
	assert.Equal(t, KindWorkerResponse, resp.Kind)
	assert.Equal(t, "research_worker", resp.Sender)

	d := NewSupervisorDecision("done")
	assert.Equal(t, KindSupervisorDecision, d.Kind)
}
