// Package types provides core types used across the arbiter service.
// This package has ZERO dependencies on other arbiter packages to avoid
// circular imports. All other packages should import types from here.
package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind classifies a conversation message by its origin.
type MessageKind string

const (
	KindUserInput          MessageKind = "user_input"
	KindSupervisorQuestion MessageKind = "supervisor_question"
	KindWorkerResponse     MessageKind = "worker_response"
	KindSupervisorDecision MessageKind = "supervisor_decision"
	KindWorkerTask         MessageKind = "worker_task"
)

// Message is a single conversation entry. Messages are immutable once created.
type Message struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Sender    string         `json:"sender"`
	Kind      MessageKind    `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with the given kind, sender and content.
func NewMessage(kind MessageKind, sender, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user_input message from the end user.
func NewUserMessage(content string) Message {
	return NewMessage(KindUserInput, "user", content)
}

// NewSupervisorQuestion creates a supervisor_question message.
func NewSupervisorQuestion(content string) Message {
	return NewMessage(KindSupervisorQuestion, "supervisor", content)
}

// NewSupervisorDecision creates a supervisor_decision message.
func NewSupervisorDecision(content string) Message {
	return NewMessage(KindSupervisorDecision, "supervisor", content)
}

// NewWorkerResponse creates a worker_response message sent by workerID.
func NewWorkerResponse(workerID, content string) Message {
	return NewMessage(KindWorkerResponse, workerID, content)
}

// WithMetadata returns a copy of the message with metadata attached.
func (m Message) WithMetadata(metadata map[string]any) Message {
	m.Metadata = metadata
	return m
}
