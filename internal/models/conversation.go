package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID          string        `json:"conversationId"`
	OwnerID     string        `json:"userId"`
	Messages    []ChatMessage `json:"messages"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

type ConversationSummary struct {
	ID           string    `json:"conversationId"`
	LastMessage  string    `json:"lastMessage"`
	LastResponse string    `json:"lastResponse"`
	LastUpdated  time.Time `json:"lastUpdated"`
}
