package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrEmptyMessage = errors.New("empty message")

// ChatMessage is immutable once created. JSON names follow the chat relay.
type ChatMessage struct {
	ID                 string `json:"id"`
	SenderID           string `json:"oderId"`
	Nickname           string `json:"nickname"`
	Content            string `json:"content"`
	OriginalContent    string `json:"originalContent,omitempty"`
	OriginalLanguage   string `json:"originalLanguage,omitempty"`
	TranslatedLanguage string `json:"translatedLanguage,omitempty"`
	Timestamp          string `json:"timestamp"`
}

// NewChatMessage builds an outbound message with a time-based id.
func NewChatMessage(senderID, nickname, content, language string, now time.Time) (ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	return ChatMessage{
		ID:               strconv.FormatInt(now.UnixMilli(), 10),
		SenderID:         senderID,
		Nickname:         nickname,
		Content:          content,
		OriginalContent:  content,
		OriginalLanguage: language,
		Timestamp:        now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}, nil
}

// Translated returns a copy carrying the translated content.
func (m ChatMessage) Translated(content, language string) ChatMessage {
	if m.OriginalContent == "" {
		m.OriginalContent = m.Content
	}
	m.Content = content
	m.TranslatedLanguage = language
	return m
}
