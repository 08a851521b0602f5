// Package genie answers booth visitors' analytics questions through a
// Databricks Genie space.
package genie

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/trexbooth/logger"
)

const (
	maxRows = 20

	noResultText = "Consulta processada, mas sem resultados para exibir."
)

var ErrEmptyQuestion = errors.New("question is required")

// Message is a Genie reply reduced to the parts the booth renders.
// StatementID identifies the query result when the reply ran a query.
type Message struct {
	ID             string
	ConversationID string
	Attachments    []Attachment
	StatementID    string
}

// Attachment carries either Text or a Query.
type Attachment struct {
	Text  *string
	Query *Query
}

type Query struct {
	SQL         string
	Description string
	StatementID string
}

type StatementResult struct {
	Columns []string
	Rows    [][]string
}

// API is the subset of the Genie and statement execution services in use.
type API interface {
	StartConversation(ctx context.Context, spaceID, question string) (*Message, error)
	ContinueConversation(ctx context.Context, spaceID, conversationID, question string) (*Message, error)
	StatementResult(ctx context.Context, statementID string) (*StatementResult, error)
}

// Answer is returned to the client as-is.
type Answer struct {
	ConversationID string     `json:"conversation_id,omitempty"`
	MessageID      string     `json:"message_id,omitempty"`
	Text           string     `json:"text,omitempty"`
	SQL            string     `json:"sql,omitempty"`
	Description    string     `json:"description,omitempty"`
	Columns        []string   `json:"columns,omitempty"`
	Rows           [][]string `json:"data,omitempty"`
}

type Client struct {
	api     API
	spaceID string
}

func NewClient(api API, spaceID string) *Client {
	return &Client{api: api, spaceID: spaceID}
}

// Ask starts a new conversation, or continues conversationID when set.
func (c *Client) Ask(ctx context.Context, question, conversationID string) (*Answer, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var (
		msg *Message
		err error
	)
	if conversationID != "" {
		msg, err = c.api.ContinueConversation(ctx, c.spaceID, conversationID, question)
	} else {
		msg, err = c.api.StartConversation(ctx, c.spaceID, question)
	}
	if err != nil {
		return nil, fmt.Errorf("ask genie space %s: %w", c.spaceID, err)
	}

	if msg.ConversationID == "" {
		msg.ConversationID = conversationID
	}
	return c.extract(ctx, msg), nil
}

func (c *Client) extract(ctx context.Context, msg *Message) *Answer {
	answer := &Answer{ConversationID: msg.ConversationID, MessageID: msg.ID}

	for _, att := range msg.Attachments {
		switch {
		case att.Text != nil:
			answer.Text = *att.Text
		case att.Query != nil:
			answer.SQL = att.Query.SQL
			answer.Description = att.Query.Description

			statementID := msg.StatementID
			if statementID == "" {
				statementID = att.Query.StatementID
			}
			if statementID != "" {
				c.attachResult(ctx, answer, statementID)
			}
		}
	}

	if answer.Text == "" && answer.SQL == "" && len(answer.Rows) == 0 {
		answer.Text = noResultText
	}
	return answer
}

// attachResult is best effort: a failed fetch still returns the SQL.
func (c *Client) attachResult(ctx context.Context, answer *Answer, statementID string) {
	result, err := c.api.StatementResult(ctx, statementID)
	if err != nil {
		logger.Log.Warnw("failed to fetch genie query result", "statement_id", statementID, "error", err)
		return
	}

	answer.Columns = result.Columns
	rows := result.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	answer.Rows = rows
}
