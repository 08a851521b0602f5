package genie

import (
	"context"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/dashboards"
	"github.com/databricks/databricks-sdk-go/service/sql"
)

// DatabricksAPI implements API with the workspace Genie and statement
// execution services.
type DatabricksAPI struct {
	workspace *databricks.WorkspaceClient
}

func NewDatabricksAPI(workspace *databricks.WorkspaceClient) *DatabricksAPI {
	return &DatabricksAPI{workspace: workspace}
}

func (a *DatabricksAPI) StartConversation(ctx context.Context, spaceID, question string) (*Message, error) {
	msg, err := a.workspace.Genie.StartConversationAndWait(ctx, dashboards.GenieStartConversationMessageRequest{
		SpaceId: spaceID,
		Content: question,
	})
	if err != nil {
		return nil, err
	}
	return fromGenieMessage(msg), nil
}

func (a *DatabricksAPI) ContinueConversation(ctx context.Context, spaceID, conversationID, question string) (*Message, error) {
	msg, err := a.workspace.Genie.CreateMessageAndWait(ctx, dashboards.GenieCreateConversationMessageRequest{
		SpaceId:        spaceID,
		ConversationId: conversationID,
		Content:        question,
	})
	if err != nil {
		return nil, err
	}
	return fromGenieMessage(msg), nil
}

func (a *DatabricksAPI) StatementResult(ctx context.Context, statementID string) (*StatementResult, error) {
	stmt, err := a.workspace.StatementExecution.GetStatement(ctx, sql.GetStatementRequest{
		StatementId: statementID,
	})
	if err != nil {
		return nil, err
	}

	result := &StatementResult{}
	if stmt.Manifest != nil && stmt.Manifest.Schema != nil {
		for _, col := range stmt.Manifest.Schema.Columns {
			result.Columns = append(result.Columns, col.Name)
		}
	}
	if stmt.Result != nil {
		result.Rows = stmt.Result.DataArray
	}
	return result, nil
}

func fromGenieMessage(msg *dashboards.GenieMessage) *Message {
	out := &Message{
		ID:             msg.Id,
		ConversationID: msg.ConversationId,
	}
	if msg.QueryResult != nil {
		out.StatementID = msg.QueryResult.StatementId
	}

	for _, att := range msg.Attachments {
		var a Attachment
		if att.Text != nil {
			content := att.Text.Content
			a.Text = &content
		} else if att.Query != nil {
			a.Query = &Query{
				SQL:         att.Query.Query,
				Description: att.Query.Description,
				StatementID: att.Query.StatementId,
			}
		}
		out.Attachments = append(out.Attachments, a)
	}
	return out
}
