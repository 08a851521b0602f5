package credentials

import (
	"context"
	"fmt"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/database"
	"github.com/google/uuid"
)

// DatabricksSource issues Lakebase OAuth tokens for the workspace's current
// principal (the app's service principal when deployed).
type DatabricksSource struct {
	workspace    *databricks.WorkspaceClient
	instanceName string
}

func NewDatabricksSource(workspace *databricks.WorkspaceClient, instanceName string) *DatabricksSource {
	return &DatabricksSource{workspace: workspace, instanceName: instanceName}
}

func (s *DatabricksSource) Issue(ctx context.Context) (Credential, error) {
	me, err := s.workspace.CurrentUser.Me(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("resolve current user: %w", err)
	}

	cred, err := s.workspace.Database.GenerateDatabaseCredential(ctx, database.GenerateDatabaseCredentialRequest{
		RequestId:     uuid.NewString(),
		InstanceNames: []string{s.instanceName},
	})
	if err != nil {
		return Credential{}, fmt.Errorf("generate credential for %s: %w", s.instanceName, err)
	}

	return Credential{Username: me.UserName, Token: cred.Token}, nil
}
