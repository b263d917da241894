package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-assistant/internal/config"
	"github.com/brandon/mail-assistant/internal/email"
	"github.com/brandon/mail-assistant/internal/journal"
	"github.com/brandon/mail-assistant/pkg/types"
)

// Mailer is the mailbox engine the tools drive. *email.Manager implements it.
type Mailer interface {
	Process(ctx context.Context, handle email.Handler) (*types.BatchReport, error)
	Fetch(ctx context.Context, overrides email.PolicyOverrides) ([]types.EmailRecord, error)
	MarkAsRead(ctx context.Context, mailbox, id string) error
	MoveToFolder(ctx context.Context, mailbox, id, folder string) error
	ListFolders(ctx context.Context) ([]types.Folder, error)
}

// Settings exposes the configuration snapshot and persists edits. *config.Provider implements it.
type Settings interface {
	Current() *config.Config
	Save(values map[string]string) error
}

// RunLog reads the processing journal. *journal.Journal implements it.
type RunLog interface {
	ListRuns(ctx context.Context, limit int) ([]journal.Run, error)
	SearchActions(ctx context.Context, filter journal.ActionFilter) ([]journal.Action, error)
}

// Deps are the collaborators shared by all tools. Runs and Handler may be nil.
type Deps struct {
	Mailer   Mailer
	Settings Settings
	Runs     RunLog
	Handler  email.Handler
}

// Registry manages MCP tools
type Registry struct {
	deps   Deps
	logger *logrus.Logger
	tools  map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(deps Deps, logger *logrus.Logger) *Registry {
	reg := &Registry{
		deps:   deps,
		logger: logger,
		tools:  make(map[string]Tool),
	}

	// Register all tools
	reg.registerTools()

	return reg
}

// registerTools registers all available tools
func (r *Registry) registerTools() {
	toolList := []Tool{
		NewFetchEmailsTool(r.deps.Mailer, r.logger),
		NewProcessEmailsTool(r.deps.Mailer, r.deps.Handler, r.logger),
		NewMarkAsReadTool(r.deps.Mailer, r.logger),
		NewMoveEmailTool(r.deps.Mailer, r.logger),
		NewListFoldersTool(r.deps.Mailer, r.logger),
		NewGetConfigTool(r.deps.Settings),
		NewSaveConfigTool(r.deps.Settings, r.logger),
	}
	if r.deps.Runs != nil {
		toolList = append(toolList, NewListRunsTool(r.deps.Runs))
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools, sorted by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}
