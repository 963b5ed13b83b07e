package tooldispatch

// StandardCatalog is the full tool surface advertised by the assistant:
// shell, file, search, browser, git, web and session tools. Entries carry
// no handlers; implementations are external and are bound at registration
// time with RegisterCatalog.
func StandardCatalog() []Definition {
	return []Definition{
		{
			Name:        "bash",
			Description: "Execute a bash command in a shell session. Use this for running commands, installing packages, running tests, etc.",
			Parameters: []Parameter{
				{Name: "command", Type: "string", Description: "The bash command to execute", Required: true},
				{Name: "exec_dir", Type: "string", Description: "The directory to execute the command in", Required: true},
				{Name: "timeout", Type: "integer", Description: "Timeout in milliseconds (default: 45000)"},
				{Name: "run_in_background", Type: "boolean", Description: "Whether to run the command in the background"},
			},
		},
		{
			Name:        "read_file",
			Description: "Read the contents of a file. Use this to view file contents before editing.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "The absolute path to the file to read", Required: true},
				{Name: "offset", Type: "integer", Description: "Line number to start reading from (optional)"},
				{Name: "limit", Type: "integer", Description: "Number of lines to read (optional)"},
			},
		},
		{
			Name:        "write_file",
			Description: "Write content to a file. Creates the file if it doesn't exist.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "The absolute path to the file to write", Required: true},
				{Name: "content", Type: "string", Description: "The content to write to the file", Required: true},
			},
		},
		{
			Name:        "edit_file",
			Description: "Edit a file by replacing a specific string with another. The old_string must be unique in the file.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "The absolute path to the file to edit", Required: true},
				{Name: "old_string", Type: "string", Description: "The exact string to replace", Required: true},
				{Name: "new_string", Type: "string", Description: "The string to replace it with", Required: true},
				{Name: "replace_all", Type: "boolean", Description: "Whether to replace all occurrences (default: false)"},
			},
		},
		{
			Name:        "glob",
			Description: "Find files matching a glob pattern.",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "The glob pattern to match (e.g., '**/*.go')", Required: true},
				{Name: "path", Type: "string", Description: "The directory to search in", Required: true},
			},
		},
		{
			Name:        "grep",
			Description: "Search for a pattern in files using ripgrep.",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "The regex pattern to search for", Required: true},
				{Name: "path", Type: "string", Description: "The file or directory to search in", Required: true},
				{Name: "glob", Type: "string", Description: "Glob pattern to filter files (optional)"},
				{Name: "case_insensitive", Type: "boolean", Description: "Whether to ignore case (default: false)"},
			},
		},
		{
			Name:        "browser_navigate",
			Description: "Navigate to a URL in the browser.",
			Parameters: []Parameter{
				{Name: "url", Type: "string", Description: "The URL to navigate to", Required: true},
				{Name: "tab_idx", Type: "integer", Description: "Browser tab index (optional)"},
			},
		},
		{
			Name:        "browser_click",
			Description: "Click an element in the browser.",
			Parameters: []Parameter{
				{Name: "selector", Type: "string", Description: "CSS selector or element ID to click"},
				{Name: "coordinates", Type: "string", Description: "x,y coordinates as fallback"},
			},
		},
		{
			Name:        "browser_type",
			Description: "Type text into an element in the browser.",
			Parameters: []Parameter{
				{Name: "selector", Type: "string", Description: "CSS selector or element ID to type into"},
				{Name: "content", Type: "string", Description: "Text to type", Required: true},
				{Name: "press_enter", Type: "boolean", Description: "Whether to press enter after typing"},
			},
		},
		{
			Name:        "browser_screenshot",
			Description: "Take a screenshot of the current browser page.",
			Parameters: []Parameter{
				{Name: "full_page", Type: "boolean", Description: "Whether to capture the full page"},
			},
		},
		{
			Name:        "git_status",
			Description: "Get the current git status.",
			Parameters: []Parameter{
				{Name: "repo_path", Type: "string", Description: "Path to the git repository", Required: true},
			},
		},
		{
			Name:        "git_commit",
			Description: "Stage and commit changes.",
			Parameters: []Parameter{
				{Name: "repo_path", Type: "string", Description: "Path to the git repository", Required: true},
				{Name: "message", Type: "string", Description: "Commit message", Required: true},
				{Name: "files", Type: "array", Description: "Files to stage (optional, stages all if not provided)", Items: map[string]interface{}{"type": "string"}},
			},
		},
		{
			Name:        "git_create_branch",
			Description: "Create and checkout a new git branch.",
			Parameters: []Parameter{
				{Name: "repo_path", Type: "string", Description: "Path to the git repository", Required: true},
				{Name: "branch_name", Type: "string", Description: "Name of the new branch", Required: true},
			},
		},
		{
			Name:        "git_push",
			Description: "Push commits to remote.",
			Parameters: []Parameter{
				{Name: "repo_path", Type: "string", Description: "Path to the git repository", Required: true},
				{Name: "branch", Type: "string", Description: "Branch to push (optional)"},
			},
		},
		{
			Name:        "git_create_pr",
			Description: "Create a pull request.",
			Parameters: []Parameter{
				{Name: "repo", Type: "string", Description: "Repository in owner/repo format", Required: true},
				{Name: "title", Type: "string", Description: "PR title", Required: true},
				{Name: "head_branch", Type: "string", Description: "Branch to merge from", Required: true},
				{Name: "base_branch", Type: "string", Description: "Branch to merge into", Required: true},
				{Name: "body", Type: "string", Description: "PR description"},
			},
		},
		{
			Name:        "web_search",
			Description: "Search the web for information.",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "The search query", Required: true},
				{Name: "num_results", Type: "integer", Description: "Number of results to return (default: 5)"},
			},
		},
		{
			Name:        "web_get_contents",
			Description: "Fetch the contents of a web page.",
			Parameters: []Parameter{
				{Name: "urls", Type: "array", Description: "URLs to fetch content from", Required: true, Items: map[string]interface{}{"type": "string"}},
			},
		},
		{
			Name:        "todo_write",
			Description: "Update the todo list for task management.",
			Parameters: []Parameter{
				{Name: "todos", Type: "array", Description: "The updated todo list", Required: true, Items: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content": map[string]interface{}{"type": "string"},
						"status":  map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
					},
					"required": []string{"content", "status"},
				}},
			},
		},
		{
			Name:        "message_user",
			Description: "Send a message to the user.",
			Parameters: []Parameter{
				{Name: "message", Type: "string", Description: "The message to send", Required: true},
				{Name: "block_on_user", Type: "boolean", Description: "Whether to wait for user response"},
				{Name: "attachments", Type: "array", Description: "File paths to attach", Items: map[string]interface{}{"type": "string"}},
			},
		},
		{
			Name:        "think",
			Description: "Think about something. Use this for complex reasoning.",
			Parameters: []Parameter{
				{Name: "thought", Type: "string", Description: "The thought to record", Required: true},
			},
		},
	}
}

// RegisterCatalog registers every StandardCatalog entry that has an
// implementation in impls. Entries without an implementation are skipped;
// invoking them later yields the contained unknown-tool error.
func (d *Dispatcher) RegisterCatalog(impls map[string]Handler) error {
	for _, def := range StandardCatalog() {
		handler, ok := impls[def.Name]
		if !ok {
			continue
		}
		def.Handler = handler
		if err := d.Register(def); err != nil {
			return err
		}
	}
	return nil
}
