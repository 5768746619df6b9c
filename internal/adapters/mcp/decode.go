package mcpadapter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

var (
	errMissingID   = errors.New("id is required")
	errUnknownEnum = errors.New("unknown enum value")
)

// decode unmarshals MCP request arguments into a typed struct via a JSON
// round-trip, avoiding unsafe type assertions on the raw argument map.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

func invalidRequestResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("invalid request: %v", err))
}
