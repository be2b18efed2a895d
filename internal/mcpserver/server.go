// Package mcpserver exposes recommendations and briefings as Model Context
// Protocol tools so agents can query the newsroom over stdio.
package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/newsroom/internal/domain/briefing"
	"github.com/matiasleandrokruk/newsroom/internal/domain/ranking"
	"github.com/matiasleandrokruk/newsroom/internal/logging"
	"github.com/matiasleandrokruk/newsroom/internal/version"
)

const (
	ToolRecommend = "recommend"
	ToolBriefing  = "briefing"

	defaultTopN = 10
)

var errQueryRequired = errors.New("query is required")

// Recommender produces ranked items for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string, topN int, p ranking.Policy) ([]ranking.ScoredItem, error)
}

// Briefer summarizes the articles retrieved for a query.
type Briefer interface {
	Brief(ctx context.Context, query string, k int, provider string) (*briefing.Briefing, error)
}

type RecommendInput struct {
	Query    string `json:"query" jsonschema:"free-text search query"`
	TopN     *int   `json:"top_n,omitempty" jsonschema:"number of recommendations, default from configuration"`
	RecoMode string `json:"reco_mode,omitempty" jsonschema:"ranking engine: simple, raw or hybrid"`
}

type RecommendOutput struct {
	Engine          string           `json:"engine"`
	Recommendations []ranking.Record `json:"recommendations"`
}

type BriefingInput struct {
	Query    string `json:"query" jsonschema:"free-text search query"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of articles used as context"`
	Provider string `json:"provider,omitempty" jsonschema:"language model provider, default from configuration"`
}

// New builds the MCP server with both tools registered.
func New(reco Recommender, briefer Briefer, defaults ranking.Defaults) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "newsroom", Version: version.Version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolRecommend,
		Description: "Rank recent articles for a query with the configured recommendation engine.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
		if strings.TrimSpace(in.Query) == "" {
			return nil, RecommendOutput{}, errQueryRequired
		}
		p := defaults.Resolve(in.RecoMode)
		items, err := reco.Recommend(ctx, in.Query, defaults.Limit(in.TopN, defaultTopN), p)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("tool", ToolRecommend).Msg("tool call failed")
			return nil, RecommendOutput{}, err
		}
		return nil, RecommendOutput{Engine: string(p.Mode), Recommendations: ranking.Records(items, p)}, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ToolBriefing,
		Description: "Summarize the articles most relevant to a query, citing its sources.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in BriefingInput) (*mcp.CallToolResult, briefing.Briefing, error) {
		b, err := briefer.Brief(ctx, in.Query, in.TopK, in.Provider)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("tool", ToolBriefing).Msg("tool call failed")
			return nil, briefing.Briefing{}, err
		}
		return nil, *b, nil
	})

	return s
}

// ServeStdio runs s over stdin/stdout until ctx ends or the client disconnects.
func ServeStdio(ctx context.Context, s *mcp.Server) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
