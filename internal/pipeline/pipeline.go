// Package pipeline builds articles through research, outline, sections and
// polish nodes, each calling the generation façade.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"content_gateway/internal/logging"
	"content_gateway/internal/models"
)

const (
	NodeResearch = "research"
	NodeOutline  = "outline"
	NodeSections = "sections"
	NodePolish   = "polish"

	DefaultSections = 4
	MaxSections     = 10
	DefaultTone     = "informative"
)

// Generator is the subset of llm.Manager the pipeline needs.
type Generator interface {
	GenerateContent(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error)
}

// Researcher supplies search or scrape snippets used as prompt context.
type Researcher interface {
	Research(ctx context.Context, topic string, keywords []string) ([]string, error)
}

// Input describes the article to write.
type Input struct {
	Model       string   `json:"model"`
	Topic       string   `json:"topic"`
	Keywords    []string `json:"keywords,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	Sections    int      `json:"sections,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

// Section is one written body section.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// State is shared by every node of a run.
type State struct {
	Input     Input        `json:"input"`
	Sources   []string     `json:"sources,omitempty"`
	Research  []string     `json:"research,omitempty"`
	Outline   []string     `json:"outline,omitempty"`
	Sections  []Section    `json:"sections,omitempty"`
	HTML      string       `json:"html,omitempty"`
	Usage     models.Usage `json:"usage"`
	Completed []string     `json:"completed"`
}

// Node is one step over the shared state
type Node struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// NodeError attributes a failure to the node that produced it.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("pipeline node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Pipeline runs its nodes in order and stops at the first error. Nothing is retried.
type Pipeline struct {
	gen        Generator
	researcher Researcher
	logger     *logging.Logger
	nodes      []Node
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithResearcher enables external research context
func WithResearcher(r Researcher) Option {
	return func(p *Pipeline) { p.researcher = r }
}

// WithLogger sets the pipeline's logger
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates the article pipeline over gen
func New(gen Generator, opts ...Option) *Pipeline {
	p := &Pipeline{gen: gen}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewLogger("pipeline")
	}
	p.nodes = []Node{
		{Name: NodeResearch, Run: p.research},
		{Name: NodeOutline, Run: p.outline},
		{Name: NodeSections, Run: p.sections},
		{Name: NodePolish, Run: p.polish},
	}
	return p
}

// Nodes returns node names in execution order
func (p *Pipeline) Nodes() []string {
	names := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		names[i] = n.Name
	}
	return names
}

// Run executes every node. On failure the partial state is returned along
// with a *NodeError.
func (p *Pipeline) Run(ctx context.Context, in Input) (*State, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	st := &State{Input: in, Completed: []string{}}
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			return st, &NodeError{Node: node.Name, Err: err}
		}

		p.logger.Debug("running node", "node", node.Name, "topic", in.Topic)
		if err := node.Run(ctx, st); err != nil {
			p.logger.Warn("node failed", "node", node.Name, "error", err)
			return st, &NodeError{Node: node.Name, Err: err}
		}
		st.Completed = append(st.Completed, node.Name)
	}

	p.logger.Info("article generated",
		"model", in.Model,
		"sections", len(st.Sections),
		"total_tokens", st.Usage.TotalTokens,
	)
	return st, nil
}

func normalizeInput(in Input) (Input, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	if in.Topic == "" {
		return in, fmt.Errorf("%w: topic is required", models.ErrInvalidRequest)
	}
	if in.Model == "" {
		return in, fmt.Errorf("%w: model is required", models.ErrInvalidRequest)
	}
	if in.Sections <= 0 {
		in.Sections = DefaultSections
	}
	if in.Sections > MaxSections {
		return in, fmt.Errorf("%w: at most %d sections", models.ErrInvalidRequest, MaxSections)
	}
	if strings.TrimSpace(in.Tone) == "" {
		in.Tone = DefaultTone
	}
	if in.Temperature < 0 || in.Temperature > 1 {
		return in, fmt.Errorf("%w: temperature must be within [0, 1]", models.ErrInvalidRequest)
	}
	return in, nil
}

// generate issues one call and folds its usage into the state
func (p *Pipeline) generate(ctx context.Context, st *State, system, user string) (string, error) {
	resp, err := p.gen.GenerateContent(ctx, &models.GenerationRequest{
		Model:       st.Input.Model,
		Temperature: st.Input.Temperature,
		MaxTokens:   st.Input.MaxTokens,
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: system},
			{Role: models.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	st.Usage.Add(resp.Usage)
	return strings.TrimSpace(resp.Content), nil
}
