// Package parse turns raw agent runner responses into structured output.
// Parsing is a pure function of the raw text with no engine dependencies.
package parse

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

// Parser implements core.ResponseParser for the JSON response contract.
// Runners are expected to emit a single JSON document; surrounding prose
// and markdown fences are tolerated.
type Parser struct{}

// New creates a parser.
func New() *Parser {
	return &Parser{}
}

// rawOutput mirrors the runner's wire format. Execution time arrives in
// milliseconds.
type rawOutput struct {
	Success   bool          `json:"success"`
	Summary   string        `json:"summary"`
	Artifacts []rawArtifact `json:"artifacts"`
	Metadata  rawMetadata   `json:"metadata"`
	NextSteps []string      `json:"next_steps"`
	Warnings  []string      `json:"warnings"`
}

type rawArtifact struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

type rawMetadata struct {
	ResourceUnits   int      `json:"resource_units"`
	ExecutionTimeMS int64    `json:"execution_time_ms"`
	FilesCreated    []string `json:"files_created"`
	FilesModified   []string `json:"files_modified"`
}

// Parse extracts the structured output from a raw response.
func (p *Parser) Parse(raw string) (*core.AgentOutput, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return nil, core.ErrValidation(core.CodeParseFailed, "response contains no JSON document")
	}

	var out rawOutput
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, core.ErrValidation(core.CodeParseFailed, "malformed response document").WithCause(err)
	}

	result := &core.AgentOutput{
		Success: out.Success,
		Summary: strings.TrimSpace(out.Summary),
		Metadata: core.OutputMetadata{
			ResourceUnits: out.Metadata.ResourceUnits,
			ExecutionTime: time.Duration(out.Metadata.ExecutionTimeMS) * time.Millisecond,
			FilesCreated:  out.Metadata.FilesCreated,
			FilesModified: out.Metadata.FilesModified,
		},
		NextSteps: out.NextSteps,
		Warnings:  out.Warnings,
	}
	for _, a := range out.Artifacts {
		result.Artifacts = append(result.Artifacts, core.Artifact{
			Name:    a.Name,
			Type:    a.Type,
			Path:    a.Path,
			Content: a.Content,
		})
	}
	return result, nil
}

// extractJSON finds the first balanced top-level JSON object in the text.
// Markdown code fences around the document are common and stripped first.
func extractJSON(raw string) (string, bool) {
	s := raw
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Verify the boundary contract.
var _ core.ResponseParser = (*Parser)(nil)
