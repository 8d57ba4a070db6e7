// Package analysis assembles the prompts sent to the LLM for repository
// analysis and change generation, and parses the fixed-format responses
// back out of the model's text output.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	githubapi "repochat-backend/internal/github"
)

const (
	// MaxKeyFiles caps how many files are inlined into the analysis prompt.
	MaxKeyFiles = 6
	// MaxFileBytes caps how much of a single file is inlined.
	MaxFileBytes = 16 * 1024
	// maxTreePaths caps how many tree paths are listed in the prompt.
	maxTreePaths = 200
)

// priorityNames are filenames that best describe a repository; they are
// pulled into the analysis prompt first when present.
var priorityNames = []string{
	"README.md",
	"readme.md",
	"README",
	"go.mod",
	"package.json",
	"pyproject.toml",
	"Cargo.toml",
	"Makefile",
	"Dockerfile",
}

// SelectKeyPaths picks up to max blob paths worth inlining into the analysis
// prompt: priority files first, then the shallowest remaining source files.
func SelectKeyPaths(entries []githubapi.TreeEntry, max int) []string {
	if max <= 0 {
		return nil
	}

	blobs := make(map[string]bool, len(entries))
	var rest []string
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		blobs[e.Path] = true
		rest = append(rest, e.Path)
	}

	picked := make([]string, 0, max)
	seen := make(map[string]bool)
	for _, name := range priorityNames {
		if blobs[name] && !seen[name] {
			picked = append(picked, name)
			seen[name] = true
			if len(picked) == max {
				return picked
			}
		}
	}

	// Shallower paths first, ties broken lexically.
	sort.SliceStable(rest, func(i, j int) bool {
		di, dj := strings.Count(rest[i], "/"), strings.Count(rest[j], "/")
		if di != dj {
			return di < dj
		}
		return rest[i] < rest[j]
	})
	for _, p := range rest {
		if seen[p] {
			continue
		}
		picked = append(picked, p)
		seen[p] = true
		if len(picked) == max {
			break
		}
	}
	return picked
}

const analysisSystemPrompt = `You are a senior software engineer analyzing a GitHub repository.
Respond with a single JSON object inside a ` + "```json" + ` fenced code block, with keys:
"description" (string), "technologies" (array of strings), "structure" (string),
"suggestions" (array of strings). Do not include any other text.`

// AnalysisSystemPrompt returns the fixed system prompt for repository analysis.
func AnalysisSystemPrompt() string {
	return analysisSystemPrompt
}

// BuildAnalysisPrompt assembles the user prompt for repository analysis from
// repo metadata, the file tree, and selected file contents.
func BuildAnalysisPrompt(info *githubapi.RepositoryInfo, entries []githubapi.TreeEntry, files map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s/%s\n", info.Owner, info.Name)
	if info.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", info.Description)
	}
	if info.Language != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", info.Language)
	}
	fmt.Fprintf(&b, "Default branch: %s\n", info.DefaultBranch)
	fmt.Fprintf(&b, "Stars: %d, Forks: %d, Open issues: %d\n", info.Stars, info.Forks, info.OpenIssues)

	b.WriteString("\nFile tree:\n")
	count := 0
	for _, e := range entries {
		if e.Type != "blob" {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", e.Path)
		count++
		if count == maxTreePaths {
			fmt.Fprintf(&b, "  ... (%d more files omitted)\n", blobCount(entries)-count)
			break
		}
	}

	// Deterministic file order keeps prompts reproducible.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		content := files[p]
		if len(content) > MaxFileBytes {
			content = content[:MaxFileBytes] + "\n... (truncated)"
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", p, content)
	}

	b.WriteString("\nAnalyze this repository.")
	return b.String()
}

const changeSystemPrompt = `You are a senior software engineer generating file changes for a GitHub repository.
Respond with a single JSON array inside a ` + "```json" + ` fenced code block. Each element must have keys:
"path" (string, full path of the file to create or overwrite),
"content" (string, the complete new file content),
"commit_message" (string, a short imperative commit message).
Every file's content must be complete; do not use diffs or placeholders. Do not include any other text.`

// ChangeSystemPrompt returns the fixed system prompt for change generation.
func ChangeSystemPrompt() string {
	return changeSystemPrompt
}

// BuildChangePrompt assembles the user prompt for generating file changes
// from repo metadata, the stored analysis summary (may be empty), and the
// user's instruction.
func BuildChangePrompt(owner, repo, defaultBranch string, summary []byte, instruction string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s/%s (branch %s)\n", owner, repo, defaultBranch)
	if len(summary) > 0 {
		fmt.Fprintf(&b, "\nRepository analysis:\n%s\n", string(summary))
	}
	fmt.Fprintf(&b, "\nInstruction:\n%s\n", instruction)
	b.WriteString("\nGenerate the file changes.")
	return b.String()
}

func blobCount(entries []githubapi.TreeEntry) int {
	n := 0
	for _, e := range entries {
		if e.Type == "blob" {
			n++
		}
	}
	return n
}
