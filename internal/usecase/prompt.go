package usecase

import (
	"strings"
)

// Section markers of the evaluation prompt, in the order they appear.
const (
	SectionArticle    = "Original Article:"
	SectionSummary    = "AI-Generated Summary:"
	SectionPolicy     = "Company Policy & Approved Corpus:"
	SectionReferences = "External References:"
	ClosingDirective  = "Now evaluate the AI-generated summary strictly following the instructions."
)

// snippetSeparator joins context snippets and references inside their blocks.
const snippetSeparator = "\n"

// DefaultSystemPrompt instructs the model how to score a summary.
const DefaultSystemPrompt = `You are an AI assistant specialized in evaluating AI-generated news summaries for bias, factual accuracy, and alignment with company policy. Your task is to help human news editors by assessing how well a summary reflects the original article, adheres to company-approved sources, and avoids internal AI bias or editorial slant.

Instructions:

1. Compare the AI-generated summary to the original article and the approved corpus.
2. Identify any factual inconsistencies, omissions, exaggerations, or distortions.
3. Detect any language or framing that could indicate internal AI bias or misalignment with company policy.
4. Evaluate how much the AI altered the words or meaning compared to the original article.
5. Provide a Bias/Accuracy Score between 0 and 100, where 100 means perfectly accurate, fully compliant with policy, and unbiased.
6. Provide a short explanation supporting your score, highlighting the main issues or areas where the summary deviates from the original article or policy.
7. If possible, suggest minimal edits to improve alignment with the original article and company policy.`

// DefaultCompanyPolicy is the embedded policy used when no knowledge base is configured.
const DefaultCompanyPolicy = `Company-approved reporting must:
- Remain neutral in tone
- Avoid emotionally charged or speculative language
- Reference only verified, reputable sources
- Ensure factual accuracy without omission of key details`

// DefaultPolicyQuery is sent to retrieval-backed policy sources.
const DefaultPolicyQuery = "company policy for news reporting and approved corpus"

// defaultReferenceQueryRunes is how much of the article seeds the news search.
const defaultReferenceQueryRunes = 150

// PromptInput carries every block of the evaluation prompt.
type PromptInput struct {
	Instructions string
	Article      string
	Summary      string
	Policy       []string
	References   []string
}

// BuildPrompt concatenates the prompt blocks in fixed order. Nothing is
// truncated or escaped; empty blocks keep their section marker.
func BuildPrompt(in PromptInput) string {
	return strings.Join([]string{
		in.Instructions,
		"",
		SectionArticle,
		in.Article,
		"",
		SectionSummary,
		in.Summary,
		"",
		SectionPolicy,
		strings.Join(in.Policy, snippetSeparator),
		"",
		SectionReferences,
		strings.Join(in.References, snippetSeparator),
		"",
		ClosingDirective,
	}, "\n")
}

// referenceQuery returns the first n runes of the article text.
func referenceQuery(article string, n int) string {
	if n <= 0 {
		return article
	}
	runes := []rune(article)
	if len(runes) <= n {
		return article
	}
	return string(runes[:n])
}
