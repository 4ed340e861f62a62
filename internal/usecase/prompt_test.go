package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireInOrder(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	pos := 0
	for _, n := range needles {
		idx := strings.Index(haystack[pos:], n)
		require.GreaterOrEqual(t, idx, 0, "missing or out of order: %q", n)
		pos += idx + len(n)
	}
}

func TestBuildPrompt_EmptyContextKeepsAllSections(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Instructions: "Rules."})

	requireInOrder(t, prompt,
		"Rules.",
		SectionArticle,
		SectionSummary,
		SectionPolicy,
		SectionReferences,
		ClosingDirective,
	)
	require.True(t, strings.HasSuffix(prompt, ClosingDirective))
}

func TestBuildPrompt_ExactLayout(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Instructions: "I",
		Article:      "A",
		Summary:      "S",
		Policy:       []string{"P1", "P2"},
		References:   []string{"R1"},
	})

	want := "I\n\n" +
		"Original Article:\nA\n\n" +
		"AI-Generated Summary:\nS\n\n" +
		"Company Policy & Approved Corpus:\nP1\nP2\n\n" +
		"External References:\nR1\n\n" +
		ClosingDirective
	require.Equal(t, want, prompt)
}

func TestBuildPrompt_EndToEndOrdering(t *testing.T) {
	article := "Lampedusa has become an arrival point.\n\nSecond paragraph with {braces} and %s verbs."
	summary := "Sentence one. Sentence two. Sentence three."
	refs := []string{"T1 - S1 (L1)", "T2 - S2 (L2)"}

	prompt := BuildPrompt(PromptInput{
		Instructions: DefaultSystemPrompt,
		Article:      article,
		Summary:      summary,
		Policy:       []string{DefaultCompanyPolicy},
		References:   refs,
	})

	requireInOrder(t, prompt,
		DefaultSystemPrompt,
		article,
		summary,
		DefaultCompanyPolicy,
		strings.Join(refs, "\n"),
		ClosingDirective,
	)
}

func TestBuildPrompt_DoesNotTruncate(t *testing.T) {
	article := strings.Repeat("word ", 50000)
	prompt := BuildPrompt(PromptInput{Article: article})
	require.Contains(t, prompt, article)
}

func TestReferenceQuery(t *testing.T) {
	cases := []struct {
		name    string
		article string
		n       int
		want    string
	}{
		{name: "shorter than limit", article: "short", n: 150, want: "short"},
		{name: "cut at limit", article: "abcdef", n: 3, want: "abc"},
		{name: "multibyte runes", article: "åäöåäö", n: 4, want: "åäöå"},
		{name: "empty", article: "", n: 150, want: ""},
		{name: "non-positive limit", article: "abc", n: 0, want: "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, referenceQuery(tc.article, tc.n))
		})
	}
}
