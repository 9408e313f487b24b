package app

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"replydesk/internal/domain"
)

// Prompt construction is deterministic: two calls with the same review,
// profile and business identity produce byte-identical segments.

func BuildSystemPrompt(businessName, contactEmail string, vp domain.VoiceProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You write replies to customer reviews on behalf of %s.\n", businessName)
	fmt.Fprintf(&b, "Tone: %s.\n", vp.Tone)
	if vp.Personality != nil && *vp.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", *vp.Personality)
	}
	if vp.SignOff != nil && *vp.SignOff != "" {
		fmt.Fprintf(&b, "Sign off every reply with: %s\n", *vp.SignOff)
	}
	if len(vp.Examples) > 0 {
		b.WriteString("Example replies in this voice:\n")
		for i, ex := range vp.Examples {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ex)
		}
	}

	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Keep the reply under %d words.\n", vp.MaxWords)
	b.WriteString("- Thank the reviewer by name when known, otherwise generically.\n")
	b.WriteString("- For ratings of 4 or 5, express specific appreciation for what they praised.\n")
	if contactEmail != "" {
		fmt.Fprintf(&b, "- For ratings of 3 or below, acknowledge the experience without arguing and invite them to continue the conversation at %s.\n", contactEmail)
	} else {
		b.WriteString("- For ratings of 3 or below, acknowledge the experience without arguing and invite them to reach out to the business directly.\n")
	}
	b.WriteString("- Never be defensive and never dispute the reviewer's account.\n")
	if len(vp.ForbiddenWords) > 0 {
		fmt.Fprintf(&b, "- Never use these words: %s.\n", strings.Join(vp.ForbiddenWords, ", "))
	}
	if len(vp.PreferredWords) > 0 {
		fmt.Fprintf(&b, "- Prefer these words where natural: %s.\n", strings.Join(vp.PreferredWords, ", "))
	}
	return b.String()
}

func BuildUserPrompt(rv domain.Review) string {
	reviewer := "Anonymous"
	if rv.Reviewer != nil && *rv.Reviewer != "" {
		reviewer = *rv.Reviewer
	}
	rating := "unrated"
	if rv.Rating != nil {
		rating = fmt.Sprintf("%d/5", *rv.Rating)
	}
	date := "Unknown date"
	if rv.ReviewDate != nil {
		date = rv.ReviewDate.Format("January 2, 2006")
	}
	text := "No review text"
	if rv.Text != nil && strings.TrimSpace(*rv.Text) != "" {
		text = strings.TrimSpace(*rv.Text)
	}
	return fmt.Sprintf("Rating: %s\nReviewer: %s\nDate: %s\nReview: %s", rating, reviewer, date, text)
}

// TokenEstimator counts prompt tokens for logging and size sanity checks.
// Construction can fail (the encoding is fetched lazily by tiktoken); a nil
// estimator is valid and counts nothing.
type TokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTokenEstimator() (*TokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TokenEstimator{enc: enc}, nil
}

func (e *TokenEstimator) Count(s string) int {
	if e == nil || e.enc == nil {
		return 0
	}
	return len(e.enc.Encode(s, nil, nil))
}
