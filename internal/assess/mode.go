package assess

import (
	"fmt"
	"strings"
)

// Mode selects the instruction sent with an assessment.
type Mode int

const (
	// Review asks for a recruiter-style strengths and weaknesses review.
	Review Mode = iota
	// MatchPercentage asks for an ATS-style match score, missing keywords
	// and final thoughts.
	MatchPercentage
)

const reviewInstruction = `
You are an experienced Technical Human Resource Manager, your task is to review the provided resume against the job description.
Please share your professional evaluation on whether the candidate's profile aligns with the role.
Highlight the strengths and weaknesses of the applicant in relation to the specified job requirements.
`

const matchInstruction = `
You are a skilled ATS (Applicant Tracking System) scanner with a deep understanding of data science and ATS functionality,
your task is to evaluate the resume against the provided job description. Give me the percentage of match if the resume matches
the job description. First the output should come as percentage and then keywords missing and last final thoughts.
`

// ParseMode maps the route names "review" and "match" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "review":
		return Review, nil
	case "match", "percentage", "match_percentage":
		return MatchPercentage, nil
	default:
		return 0, fmt.Errorf("unknown assessment mode %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case Review:
		return "review"
	case MatchPercentage:
		return "match"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Instruction returns the fixed instruction text for m.
func (m Mode) Instruction() (string, error) {
	switch m {
	case Review:
		return reviewInstruction, nil
	case MatchPercentage:
		return matchInstruction, nil
	default:
		return "", fmt.Errorf("unknown assessment mode %d", int(m))
	}
}
