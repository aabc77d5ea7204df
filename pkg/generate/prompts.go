package generate

import (
	"fmt"
	"strings"
)

// NotResearchPaper is the sentinel the models are told to answer with when
// the input is not a research paper. It is content, not an error.
const NotResearchPaper = "It is not a research paper"

const stepsPrompt = `You are the world's best researcher. You will be given a research paper and your task is to give a step-by-step list of instructions to implement it.

%s

If it is a machine learning research paper, generate a step-by-step list of instructions to implement the main ideas and algorithms described in the paper.
Provide the output in the following format:
- Steps: list of steps to implement the main ideas and algorithms described in this paper
If it is not a machine learning research paper, answer only:
- ` + NotResearchPaper

const codePrompt = `You are the world's best programmer. You will be given a list of steps to implement a research paper.
Generate Python code that implements the main ideas and algorithms described by the steps, with example usage.
Return only the code, no explanations or text.

List of steps:
%s

If the steps say the input is not a research paper, answer only "` + NotResearchPaper + `".`

// StepsPrompt builds the implementation plan prompt for a paper.
func StepsPrompt(paperText string) string {
	return fmt.Sprintf(stepsPrompt, paperText)
}

// CodePrompt builds the code prompt for an implementation plan.
func CodePrompt(steps string) string {
	return fmt.Sprintf(codePrompt, steps)
}

// IsNotResearchPaper reports whether a completion is the sentinel answer.
func IsNotResearchPaper(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimLeft(t, "-* ")
	t = strings.TrimRight(t, ". ")
	return t == strings.ToLower(NotResearchPaper) || t == "it is not research paper"
}
