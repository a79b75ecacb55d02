package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbchat-ai/dbchat-engine/pkg/models"
)

// BuildAnswerPrompt creates the prompt that turns query results into a
// conversational answer. result rows are expected to be pre-truncated
// by the caller; the prompt tells the model when the display was cut
// so it can say so.
func BuildAnswerPrompt(question, query string, result *models.ExecutionResult, displayed []map[string]any) string {
	var prompt strings.Builder

	prompt.WriteString("# Answer Synthesis\n\n")
	prompt.WriteString("A user asked a question about their database. The question was answered by running a SQL query. Summarize the results in plain language.\n\n")

	prompt.WriteString(fmt.Sprintf("## Question\n\n%s\n\n", question))
	prompt.WriteString(fmt.Sprintf("## Query\n\n%s\n\n", query))

	prompt.WriteString("## Results\n\n")
	if result.RowCount == 0 {
		prompt.WriteString("The query returned no rows.\n\n")
	} else {
		encoded, err := json.Marshal(displayed)
		if err != nil {
			encoded = []byte("[]")
		}
		prompt.WriteString(fmt.Sprintf("%d row(s) returned", result.RowCount))
		if len(displayed) < result.RowCount {
			prompt.WriteString(fmt.Sprintf(", showing the first %d", len(displayed)))
		}
		prompt.WriteString(":\n")
		prompt.Write(encoded)
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Answer concisely and conversationally, as if speaking to a colleague.\n")
	prompt.WriteString("- Use only the data in the results. If the results are empty, say no matching data was found; never invent values.\n")
	prompt.WriteString("- Do not mention id or surrogate key columns; refer to records by their names or other descriptive fields.\n")
	prompt.WriteString("- Do not mention SQL, queries or databases unless the user asked about them.\n")

	return prompt.String()
}

// AnswerSystemMessage returns the system message for answer synthesis.
func AnswerSystemMessage() string {
	return "You are a helpful data analyst. You explain query results clearly and never fabricate data that is not in the results."
}

// BuildSmallTalkPrompt handles questions that are not about data at
// all, without involving the schema or a query.
func BuildSmallTalkPrompt(question string) string {
	var prompt strings.Builder
	prompt.WriteString("The user sent a message to a database assistant that does not appear to be a question about data. ")
	prompt.WriteString("Reply briefly and politely, and mention that you can answer questions about their data.\n\n")
	prompt.WriteString(fmt.Sprintf("Message: %s\n", question))
	return prompt.String()
}
