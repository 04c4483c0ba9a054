package retrieve

const chatNamePrompt = `# Chat Title Generation Task

## Objective
Create a precise, professional title for this conversation that accurately
reflects the core subject matter of the user's query.

## Title Requirements
1. Length: 3-6 words maximum
2. Format: Apply proper title case capitalization
3. Focus: Capture the central topic, not peripheral details
4. Precision: Avoid generic terms like "Discussion" or "Overview" unless absolutely necessary

## Prohibited Elements
- Do not include dates or timestamps
- Do not use phrases like "Chat about" or "Discussion of"
- Do not include user names or personal references
- Do not use unnecessary articles (a, an, the) at the beginning

## Output Format
Return ONLY the title text with no additional explanation, formatting, or quotation marks.`

const relatedQueriesPrompt = `# Related Query Generation

## Task Description
Generate 5 highly relevant follow-up questions that a reader would logically
ask after the initial query given as the user message.

## Query Requirements
The follow-up questions must:
1. Explore different dimensions of the same topic
2. Follow logical progression from the initial query
3. Be specific, actionable, and professionally phrased

## Output Format
Return a JSON object with this exact structure:
{
    "relevant_queries": [
        "Question 1 text",
        "Question 2 text",
        "Question 3 text",
        "Question 4 text",
        "Question 5 text"
    ]
}

The JSON must parse without errors; no trailing commas, no extra keys, and no
extraneous text outside the object.`

// relatedQueryTemplates backfill the related-queries list when the model
// returns fewer than five usable questions. %s is the original query.
var relatedQueryTemplates = []string{
	"What are the best practices for %s?",
	"How to implement %s effectively?",
	"What standards govern %s?",
	"What documentation is required for %s?",
	"What are common challenges with %s?",
}
