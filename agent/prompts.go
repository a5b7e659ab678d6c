package agent

import (
	"fmt"
	"strings"
)

// summaryWords is the target length for topic summaries.
const summaryWords = 300

// categorizationPrompt builds the prompt for classifying one content item
// against the topics discovered so far.
func categorizationPrompt(existingTopics []string, content string) string {
	topics := "No existing topics yet."
	if len(existingTopics) > 0 {
		topics = "Current topics:\n" + strings.Join(existingTopics, "\n")
	}

	var b strings.Builder
	b.WriteString("You are a news categorization expert. You will be given a single news article and a list of existing topics.\n\n")
	b.WriteString("Here is the content to categorize:\n")
	b.WriteString(content)
	b.WriteString("\n\n=========================\n\n")
	b.WriteString("Here is the list of existing topics:\n")
	b.WriteString(topics)
	b.WriteString(`

First, analyze if this content is about technical issues, webpage loading errors, API responses, HTML issues or other non-newsworthy technical content. If it is, return {"skip": true}.

Otherwise, categorize the content. Return an array of topic assignments where each assignment contains:

1. topicName: the name of the topic (an existing topic name, or a new topic name you are creating)
2. isNew: whether this is a new topic (true) or an existing one (false)
3. furtherReadings: optional array of URLs from the content that link to complete articles about that topic

Guidelines:
- If the content fits an existing topic, use that topic's exact name and set isNew to false
- If the content fits no existing topic, create one or more new topics and set isNew to true for each
- You can assign the content to multiple topics if it covers multiple subjects
- Topic names must be clear, descriptive, and distinct from each other
- furtherReadings URLs must be direct links to full articles, not homepages or category pages
- Limit furtherReadings to at most 3 URLs per assignment, prioritizing the most newsworthy links
- Limit the total number of assignments to at most 5, prioritizing the most relevant topics
- Omit furtherReadings when no relevant article links are present

Respond with a JSON object: {"skip": true} for technical content, or {"skip": false, "assignments": [...]} otherwise.
`)
	return b.String()
}

// summaryPrompt builds the prompt for summarizing one topic from the content
// of all its sources.
func summaryPrompt(topicName string, contents []string) string {
	indexed := make([]string, len(contents))
	for i, c := range contents {
		indexed[i] = fmt.Sprintf("Source %d:\n%s", i, c)
	}

	return fmt.Sprintf(`You are a world-class news summarizer. You will be provided with a topic name and content from multiple news sources related to that topic.

Here is the content from the different news sources, separated by '------------':
%s

Write a comprehensive summary of the news events in the topic %q. The summary should be detailed and about %d words long.

Also select a relevant image for the summary from the URLs in the content, and provide a title.

Respond with a JSON object with the fields: title, summary, image.
`, strings.Join(indexed, "\n\n------------\n\n"), topicName, summaryWords)
}

// suggestionPrompt builds the prompt for suggesting news sources covering a
// subject.
func suggestionPrompt(subject string) string {
	return fmt.Sprintf(`You are a news expert. You will suggest news sources based on the topic.

Topic: %s

Suggest 5 valid URLs of news sources related to the topic. For each, provide its name, URL, and a short description.
`, subject)
}
